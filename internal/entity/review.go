package entity

import (
	"time"
	"unicode/utf8"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
)

const maxCommentRunes = 200

type Review struct {
	GameName  string    `json:"game_name"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the rating and trims the comment to its maximum length.
func (that *Review) Validate() error {
	if that.Rating < 1 || that.Rating > 5 {
		return apperror.ErrInvalidRating
	}

	if utf8.RuneCountInString(that.Comment) > maxCommentRunes {
		that.Comment = string([]rune(that.Comment)[:maxCommentRunes])
	}

	return nil
}
