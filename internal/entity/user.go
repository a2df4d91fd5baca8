package entity

import "time"

const (
	RolePlayer    = "player"
	RoleDeveloper = "developer"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Token        string    `json:"token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserView is the part of a user that may leave the store.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

func (that *User) View() UserView {
	return UserView{
		ID:       that.ID,
		Username: that.Username,
	}
}

// NormalizeRole maps anything unknown to a player account.
func NormalizeRole(role string) string {
	if role == RoleDeveloper {
		return RoleDeveloper
	}

	return RolePlayer
}
