package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

type ReviewRepository interface {
	Add(ctx context.Context, review *entity.Review) error
	ListByGame(ctx context.Context, gameName string) ([]*entity.Review, error)
}

type dbReview struct {
	client *redis.Client
}

func NewReviewRepository(client *redis.Client) ReviewRepository {
	return &dbReview{
		client: client,
	}
}

func (that *dbReview) Add(ctx context.Context, review *entity.Review) error {
	reviewJSON, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to marshal review: %w", err)
	}

	if err = that.client.RPush(ctx, reviewsKey(review.GameName), reviewJSON).Err(); err != nil {
		return fmt.Errorf("failed to push review: %w", err)
	}

	return nil
}

// ListByGame returns reviews oldest first.
func (that *dbReview) ListByGame(ctx context.Context, gameName string) ([]*entity.Review, error) {
	raw, err := that.client.LRange(ctx, reviewsKey(gameName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	reviews := make([]*entity.Review, 0, len(raw))

	for _, item := range raw {
		var review entity.Review
		if err = json.Unmarshal([]byte(item), &review); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review: %w", err)
		}

		reviews = append(reviews, &review)
	}

	return reviews, nil
}
