package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PlayHistoryRepository remembers which games each player has finished a match of.
type PlayHistoryRepository interface {
	Record(ctx context.Context, userID int64, gameName string, at time.Time) error
	List(ctx context.Context, userID int64) ([]string, error)
	HasPlayed(ctx context.Context, userID int64, gameName string) (bool, error)
}

type dbPlayHistory struct {
	client *redis.Client
}

func NewPlayHistoryRepository(client *redis.Client) PlayHistoryRepository {
	return &dbPlayHistory{
		client: client,
	}
}

func (that *dbPlayHistory) Record(ctx context.Context, userID int64, gameName string, at time.Time) error {
	err := that.client.ZAdd(ctx, historyKey(userID), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: gameName,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record play history: %w", err)
	}

	return nil
}

// List returns game names, most recently played first.
func (that *dbPlayHistory) List(ctx context.Context, userID int64) ([]string, error) {
	games, err := that.client.ZRevRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list play history: %w", err)
	}

	return games, nil
}

func (that *dbPlayHistory) HasPlayed(ctx context.Context, userID int64, gameName string) (bool, error) {
	err := that.client.ZScore(ctx, historyKey(userID), gameName).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to check play history: %w", err)
	}

	return true, nil
}
