package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

var ErrGameNotFound = fmt.Errorf("game %w", apperror.ErrNotFound)

type GameRepository interface {
	CreateOrUpdate(ctx context.Context, game *entity.GameMeta) error
	GetByName(ctx context.Context, name string) (*entity.GameMeta, error)
	List(ctx context.Context) ([]*entity.GameMeta, error)
	DeleteByName(ctx context.Context, name string) error
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func (that *dbGame) CreateOrUpdate(ctx context.Context, game *entity.GameMeta) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(game.Name), gameJSON, 0)
		pipe.SAdd(ctx, gamesKey, game.Name)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByName(ctx context.Context, name string) (*entity.GameMeta, error) {
	response, err := that.client.Get(ctx, gameKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by name: %w", err)
	}

	var game entity.GameMeta
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}

// List returns every stored game ordered by name.
func (that *dbGame) List(ctx context.Context) ([]*entity.GameMeta, error) {
	names, err := that.client.Sort(ctx, gamesKey, &redis.Sort{Alpha: true}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	games := make([]*entity.GameMeta, 0, len(names))

	for _, name := range names {
		game, err := that.GetByName(ctx, name)
		if errors.Is(err, ErrGameNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		games = append(games, game)
	}

	return games, nil
}

func (that *dbGame) DeleteByName(ctx context.Context, name string) error {
	deleted, err := that.client.Del(ctx, gameKey(name)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	if deleted == 0 {
		return ErrGameNotFound
	}

	if err = that.client.SRem(ctx, gamesKey, name).Err(); err != nil {
		return fmt.Errorf("failed to unlist game: %w", err)
	}

	return nil
}
