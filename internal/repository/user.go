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

var (
	ErrUserNotFound = fmt.Errorf("user %w", apperror.ErrNotFound)
	ErrUserExists   = fmt.Errorf("username %w", apperror.ErrAlreadyExists)
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Save(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	FindByName(ctx context.Context, role, username string) (*entity.User, error)
}

type dbUser struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) UserRepository {
	return &dbUser{
		client: client,
	}
}

// Create reserves the username for the role, assigns the next id and stores the user.
func (that *dbUser) Create(ctx context.Context, user *entity.User) error {
	id, err := that.client.Incr(ctx, userSeqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate user id: %w", err)
	}

	reserved, err := that.client.SetNX(ctx, usernameKey(user.Role, user.Username), id, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve username: %w", err)
	}

	if !reserved {
		return ErrUserExists
	}

	user.ID = id

	if err = that.Save(ctx, user); err != nil {
		that.client.Del(ctx, usernameKey(user.Role, user.Username))

		return err
	}

	return nil
}

func (that *dbUser) Save(ctx context.Context, user *entity.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err = that.client.Set(ctx, userKey(user.ID), userJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set user: %w", err)
	}

	return nil
}

func (that *dbUser) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	response, err := that.client.Get(ctx, userKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	var user entity.User
	if err = json.Unmarshal([]byte(response), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &user, nil
}

func (that *dbUser) FindByName(ctx context.Context, role, username string) (*entity.User, error) {
	id, err := that.client.Get(ctx, usernameKey(role, username)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user by name: %w", err)
	}

	return that.GetByID(ctx, id)
}
