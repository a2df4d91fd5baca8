package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

type mockUserRepo struct{ mock.Mock }

func (that *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	return that.Called(ctx, user).Error(0)
}

func (that *mockUserRepo) Save(ctx context.Context, user *entity.User) error {
	return that.Called(ctx, user).Error(0)
}

func (that *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	args := that.Called(ctx, id)
	user, _ := args.Get(0).(*entity.User)

	return user, args.Error(1)
}

func (that *mockUserRepo) FindByName(ctx context.Context, role, username string) (*entity.User, error) {
	args := that.Called(ctx, role, username)
	user, _ := args.Get(0).(*entity.User)

	return user, args.Error(1)
}

type mockGameRepo struct{ mock.Mock }

func (that *mockGameRepo) CreateOrUpdate(ctx context.Context, game *entity.GameMeta) error {
	return that.Called(ctx, game).Error(0)
}

func (that *mockGameRepo) GetByName(ctx context.Context, name string) (*entity.GameMeta, error) {
	args := that.Called(ctx, name)
	game, _ := args.Get(0).(*entity.GameMeta)

	return game, args.Error(1)
}

func (that *mockGameRepo) List(ctx context.Context) ([]*entity.GameMeta, error) {
	args := that.Called(ctx)
	games, _ := args.Get(0).([]*entity.GameMeta)

	return games, args.Error(1)
}

func (that *mockGameRepo) DeleteByName(ctx context.Context, name string) error {
	return that.Called(ctx, name).Error(0)
}

// mockRoomRepo runs the builder and mutator closures against the configured room.
type mockRoomRepo struct{ mock.Mock }

func (that *mockRoomRepo) Create(ctx context.Context, build func(id int64) *entity.Room) (*entity.Room, error) {
	args := that.Called(ctx)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	return build(args.Get(0).(int64)), nil
}

func (that *mockRoomRepo) GetByID(ctx context.Context, id int64) (*entity.Room, error) {
	args := that.Called(ctx, id)
	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockRoomRepo) List(ctx context.Context) ([]*entity.Room, error) {
	args := that.Called(ctx)
	rooms, _ := args.Get(0).([]*entity.Room)

	return rooms, args.Error(1)
}

func (that *mockRoomRepo) Update(ctx context.Context, id int64, mutate func(room *entity.Room) error) (*entity.Room, error) {
	args := that.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	room := args.Get(0).(*entity.Room)
	if err := mutate(room); err != nil {
		return nil, err
	}

	return room, nil
}

func (that *mockRoomRepo) Expire(ctx context.Context, id int64, ttl time.Duration) error {
	return that.Called(ctx, id, ttl).Error(0)
}

type mockReviewRepo struct{ mock.Mock }

func (that *mockReviewRepo) Add(ctx context.Context, review *entity.Review) error {
	return that.Called(ctx, review).Error(0)
}

func (that *mockReviewRepo) ListByGame(ctx context.Context, gameName string) ([]*entity.Review, error) {
	args := that.Called(ctx, gameName)
	reviews, _ := args.Get(0).([]*entity.Review)

	return reviews, args.Error(1)
}

type mockHistoryRepo struct{ mock.Mock }

func (that *mockHistoryRepo) Record(ctx context.Context, userID int64, gameName string, at time.Time) error {
	return that.Called(ctx, userID, gameName, at).Error(0)
}

func (that *mockHistoryRepo) List(ctx context.Context, userID int64) ([]string, error) {
	args := that.Called(ctx, userID)
	games, _ := args.Get(0).([]string)

	return games, args.Error(1)
}

func (that *mockHistoryRepo) HasPlayed(ctx context.Context, userID int64, gameName string) (bool, error) {
	args := that.Called(ctx, userID, gameName)

	return args.Bool(0), args.Error(1)
}
