package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

type userRepo interface {
	Create(ctx context.Context, user *entity.User) error
	Save(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	FindByName(ctx context.Context, role, username string) (*entity.User, error)
}

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.GameMeta) error
	GetByName(ctx context.Context, name string) (*entity.GameMeta, error)
	List(ctx context.Context) ([]*entity.GameMeta, error)
	DeleteByName(ctx context.Context, name string) error
}

type roomRepo interface {
	Create(ctx context.Context, build func(id int64) *entity.Room) (*entity.Room, error)
	GetByID(ctx context.Context, id int64) (*entity.Room, error)
	List(ctx context.Context) ([]*entity.Room, error)
	Update(ctx context.Context, id int64, mutate func(room *entity.Room) error) (*entity.Room, error)
	Expire(ctx context.Context, id int64, ttl time.Duration) error
}

type reviewRepo interface {
	Add(ctx context.Context, review *entity.Review) error
	ListByGame(ctx context.Context, gameName string) ([]*entity.Review, error)
}

type historyRepo interface {
	Record(ctx context.Context, userID int64, gameName string, at time.Time) error
	List(ctx context.Context, userID int64) ([]string, error)
	HasPlayed(ctx context.Context, userID int64, gameName string) (bool, error)
}

// StoreManager implements the account, game, room and review rules behind the store RPC.
type StoreManager struct {
	logger *slog.Logger

	userRepo    userRepo
	gameRepo    gameRepo
	roomRepo    roomRepo
	reviewRepo  reviewRepo
	historyRepo historyRepo

	roomRetention time.Duration
	now           func() time.Time
}

type Repositories struct {
	Users   userRepo
	Games   gameRepo
	Rooms   roomRepo
	Reviews reviewRepo
	History historyRepo
}

func NewStoreManager(logger *slog.Logger, repos Repositories, roomRetention time.Duration) *StoreManager {
	return &StoreManager{
		logger: logger.With("component", "store"),

		userRepo:    repos.Users,
		gameRepo:    repos.Games,
		roomRepo:    repos.Rooms,
		reviewRepo:  repos.Reviews,
		historyRepo: repos.History,

		roomRetention: roomRetention,
		now:           time.Now,
	}
}
