package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

const maxUpdateRetries = 16

var (
	ErrRoomNotFound = fmt.Errorf("room %w", apperror.ErrNotFound)
	ErrRoomConflict = errors.New("room update kept conflicting")
)

type RoomRepository interface {
	Create(ctx context.Context, build func(id int64) *entity.Room) (*entity.Room, error)
	GetByID(ctx context.Context, id int64) (*entity.Room, error)
	List(ctx context.Context) ([]*entity.Room, error)
	Update(ctx context.Context, id int64, mutate func(room *entity.Room) error) (*entity.Room, error)
	Expire(ctx context.Context, id int64, ttl time.Duration) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func (that *dbRoom) Create(ctx context.Context, build func(id int64) *entity.Room) (*entity.Room, error) {
	id, err := that.client.Incr(ctx, roomSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate room id: %w", err)
	}

	room := build(id)

	roomJSON, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(id), roomJSON, 0)
		pipe.SAdd(ctx, roomsKey, id)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set room: %w", err)
	}

	return room, nil
}

func (that *dbRoom) GetByID(ctx context.Context, id int64) (*entity.Room, error) {
	return getRoom(ctx, that.client, id)
}

// List returns live rooms in id order and forgets ids whose key has expired.
func (that *dbRoom) List(ctx context.Context) ([]*entity.Room, error) {
	ids, err := that.client.Sort(ctx, roomsKey, &redis.Sort{}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]*entity.Room, 0, len(ids))

	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}

		room, err := that.GetByID(ctx, id)
		if errors.Is(err, ErrRoomNotFound) {
			that.client.SRem(ctx, roomsKey, raw)
			continue
		}

		if err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, nil
}

// Update applies mutate under WATCH so concurrent accepts never overfill a room.
// A room left without members is deleted in the same transaction.
func (that *dbRoom) Update(ctx context.Context, id int64, mutate func(room *entity.Room) error) (*entity.Room, error) {
	var updated *entity.Room

	txf := func(tx *redis.Tx) error {
		room, err := getRoom(ctx, tx, id)
		if err != nil {
			return err
		}

		if err = mutate(room); err != nil {
			return err
		}

		roomJSON, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("failed to marshal room: %w", err)
		}

		ttl, err := tx.PTTL(ctx, roomKey(id)).Result()
		if err != nil {
			return fmt.Errorf("failed to read room ttl: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if room.IsEmpty() {
				pipe.Del(ctx, roomKey(id))
				pipe.SRem(ctx, roomsKey, id)

				return nil
			}

			if ttl > 0 {
				pipe.Set(ctx, roomKey(id), roomJSON, ttl)
			} else {
				pipe.Set(ctx, roomKey(id), roomJSON, 0)
			}

			return nil
		})
		if err != nil {
			return err
		}

		updated = room

		return nil
	}

	for range maxUpdateRetries {
		err := that.client.Watch(ctx, txf, roomKey(id))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, ErrRoomConflict
}

func (that *dbRoom) Expire(ctx context.Context, id int64, ttl time.Duration) error {
	if err := that.client.Expire(ctx, roomKey(id), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set room expiry: %w", err)
	}

	return nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRoom(ctx context.Context, client getter, id int64) (*entity.Room, error) {
	response, err := client.Get(ctx, roomKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by ID: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}
