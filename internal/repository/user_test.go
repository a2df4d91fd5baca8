package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/testing/suite"
)

func TestUserRepository(t *testing.T) {
	ctx, st := suite.New(t)

	userRepo := NewUserRepository(st.Storage)

	t.Run("Create assigns increasing ids", func(t *testing.T) {
		// Given: two new users
		alice := &entity.User{Username: "alice", Role: entity.RolePlayer}
		bob := &entity.User{Username: "bob", Role: entity.RolePlayer}

		// When: they are created
		require.NoError(t, userRepo.Create(ctx, alice))
		require.NoError(t, userRepo.Create(ctx, bob))

		// Then: ids are allocated in order and lookups work
		assert.Equal(t, int64(1), alice.ID)
		assert.Equal(t, int64(2), bob.ID)

		found, err := userRepo.FindByName(ctx, entity.RolePlayer, "bob")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, found.ID)
	})

	t.Run("Duplicate username within a role fails", func(t *testing.T) {
		err := userRepo.Create(ctx, &entity.User{Username: "alice", Role: entity.RolePlayer})

		require.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("Same username under another role is allowed", func(t *testing.T) {
		err := userRepo.Create(ctx, &entity.User{Username: "alice", Role: entity.RoleDeveloper})

		require.NoError(t, err)
	})

	t.Run("Save replaces the token", func(t *testing.T) {
		user, err := userRepo.FindByName(ctx, entity.RolePlayer, "alice")
		require.NoError(t, err)

		user.Token = "t-1"
		require.NoError(t, userRepo.Save(ctx, user))

		got, err := userRepo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "t-1", got.Token)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := userRepo.GetByID(ctx, 999)
		require.ErrorIs(t, err, ErrUserNotFound)

		_, err = userRepo.FindByName(ctx, entity.RolePlayer, "nobody")
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}
