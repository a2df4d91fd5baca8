package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/blockarena-backend/testing/suite"
)

func TestPlayHistoryRepository(t *testing.T) {
	ctx, st := suite.New(t)

	historyRepo := NewPlayHistoryRepository(st.Storage)

	t.Run("Unplayed game", func(t *testing.T) {
		played, err := historyRepo.HasPlayed(ctx, 1, "Tetris_Battle")

		require.NoError(t, err)
		assert.False(t, played)
	})

	t.Run("Most recent first without duplicates", func(t *testing.T) {
		// Given: three matches over two games
		now := time.Now()
		require.NoError(t, historyRepo.Record(ctx, 1, "Tetris_Battle", now))
		require.NoError(t, historyRepo.Record(ctx, 1, "Columns", now.Add(time.Second)))
		require.NoError(t, historyRepo.Record(ctx, 1, "Tetris_Battle", now.Add(2*time.Second)))

		// When: the history is listed
		games, err := historyRepo.List(ctx, 1)

		// Then: each game appears once, newest first
		require.NoError(t, err)
		assert.Equal(t, []string{"Tetris_Battle", "Columns"}, games)

		played, err := historyRepo.HasPlayed(ctx, 1, "Columns")
		require.NoError(t, err)
		assert.True(t, played)
	})
}
