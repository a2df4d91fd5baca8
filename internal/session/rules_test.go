package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/game"
)

func newRules(mode string, users ...int64) *Rules {
	return NewRules(&config.Session{Mode: mode, TimedSeconds: 60, TargetLines: 5}, users)
}

func TestRules_Survival(t *testing.T) {
	t.Run("P1 terminal with P2 active makes P2 the winner", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeSurvival, 10, 20)
		p1, p2 := &stubEngine{terminal: true}, &stubEngine{}

		// When
		decision, over := rules.Evaluate(time.Now(), engines(p1, p2))

		// Then
		require.True(t, over)
		assert.Equal(t, "P2", decision.Winner)
		assert.Equal(t, int64(20), decision.WinnerUserID)
		assert.Equal(t, "P1 topped out", decision.Reason)
	})

	t.Run("both terminal in one pass is a draw", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeSurvival, 10, 20)

		// When
		decision, over := rules.Evaluate(time.Now(), engines(&stubEngine{terminal: true}, &stubEngine{terminal: true}))

		// Then
		require.True(t, over)
		assert.True(t, decision.IsDraw())
		assert.Zero(t, decision.WinnerUserID)
	})

	t.Run("the match continues while two engines are alive", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeSurvival, 1, 2, 3)

		// When
		_, over := rules.Evaluate(time.Now(), engines(&stubEngine{terminal: true}, &stubEngine{}, &stubEngine{}))

		// Then
		assert.False(t, over)
	})

	t.Run("a solo match lasts until its engine tops out", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeSurvival, 1)
		solo := &stubEngine{}

		// When
		_, overWhileAlive := rules.Evaluate(time.Now(), engines(solo))
		solo.terminal = true
		decision, over := rules.Evaluate(time.Now(), engines(solo))

		// Then
		assert.False(t, overWhileAlive)
		require.True(t, over)
		assert.Equal(t, WinnerNone, decision.Winner)
		assert.Equal(t, "topped out", decision.Reason)
	})

	t.Run("a forfeit is reported as a disconnect", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeSurvival, 10, 20)
		p2 := &stubEngine{}
		p2.Forfeit()
		rules.Forfeit(1)

		// When
		decision, over := rules.Evaluate(time.Now(), engines(&stubEngine{}, p2))

		// Then
		require.True(t, over)
		assert.Equal(t, "P1", decision.Winner)
		assert.Equal(t, "P2 disconnected", decision.Reason)
	})
}

func TestRules_Timed(t *testing.T) {
	start := time.Now()

	t.Run("the highest score wins at timeout", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeTimed, 10, 20)
		rules.Start(start)
		p1, p2 := &stubEngine{stats: game.Stats{Score: 100}}, &stubEngine{stats: game.Stats{Score: 250}}

		// When
		_, early := rules.Evaluate(start.Add(59*time.Second), engines(p1, p2))
		decision, over := rules.Evaluate(start.Add(60*time.Second), engines(p1, p2))

		// Then
		assert.False(t, early)
		require.True(t, over)
		assert.Equal(t, "P2", decision.Winner)
		assert.Equal(t, map[string]int{"P1": 100, "P2": 250}, decision.Scores)
	})

	t.Run("equal scores are a draw", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeTimed, 10, 20)
		rules.Start(start)

		// When
		decision, over := rules.Evaluate(start.Add(time.Hour), engines(
			&stubEngine{stats: game.Stats{Score: 300}},
			&stubEngine{stats: game.Stats{Score: 300}},
		))

		// Then
		require.True(t, over)
		assert.Equal(t, entity.Draw, decision.Winner)
	})

	t.Run("every player leaving ends the match as a draw", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeTimed, 10, 20)
		rules.Start(start)
		rules.Forfeit(0)
		rules.Forfeit(1)

		// When
		decision, over := rules.Evaluate(start, engines(&stubEngine{terminal: true}, &stubEngine{terminal: true}))

		// Then
		require.True(t, over)
		assert.Equal(t, entity.Draw, decision.Winner)
		assert.Equal(t, "all players disconnected", decision.Reason)
	})

	t.Run("topped out engines wait for the clock", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeTimed, 10, 20)
		rules.Start(start)
		p1 := &stubEngine{terminal: true, stats: game.Stats{Score: 400}}
		p2 := &stubEngine{terminal: true, stats: game.Stats{Score: 150}}

		// When
		_, early := rules.Evaluate(start.Add(time.Second), engines(p1, p2))
		decision, over := rules.Evaluate(start.Add(60*time.Second), engines(p1, p2))

		// Then
		assert.False(t, early)
		require.True(t, over)
		assert.Equal(t, "P1", decision.Winner)
		assert.Equal(t, "time up", decision.Reason)
	})

	t.Run("the clock does not run before the start", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeTimed, 10, 20)

		// When
		_, over := rules.Evaluate(start.Add(time.Hour), engines(&stubEngine{}, &stubEngine{}))

		// Then
		assert.False(t, over)
	})
}

func TestRules_Lines(t *testing.T) {
	t.Run("reaching the target ends the match for the most lines", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeLines, 10, 20)
		p1, p2 := &stubEngine{stats: game.Stats{Lines: 5}}, &stubEngine{stats: game.Stats{Lines: 3}}

		// When
		decision, over := rules.Evaluate(time.Now(), engines(p1, p2))

		// Then
		require.True(t, over)
		assert.Equal(t, "P1", decision.Winner)
		assert.Equal(t, int64(10), decision.WinnerUserID)
		assert.Equal(t, map[string]int{"P1": 5, "P2": 3}, decision.Lines)
	})

	t.Run("both on the target is a draw", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeLines, 10, 20)

		// When
		decision, over := rules.Evaluate(time.Now(), engines(
			&stubEngine{stats: game.Stats{Lines: 6}},
			&stubEngine{stats: game.Stats{Lines: 6}},
		))

		// Then
		require.True(t, over)
		assert.True(t, decision.IsDraw())
	})

	t.Run("below the target the match continues", func(t *testing.T) {
		// Given
		rules := newRules(config.ModeLines, 10, 20)

		// When
		_, over := rules.Evaluate(time.Now(), engines(&stubEngine{stats: game.Stats{Lines: 4}}, &stubEngine{}))

		// Then
		assert.False(t, over)
	})
}
