package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/game"
)

// WinnerNone is the verdict of a solo survival match.
const WinnerNone = "none"

const (
	reasonToppedOut     = "topped out"
	reasonAllToppedOut  = "all topped out"
	reasonTimeUp        = "time up"
	reasonTargetLines   = "reached target lines"
	reasonAllDisconnect = "all players disconnected"
)

// Rules judges a match for a fixed roster. Sides index both the roster and the engines.
type Rules struct {
	mode        string
	duration    time.Duration
	targetLines int

	users     []int64
	forfeited []bool
	started   time.Time
}

func NewRules(conf *config.Session, users []int64) *Rules {
	return &Rules{
		mode:        conf.Mode,
		duration:    time.Duration(conf.TimedSeconds) * time.Second,
		targetLines: conf.TargetLines,
		users:       users,
		forfeited:   make([]bool, len(users)),
	}
}

// Label is the public name of a side, P1 for side 0.
func Label(side int) string {
	return fmt.Sprintf("P%d", side+1)
}

// Start marks the moment timed matches are measured from.
func (that *Rules) Start(now time.Time) {
	that.started = now
}

// Forfeit records that side left, so verdicts can say so.
func (that *Rules) Forfeit(side int) {
	if side >= 0 && side < len(that.forfeited) {
		that.forfeited[side] = true
	}
}

// Evaluate returns the verdict once the match is over.
func (that *Rules) Evaluate(now time.Time, engines []game.Engine) (*entity.WinDecision, bool) {
	if len(engines) == 0 {
		return nil, false
	}

	switch that.mode {
	case config.ModeTimed:
		return that.evaluateTimed(now, engines)
	case config.ModeLines:
		return that.evaluateLines(engines)
	default:
		return that.evaluateSurvival(engines)
	}
}

func (that *Rules) evaluateSurvival(engines []game.Engine) (*entity.WinDecision, bool) {
	alive := aliveSides(engines)

	if len(engines) == 1 {
		if len(alive) == 1 {
			return nil, false
		}

		return that.decide(WinnerNone, -1, that.terminalReason(engines), engines), true
	}

	switch len(alive) {
	case 0:
		return that.decide(entity.Draw, -1, reasonAllToppedOut, engines), true
	case 1:
		return that.decide(Label(alive[0]), alive[0], that.terminalReason(engines), engines), true
	default:
		return nil, false
	}
}

func (that *Rules) evaluateTimed(now time.Time, engines []game.Engine) (*entity.WinDecision, bool) {
	if that.allForfeited() {
		return that.decide(entity.Draw, -1, reasonAllDisconnect, engines), true
	}

	if that.started.IsZero() || now.Sub(that.started) < that.duration {
		return nil, false
	}

	return that.highest(reasonTimeUp, engines, func(stats game.Stats) int { return stats.Score }), true
}

func (that *Rules) evaluateLines(engines []game.Engine) (*entity.WinDecision, bool) {
	if that.allForfeited() {
		return that.decide(entity.Draw, -1, reasonAllDisconnect, engines), true
	}

	reason := reasonTargetLines

	switch {
	case that.reachedTarget(engines):
	case len(aliveSides(engines)) == 0:
		reason = reasonAllToppedOut
	default:
		return nil, false
	}

	return that.highest(reason, engines, func(stats game.Stats) int { return stats.Lines }), true
}

func (that *Rules) reachedTarget(engines []game.Engine) bool {
	for _, engine := range engines {
		if engine.Stats().Lines >= that.targetLines {
			return true
		}
	}

	return false
}

// highest awards the side with the strictly greatest metric; a shared top is a draw.
func (that *Rules) highest(reason string, engines []game.Engine, metric func(game.Stats) int) *entity.WinDecision {
	best, bestSide, tied := 0, -1, false

	for side, engine := range engines {
		value := metric(engine.Stats())

		switch {
		case bestSide < 0 || value > best:
			best, bestSide, tied = value, side, false
		case value == best:
			tied = true
		}
	}

	if tied {
		return that.decide(entity.Draw, -1, reason, engines)
	}

	return that.decide(Label(bestSide), bestSide, reason, engines)
}

func (that *Rules) allForfeited() bool {
	for _, forfeited := range that.forfeited {
		if !forfeited {
			return false
		}
	}

	return true
}

// terminalReason names every finished side, e.g. "P1 topped out" or "P2 disconnected".
func (that *Rules) terminalReason(engines []game.Engine) string {
	parts := make([]string, 0, len(engines))

	for side, engine := range engines {
		if !engine.IsTerminal() {
			continue
		}

		if that.forfeited[side] {
			parts = append(parts, Label(side)+" disconnected")
			continue
		}

		parts = append(parts, Label(side)+" "+reasonToppedOut)
	}

	if len(engines) == 1 && len(parts) == 1 && !that.forfeited[0] {
		return reasonToppedOut
	}

	return strings.Join(parts, ", ")
}

func (that *Rules) decide(winner string, side int, reason string, engines []game.Engine) *entity.WinDecision {
	decision := &entity.WinDecision{
		Winner: winner,
		Reason: reason,
		Scores: make(map[string]int, len(engines)),
		Lines:  make(map[string]int, len(engines)),
	}

	if side >= 0 && side < len(that.users) {
		decision.WinnerUserID = that.users[side]
	}

	for i, engine := range engines {
		stats := engine.Stats()
		decision.Scores[Label(i)] = stats.Score
		decision.Lines[Label(i)] = stats.Lines
	}

	return decision
}

func aliveSides(engines []game.Engine) []int {
	alive := make([]int, 0, len(engines))

	for side, engine := range engines {
		if !engine.IsTerminal() {
			alive = append(alive, side)
		}
	}

	return alive
}
