package session

import (
	"github.com/rocketscienceinc/blockarena-backend/internal/game"
)

// stubEngine turns inputs into outcomes so matches can be steered from a test client.
type stubEngine struct {
	stats    game.Stats
	terminal bool
	ticks    int
}

func (that *stubEngine) ApplyInput(action string) {
	if that.terminal {
		return
	}

	switch action {
	case "SCORE":
		that.stats.Score += 100
	case "LINE":
		that.stats.Lines++
	case "DIE":
		that.terminal = true
	}
}

func (that *stubEngine) Tick() {
	that.ticks++
}

func (that *stubEngine) Snapshot(compact bool) any {
	return map[string]any{"compact": compact, "score": that.stats.Score}
}

func (that *stubEngine) IsTerminal() bool {
	return that.terminal
}

func (that *stubEngine) Forfeit() {
	that.terminal = true
}

func (that *stubEngine) Stats() game.Stats {
	return that.stats
}

func stubFactory(int64) game.Engine {
	return &stubEngine{}
}

func engines(stubs ...*stubEngine) []game.Engine {
	out := make([]game.Engine, len(stubs))
	for i, stub := range stubs {
		out[i] = stub
	}

	return out
}
