// Package game defines what a session runtime needs from a per-player engine,
// so any conforming game can be hosted without bespoke wiring.
package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownEngine = errors.New("unknown engine")

// Stats are the tallies win conditions are judged on.
type Stats struct {
	Score int `json:"score"`
	Lines int `json:"lines"`
}

// Engine is one player's deterministic game state. Implementations are driven by a
// single goroutine and need not be safe for concurrent use.
type Engine interface {
	// ApplyInput applies a client action. Illegal or unknown actions are no-ops.
	ApplyInput(action string)
	// Tick advances the engine one scheduler step.
	Tick()
	// Snapshot returns a JSON-serializable view; compact views are meant for opponents.
	Snapshot(compact bool) any
	IsTerminal() bool
	// Forfeit marks the engine terminal, e.g. when its player disconnects.
	Forfeit()
	Stats() Stats
}

// Factory builds an engine from the room-level seed.
type Factory func(seed int64) Engine

// Registry maps engine names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (that *Registry) Register(name string, factory Factory) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.factories[name] = factory
}

func (that *Registry) Lookup(name string) (Factory, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	factory, ok := that.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}

	return factory, nil
}

func (that *Registry) Names() []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	names := make([]string, 0, len(that.factories))
	for name := range that.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
