package tetris

import (
	"math/rand/v2"
	"slices"
)

// BagRule names the randomizer advertised to clients.
const BagRule = "7bag"

// Bag hands out every shape exactly once per shuffled batch. The same seed always
// yields the same sequence.
type Bag struct {
	rng     *rand.Rand
	pending []Shape
}

func NewBag(seed int64) *Bag {
	return &Bag{
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)), //nolint: gosec // determinism, not secrecy
	}
}

func (that *Bag) Next() Shape {
	if len(that.pending) == 0 {
		that.pending = slices.Clone(Order)
		that.rng.Shuffle(len(that.pending), func(i, j int) {
			that.pending[i], that.pending[j] = that.pending[j], that.pending[i]
		})
	}

	shape := that.pending[0]
	that.pending = that.pending[1:]

	return shape
}
