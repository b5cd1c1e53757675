// Package rand provides the per-chain random streams used by the samplers.
// Each chain owns its Generator exclusively for the lifetime of a run.
package rand

import (
	mrand "math/rand"

	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
)

// A Generator wraps a Mersenne twister as a math/rand source so callers get
// Float64/NormFloat64/etc. without re-deriving them.
type Generator struct {
	*mrand.Rand
	seed  int64
	chain int
}

// NewGenerator starts a new PRNG based on the given seed. Equivalent to
// NewChainGenerator for chain 0.
func NewGenerator(seed int64) (*Generator, error) {
	return NewChainGenerator(seed, 0)
}

// NewChainGenerator returns the random stream for one chain of a multi-chain
// run. The twister is seeded from the slice {seed, chain+1} so that distinct
// chains under the same global seed never share a stream, while the same
// (seed, chain) pair always reproduces the same stream.
func NewChainGenerator(seed int64, chain int) (*Generator, error) {
	if chain < 0 {
		return nil, errors.Errorf("Invalid chain index %d for random stream", chain)
	}

	mt := mt19937.New()
	mt.SeedFromSlice([]uint64{uint64(seed), uint64(chain) + 1})

	g := &Generator{
		Rand:  mrand.New(mt),
		seed:  seed,
		chain: chain,
	}

	return g, nil
}

// Seed returns the global seed this stream was derived from.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Chain returns the chain index this stream was derived for.
func (g *Generator) Chain() int {
	return g.chain
}
