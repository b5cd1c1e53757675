// Package sampler orchestrates multi-chain HMC runs: it resolves the
// configured metric kind to one of the statically distinct sampler
// specializations, builds one configured sampler per chain, and drives every
// chain's sampling loop against its own writer set.
package sampler

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// Adaptive is the opaque sampling capability one chain runs on. The three
// hmc specializations satisfy it; tests substitute fakes. Metric and window
// configuration are deliberately absent - they are kind-specific and happen
// inside the build closure that knows the concrete type.
type Adaptive interface {
	SetNominalStepsize(eps float64)
	SetStepsizeJitter(jitter float64)
	SetMaxDepth(depth int)
	SetAdaptParams(delta, gamma, kappa, t0, mu float64)
	Run(ctx context.Context, init []float64,
		warmup, samples, thin, refresh int, saveWarmup bool, log logging.Logger,
		sampleW, diagW writer.RowWriter, metricW writer.RecordWriter,
		chainID, numChains int) error
}

// chainState bundles everything one chain owns: its random stream, its
// starting point, and its configured sampler. Bundling keeps the "all
// per-chain collections have equal length" invariant structural.
type chainState[S Adaptive] struct {
	rng     *rand.Generator
	init    []float64
	sampler S
}

// Config is the homogeneous set of configured chains for one statically
// chosen specialization. It is built once, consumed by the runner once, and
// then discarded.
type Config[S Adaptive] struct {
	chains []chainState[S]
}

// NumChains returns the number of configured chains.
func (c *Config[S]) NumChains() int {
	return len(c.chains)
}

// buildFunc constructs and kind-configures one chain's sampler: constructor,
// metric application, and (diag/dense) window schedule.
type buildFunc[S Adaptive] func(chain int, rng *rand.Generator, metricCtx data.Context) (S, error)

// loadChains is the sampler factory. For each chain it derives the random
// stream, initializes the starting point, builds the sampler through the
// kind closure, and applies the tuning common to every kind. Any failure
// aborts the whole factory call with the chain identified - partial
// configurations never reach execution.
func loadChains[S Adaptive](m model.Model, args *Args,
	initCtxs, metricCtxs []data.Context, initWriters []writer.RowWriter,
	log logging.Logger, build buildFunc[S]) (*Config[S], error) {
	cfg := &Config[S]{
		chains: make([]chainState[S], 0, args.NumChains),
	}
	mu := math.Log(10.0 * args.Stepsize)

	for i := 0; i < args.NumChains; i++ {
		rng, err := rand.NewChainGenerator(args.RandomSeed, i)
		if err != nil {
			return nil, errors.Wrapf(err, "Chain %d: could not create random stream", i+1)
		}

		var iw writer.RowWriter = &writer.Discard{}
		if initWriters != nil && initWriters[i] != nil {
			iw = initWriters[i]
		}

		// Timing info is representative across chains, so only chain 1 emits it
		init, err := model.Initialize(m, initCtxs[i], rng, args.InitRadius, i == 0, log, iw)
		if err != nil {
			return nil, errors.Wrapf(err, "Chain %d: initialization failed", i+1)
		}

		s, err := build(i, rng, metricCtxs[i])
		if err != nil {
			return nil, errors.Wrapf(err, "Chain %d: sampler configuration failed", i+1)
		}

		s.SetNominalStepsize(args.Stepsize)
		s.SetStepsizeJitter(args.StepsizeJitter)
		s.SetMaxDepth(args.MaxDepth)
		s.SetAdaptParams(args.Delta, args.Gamma, args.Kappa, args.T0, mu)

		cfg.chains = append(cfg.chains, chainState[S]{
			rng:     rng,
			init:    init,
			sampler: s,
		})
	}

	return cfg, nil
}
