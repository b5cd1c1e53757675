package sampler

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/hmc"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/metric"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// RunChains is the entry point for a full multi-chain run. It validates the
// configuration, resolves the metric kind to its static specialization,
// builds every chain through the factory, and runs them all to completion.
// Failures before any chain starts are configuration errors; failures during
// a chain's run abort the remaining chains.
func RunChains(ctx context.Context, m model.Model, args *Args,
	writers []writer.ChainSet, log logging.Logger) error {
	if err := args.Validate(); err != nil {
		return err
	}
	if m.NumUnconstrainedParams() == 0 {
		return errors.Errorf("Model %s has no unconstrained parameters to sample", m.Name())
	}
	if len(writers) != args.NumChains {
		return errors.Errorf("Got %d writer sets for %d chains", len(writers), args.NumChains)
	}
	for i := range writers {
		if writers[i].Samples == nil {
			return errors.Errorf("Chain %d has no sample writer - the sample sink is mandatory", i+1)
		}
	}

	initCtxs, err := loadPerChainContexts(args.InitFiles, args.NumChains)
	if err != nil {
		return errors.Wrap(err, "Could not read initial value files")
	}
	metricCtxs, err := loadPerChainContexts(args.MetricFiles, args.NumChains)
	if err != nil {
		return errors.Wrap(err, "Could not read metric files")
	}

	initWriters := make([]writer.RowWriter, args.NumChains)
	for i := range writers {
		initWriters[i] = writers[i].StartParams
	}

	dim := m.NumUnconstrainedParams()

	// Exhaustive dispatch over the metric kinds. Each arm binds the factory
	// and the runner to the same concrete sampler type; anything outside the
	// three kinds fails before any chain setup begins.
	switch args.Metric {
	case metric.UnitE:
		cfg, err := loadChains(m, args, initCtxs, metricCtxs, initWriters, log,
			func(chain int, rng *rand.Generator, _ data.Context) (*hmc.Unit, error) {
				return hmc.NewUnit(m, rng), nil
			})
		if err != nil {
			return err
		}
		return runAll(ctx, cfg, args, writers, log)

	case metric.DiagE:
		cfg, err := loadChains(m, args, initCtxs, metricCtxs, initWriters, log,
			func(chain int, rng *rand.Generator, metricCtx data.Context) (*hmc.Diag, error) {
				s := hmc.NewDiag(m, rng)
				inv, err := metric.ReadDiag(metricCtx, dim, log)
				if err != nil {
					return nil, err
				}
				if err := s.SetMetric(inv); err != nil {
					return nil, err
				}
				s.SetWindowParams(args.NumWarmup, args.InitBuffer, args.TermBuffer, args.Window, log)
				return s, nil
			})
		if err != nil {
			return err
		}
		return runAll(ctx, cfg, args, writers, log)

	case metric.DenseE:
		cfg, err := loadChains(m, args, initCtxs, metricCtxs, initWriters, log,
			func(chain int, rng *rand.Generator, metricCtx data.Context) (*hmc.Dense, error) {
				s := hmc.NewDense(m, rng)
				inv, err := metric.ReadDense(metricCtx, dim, log)
				if err != nil {
					return nil, err
				}
				if err := s.SetMetric(inv); err != nil {
					return nil, err
				}
				s.SetWindowParams(args.NumWarmup, args.InitBuffer, args.TermBuffer, args.Window, log)
				return s, nil
			})
		if err != nil {
			return err
		}
		return runAll(ctx, cfg, args, writers, log)
	}

	return errors.Errorf("Unknown metric type %d", int(args.Metric))
}

// runAll executes every configured chain. A single chain runs directly;
// multiple chains run sequentially unless the caller opted into the parallel
// policy.
func runAll[S Adaptive](ctx context.Context, cfg *Config[S], args *Args,
	writers []writer.ChainSet, log logging.Logger) error {
	if args.NumChains == 1 {
		return runOne(ctx, cfg, 0, args, writers[0], log)
	}
	if args.ParallelChains {
		return runParallel(ctx, cfg, args, writers, log)
	}

	for i := range cfg.chains {
		log.Infof("Starting chain %d of %d", i+1, args.NumChains)
		if err := runOne(ctx, cfg, i, args, writers[i], log); err != nil {
			return err
		}
		log.Infof("Completed chain %d", i+1)
	}
	log.Infof("All %d chains completed", args.NumChains)
	return nil
}

// runOne wires one chain's writers (substituting discard sinks for the
// optional outputs) and hands control to the chain's sampler.
func runOne[S Adaptive](ctx context.Context, cfg *Config[S], chain int,
	args *Args, ws writer.ChainSet, log logging.Logger) error {
	var diagW writer.RowWriter = &writer.Discard{}
	if ws.Diagnostics != nil {
		diagW = ws.Diagnostics
	}
	var metricW writer.RecordWriter = &writer.DiscardRecord{}
	if ws.Metric != nil {
		metricW = ws.Metric
	}

	st := &cfg.chains[chain]
	err := st.sampler.Run(ctx, st.init, args.NumWarmup, args.NumSamples,
		args.Thin, args.Refresh, args.SaveWarmup, log,
		ws.Samples, diagW, metricW, chain+1, args.NumChains)
	return errors.Wrapf(err, "Chain %d failed", chain+1)
}

// runParallel runs every chain in its own goroutine. Chains share nothing
// but the read-only model and the logger, so no synchronization beyond the
// error slot is needed. In-flight siblings are not cancelled when one chain
// fails; the aggregate call reports the first failure.
func runParallel[S Adaptive](ctx context.Context, cfg *Config[S], args *Args,
	writers []writer.ChainSet, log logging.Logger) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := range cfg.chains {
		wg.Add(1)
		go func(chain int) {
			defer wg.Done()

			log.Infof("Starting chain %d of %d", chain+1, args.NumChains)
			err := runOne(ctx, cfg, chain, args, writers[chain], log)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			log.Infof("Completed chain %d", chain+1)
		}(i)
	}

	wg.Wait()
	if firstErr == nil {
		log.Infof("All %d chains completed", args.NumChains)
	}
	return firstErr
}
