package sampler

import (
	"github.com/pkg/errors"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/metric"
)

// Args is the full run configuration for a multi-chain HMC run. Defaults
// follow the reference NUTS tuning.
type Args struct {
	// Chain options
	NumChains  int
	RandomSeed int64

	// Model options
	InitRadius float64
	DataFile   string
	InitFiles  []string

	// HMC options
	NumWarmup      int
	NumSamples     int
	Thin           int
	Refresh        int
	Metric         metric.Kind
	MetricFiles    []string
	Stepsize       float64
	StepsizeJitter float64
	MaxDepth       int

	// Output options
	OutputDir       string
	SaveStartParams bool
	SaveWarmup      bool
	SaveDiagnostics bool
	SaveMetric      bool

	// Adaptation options
	Delta      float64
	Gamma      float64
	Kappa      float64
	T0         float64
	InitBuffer int
	TermBuffer int
	Window     int

	// Opt-in concurrent chain execution. Only safe when the model and logger
	// tolerate concurrent use; the builtin models do.
	ParallelChains bool
}

// DefaultArgs returns the standard single-chain diagonal-metric
// configuration.
func DefaultArgs() Args {
	return Args{
		NumChains:  1,
		RandomSeed: 1,
		InitRadius: 2.0,
		NumWarmup:  1000,
		NumSamples: 1000,
		Thin:       1,
		Refresh:    100,
		Metric:     metric.DiagE,
		Stepsize:   1.0,
		MaxDepth:   10,
		Delta:      0.8,
		Gamma:      0.05,
		Kappa:      0.75,
		T0:         10.0,
		InitBuffer: 75,
		TermBuffer: 50,
		Window:     25,
	}
}

// Validate rejects configurations that can never run. This happens before
// any chain setup - a bad chain count or metric kind must not leave partial
// side effects behind.
func (a *Args) Validate() error {
	if a.NumChains < 1 {
		return errors.Errorf("Chain count must be at least 1, got %d", a.NumChains)
	}
	if !a.Metric.Valid() {
		return errors.Errorf("Unknown metric type %d", int(a.Metric))
	}
	if a.NumWarmup < 0 || a.NumSamples < 0 {
		return errors.Errorf("Iteration counts must be non-negative (warmup %d, samples %d)", a.NumWarmup, a.NumSamples)
	}
	if a.Thin < 1 {
		return errors.Errorf("Thinning stride must be at least 1, got %d", a.Thin)
	}
	if a.InitRadius < 0 {
		return errors.Errorf("Initialization radius must be non-negative, got %g", a.InitRadius)
	}
	if a.Stepsize <= 0 {
		return errors.Errorf("Stepsize must be positive, got %g", a.Stepsize)
	}
	if a.StepsizeJitter < 0 || a.StepsizeJitter > 1 {
		return errors.Errorf("Stepsize jitter must be in [0,1], got %g", a.StepsizeJitter)
	}
	if a.MaxDepth < 1 {
		return errors.Errorf("Max depth must be at least 1, got %d", a.MaxDepth)
	}

	if _, err := expandPerChain(a.InitFiles, a.NumChains); err != nil {
		return errors.Wrap(err, "Initial value files")
	}
	if _, err := expandPerChain(a.MetricFiles, a.NumChains); err != nil {
		return errors.Wrap(err, "Metric files")
	}
	return nil
}

// expandPerChain applies 0-or-1-or-N semantics to a per-chain file list:
// none at all, one shared by every chain, or exactly one per chain.
func expandPerChain(files []string, numChains int) ([]string, error) {
	switch len(files) {
	case 0:
		return make([]string, numChains), nil
	case 1:
		out := make([]string, numChains)
		for i := range out {
			out[i] = files[0]
		}
		return out, nil
	case numChains:
		out := make([]string, numChains)
		copy(out, files)
		return out, nil
	}
	return nil, errors.Errorf("Got %d files for %d chains - want none, one, or one per chain", len(files), numChains)
}

// loadPerChainContexts reads one data context per chain from an expanded
// file list. Empty paths load as empty contexts.
func loadPerChainContexts(files []string, numChains int) ([]data.Context, error) {
	expanded, err := expandPerChain(files, numChains)
	if err != nil {
		return nil, err
	}

	ctxs := make([]data.Context, numChains)
	for i, fn := range expanded {
		ctx, err := data.FromFile(fn)
		if err != nil {
			return nil, errors.Wrapf(err, "Chain %d", i+1)
		}
		ctxs[i] = ctx
	}
	return ctxs, nil
}
