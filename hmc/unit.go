package hmc

import (
	"context"

	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// Unit is the non-adapting sampler: identity metric, stepsize adaptation
// only. It has no metric setter and no windowing - there is nothing to adapt.
type Unit struct {
	base
	geom unitGeometry
}

// NewUnit creates a unit-metric sampler bound to the model and the chain's
// random stream.
func NewUnit(m model.Model, rng *rand.Generator) *Unit {
	return &Unit{
		base: newBase(m, rng),
		geom: unitGeometry{dim: m.NumUnconstrainedParams()},
	}
}

// Run executes the chain's adaptive sampling loop.
func (s *Unit) Run(ctx context.Context, init []float64,
	warmup, samples, thin, refresh int, saveWarmup bool, log logging.Logger,
	sampleW, diagW writer.RowWriter, metricW writer.RecordWriter,
	chainID, numChains int) error {
	return s.runLoop(ctx, &s.geom, init, warmup, samples, thin, refresh,
		saveWarmup, log, sampleW, diagW, metricW, chainID, numChains)
}

type unitGeometry struct {
	dim int
}

func (g *unitGeometry) kindName() string { return "unit_e" }

func (g *unitGeometry) sampleMomentum(rng *rand.Generator, p []float64) {
	for i := range p {
		p[i] = rng.NormFloat64()
	}
}

func (g *unitGeometry) velocity(p []float64, v []float64) {
	copy(v, p)
}

func (g *unitGeometry) kinetic(p []float64) float64 {
	k := 0.0
	for _, v := range p {
		k += v * v
	}
	return 0.5 * k
}

func (g *unitGeometry) learn(q []float64) {}

func (g *unitGeometry) updateMetric(log logging.Logger) error { return nil }

func (g *unitGeometry) record(rw writer.RecordWriter, stepsize float64) error {
	if err := rw.Begin(); err != nil {
		return err
	}
	if err := rw.Field("metric_type", g.kindName()); err != nil {
		return err
	}
	if err := rw.Field("stepsize", stepsize); err != nil {
		return err
	}
	ones := make([]float64, g.dim)
	for i := range ones {
		ones[i] = 1.0
	}
	if err := rw.Field("inv_metric", ones); err != nil {
		return err
	}
	return rw.End()
}
