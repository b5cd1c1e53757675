package hmc

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/estimator"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// Diag adapts a diagonal inverse metric during warmup.
type Diag struct {
	base
	geom diagGeometry
}

// NewDiag creates a diagonal-metric sampler with a unit starting metric.
func NewDiag(m model.Model, rng *rand.Generator) *Diag {
	dim := m.NumUnconstrainedParams()
	g := diagGeometry{
		inv:   make([]float64, dim),
		scale: make([]float64, dim),
		est:   estimator.NewWelford(dim),
	}
	for i := range g.inv {
		g.inv[i] = 1.0
		g.scale[i] = 1.0
	}

	return &Diag{
		base: newBase(m, rng),
		geom: g,
	}
}

// SetMetric installs a precomputed diagonal inverse metric.
func (s *Diag) SetMetric(inv []float64) error {
	return s.geom.setMetric(inv)
}

// Metric returns a copy of the current inverse metric.
func (s *Diag) Metric() []float64 {
	out := make([]float64, len(s.geom.inv))
	copy(out, s.geom.inv)
	return out
}

// SetWindowParams installs the warmup windowing schedule.
func (s *Diag) SetWindowParams(warmup, initBuffer, termBuffer, window int, log logging.Logger) {
	s.setWindow(warmup, initBuffer, termBuffer, window, log)
}

// Run executes the chain's adaptive sampling loop.
func (s *Diag) Run(ctx context.Context, init []float64,
	warmup, samples, thin, refresh int, saveWarmup bool, log logging.Logger,
	sampleW, diagW writer.RowWriter, metricW writer.RecordWriter,
	chainID, numChains int) error {
	return s.runLoop(ctx, &s.geom, init, warmup, samples, thin, refresh,
		saveWarmup, log, sampleW, diagW, metricW, chainID, numChains)
}

type diagGeometry struct {
	inv   []float64 // inverse metric diagonal
	scale []float64 // cached 1/sqrt(inv) for momentum draws
	est   *estimator.Welford
}

func (g *diagGeometry) setMetric(inv []float64) error {
	if len(inv) != len(g.inv) {
		return errors.Errorf("Diagonal metric has %d entries, sampler wants %d", len(inv), len(g.inv))
	}
	for i, v := range inv {
		if !(v > 0) || math.IsInf(v, 0) {
			return errors.Errorf("Diagonal metric entry %d must be finite and positive, got %g", i, v)
		}
	}

	copy(g.inv, inv)
	for i, v := range g.inv {
		g.scale[i] = 1.0 / math.Sqrt(v)
	}
	return nil
}

func (g *diagGeometry) kindName() string { return "diag_e" }

func (g *diagGeometry) sampleMomentum(rng *rand.Generator, p []float64) {
	for i := range p {
		p[i] = rng.NormFloat64() * g.scale[i]
	}
}

func (g *diagGeometry) velocity(p []float64, v []float64) {
	for i := range p {
		v[i] = g.inv[i] * p[i]
	}
}

func (g *diagGeometry) kinetic(p []float64) float64 {
	k := 0.0
	for i, v := range p {
		k += g.inv[i] * v * v
	}
	return 0.5 * k
}

func (g *diagGeometry) learn(q []float64) {
	g.est.Add(q)
}

func (g *diagGeometry) updateMetric(log logging.Logger) error {
	if g.est.Count() < 2 {
		log.Warn("Slow adaptation window closed with too few draws; keeping current metric")
		g.est.Reset()
		return nil
	}

	if err := g.setMetric(g.est.RegularizedVariance()); err != nil {
		return errors.Wrap(err, "Adapted diagonal metric is invalid")
	}
	g.est.Reset()
	return nil
}

func (g *diagGeometry) record(rw writer.RecordWriter, stepsize float64) error {
	if err := rw.Begin(); err != nil {
		return err
	}
	if err := rw.Field("metric_type", g.kindName()); err != nil {
		return err
	}
	if err := rw.Field("stepsize", stepsize); err != nil {
		return err
	}
	if err := rw.Field("inv_metric", g.inv); err != nil {
		return err
	}
	return rw.End()
}
