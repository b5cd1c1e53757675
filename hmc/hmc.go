// Package hmc implements the adaptive Hamiltonian samplers the run
// orchestration drives. Three structurally distinct samplers exist, one per
// metric kind: Unit (fixed identity geometry), Diag (adapting diagonal
// inverse metric), and Dense (adapting dense inverse metric). The
// orchestration layer only sees them through its Adaptive interface.
package hmc

import (
	"math"

	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// Stan-lineage adaptation defaults. Callers normally override all of these
// through the setters.
const (
	DefaultStepsize = 1.0
	DefaultMaxDepth = 10
	DefaultDelta    = 0.8
	DefaultGamma    = 0.05
	DefaultKappa    = 0.75
	DefaultT0       = 10.0
)

// maxEnergyError marks a transition divergent.
const maxEnergyError = 1000.0

// maxDoublings caps the trajectory length at 2^maxDoublings leapfrog steps
// regardless of the configured depth.
const maxDoublings = 10

// dualAverage is Nesterov dual-averaging stepsize adaptation.
type dualAverage struct {
	mu    float64
	delta float64
	gamma float64
	kappa float64
	t0    float64

	counter   int
	hBar      float64
	logEpsBar float64
}

// restart re-anchors the adaptation at mu and clears accumulated state.
func (d *dualAverage) restart(mu float64) {
	d.mu = mu
	d.counter = 0
	d.hBar = 0
	d.logEpsBar = 0
}

// learn folds one acceptance statistic in and returns the next stepsize.
func (d *dualAverage) learn(accept float64) float64 {
	d.counter++
	n := float64(d.counter)

	eta := 1.0 / (n + d.t0)
	d.hBar = (1.0-eta)*d.hBar + eta*(d.delta-accept)

	logEps := d.mu - math.Sqrt(n)/d.gamma*d.hBar
	w := math.Pow(n, -d.kappa)
	d.logEpsBar = w*logEps + (1.0-w)*d.logEpsBar

	return math.Exp(logEps)
}

// complete returns the smoothed stepsize to freeze for sampling.
func (d *dualAverage) complete() float64 {
	return math.Exp(d.logEpsBar)
}

// geometry is what distinguishes the three sampler specializations: momentum
// resampling, kinetic energy, and (for the adapting kinds) the warmup metric
// estimate.
type geometry interface {
	kindName() string
	sampleMomentum(rng *rand.Generator, p []float64)
	velocity(p []float64, v []float64)
	kinetic(p []float64) float64
	learn(q []float64)
	updateMetric(log logging.Logger) error
	record(rw writer.RecordWriter, stepsize float64) error
}

// base carries everything the three samplers share: the model, the chain's
// random stream, tuning knobs, and the adaptation machinery.
type base struct {
	m   model.Model
	rng *rand.Generator

	stepsize float64
	jitter   float64
	maxDepth int

	da dualAverage

	// slow-adaptation window schedule; only Diag/Dense expose the setter
	warmup     int
	initBuffer int
	termBuffer int
	window     int
	windowed   bool
}

func newBase(m model.Model, rng *rand.Generator) base {
	b := base{
		m:        m,
		rng:      rng,
		stepsize: DefaultStepsize,
		maxDepth: DefaultMaxDepth,
	}
	b.da = dualAverage{
		mu:    math.Log(10.0 * DefaultStepsize),
		delta: DefaultDelta,
		gamma: DefaultGamma,
		kappa: DefaultKappa,
		t0:    DefaultT0,
	}
	return b
}

// SetNominalStepsize sets the starting leapfrog stepsize.
func (b *base) SetNominalStepsize(eps float64) {
	if eps > 0 {
		b.stepsize = eps
	}
}

// SetStepsizeJitter sets the per-transition stepsize jitter fraction in [0,1].
func (b *base) SetStepsizeJitter(jitter float64) {
	if jitter >= 0 && jitter <= 1 {
		b.jitter = jitter
	}
}

// SetMaxDepth bounds the trajectory length at 2^depth leapfrog steps.
func (b *base) SetMaxDepth(depth int) {
	if depth > 0 {
		b.maxDepth = depth
	}
}

// SetAdaptParams sets the dual-averaging constants: target acceptance
// statistic delta, regularization scale gamma, relaxation exponent kappa,
// iteration offset t0, and the anchor mu.
func (b *base) SetAdaptParams(delta, gamma, kappa, t0, mu float64) {
	b.da.delta = delta
	b.da.gamma = gamma
	b.da.kappa = kappa
	b.da.t0 = t0
	b.da.mu = mu
}

// setWindow installs the warmup windowing schedule, shrinking the buffers
// when they do not fit the warmup length the way Stan does.
func (b *base) setWindow(warmup, initBuffer, termBuffer, window int, log logging.Logger) {
	if warmup < 0 {
		warmup = 0
	}

	if initBuffer+termBuffer+window > warmup {
		log.Warnf("Warmup of %d is too short for the requested windows; reducing buffers", warmup)
		initBuffer = int(0.15 * float64(warmup))
		termBuffer = int(0.10 * float64(warmup))
		window = warmup - initBuffer - termBuffer
	}

	b.warmup = warmup
	b.initBuffer = initBuffer
	b.termBuffer = termBuffer
	b.window = window
	b.windowed = window > 0
	if !b.windowed && warmup > 0 {
		log.Warnf("Warmup of %d leaves no slow-adaptation window; metric will not adapt", warmup)
	}
}

// slowWindowEnds returns the warmup iterations (exclusive upper bounds) at
// which a slow window closes and the metric updates. Window widths double,
// and the final window stretches to the terminal buffer.
func (b *base) slowWindowEnds() []int {
	if !b.windowed {
		return nil
	}

	var ends []int
	start := b.initBuffer
	size := b.window
	last := b.warmup - b.termBuffer
	for {
		end := start + size
		if end+2*size > last {
			ends = append(ends, last)
			return ends
		}
		ends = append(ends, end)
		start = end
		size *= 2
	}
}

// inSlowWindow reports whether warmup iteration it feeds the metric estimate.
func (b *base) inSlowWindow(it int) bool {
	return b.windowed && it >= b.initBuffer && it < b.warmup-b.termBuffer
}
