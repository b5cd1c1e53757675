package hmc

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/writer"
)

// point is the sampler's working state: position, momentum, and the cached
// density/gradient at the position.
type point struct {
	q    []float64
	p    []float64
	grad []float64
	lp   float64
}

func newPoint(dim int) *point {
	return &point{
		q:    make([]float64, dim),
		p:    make([]float64, dim),
		grad: make([]float64, dim),
	}
}

func (z *point) copyFrom(o *point) {
	copy(z.q, o.q)
	copy(z.p, o.p)
	copy(z.grad, o.grad)
	z.lp = o.lp
}

// runLoop is the adaptive sampling loop shared by all three specializations.
// Draws are produced and written strictly in iteration order; the context is
// checked between transitions.
func (b *base) runLoop(ctx context.Context, g geometry, init []float64,
	warmup, samples, thin, refresh int, saveWarmup bool, log logging.Logger,
	sampleW, diagW writer.RowWriter, metricW writer.RecordWriter,
	chainID, numChains int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if thin < 1 {
		thin = 1
	}

	dim := b.m.NumUnconstrainedParams()
	if len(init) != dim {
		return errors.Errorf("Initial vector has %d params, model wants %d", len(init), dim)
	}

	names := b.m.UnconstrainedParamNames()
	if err := writeHeaders(names, sampleW, diagW); err != nil {
		return err
	}

	cur := newPoint(dim)
	copy(cur.q, init)
	lp, grad, err := b.m.LogDensityGradient(cur.q)
	if err != nil {
		return errors.Wrap(err, "Could not evaluate model at the initial value")
	}
	cur.lp = lp
	copy(cur.grad, grad)

	b.da.restart(b.da.mu)
	windowEnds := b.slowWindowEnds()
	nextWindow := 0

	total := warmup + samples
	velocity := make([]float64, dim)
	prop := newPoint(dim)
	wroteMetric := false

	for it := 0; it < total; it++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "Chain %d interrupted at iteration %d", chainID, it+1)
		}

		adapting := it < warmup

		// The metric record captures the state adaptation froze at, so it goes
		// out as soon as warmup ends.
		if !adapting && !wroteMetric {
			if err := g.record(metricW, b.stepsize); err != nil {
				return errors.Wrapf(err, "Chain %d could not record adapted metric", chainID)
			}
			wroteMetric = true
		}

		progress(log, chainID, numChains, it, warmup, total, refresh)

		accept, nLeap, divergent, energy, err := b.transition(g, cur, prop, velocity)
		if err != nil {
			return errors.Wrapf(err, "Chain %d failed at iteration %d", chainID, it+1)
		}

		if adapting {
			b.stepsize = b.da.learn(accept)

			if b.inSlowWindow(it) {
				g.learn(cur.q)
			}
			if nextWindow < len(windowEnds) && it+1 == windowEnds[nextWindow] {
				if err := g.updateMetric(log); err != nil {
					return errors.Wrapf(err, "Chain %d metric adaptation failed", chainID)
				}
				b.da.restart(math.Log(10.0 * b.stepsize))
				nextWindow++
			}
			if it+1 == warmup {
				b.stepsize = b.da.complete()
			}
		}

		save := !adapting || saveWarmup
		phaseIt := it
		if !adapting {
			phaseIt = it - warmup
		}
		if save && phaseIt%thin == 0 {
			if err := writeDraw(sampleW, diagW, cur, accept, b.stepsize, nLeap, divergent, energy); err != nil {
				return errors.Wrapf(err, "Chain %d could not write draw %d", chainID, it+1)
			}
		}
	}

	if !wroteMetric {
		if err := g.record(metricW, b.stepsize); err != nil {
			return errors.Wrapf(err, "Chain %d could not record adapted metric", chainID)
		}
	}

	return nil
}

// transition runs one jittered-stepsize leapfrog trajectory with a Metropolis
// accept, updating cur in place on acceptance.
func (b *base) transition(g geometry, cur, prop *point, velocity []float64) (accept float64, nLeap int, divergent bool, energy float64, err error) {
	eps := b.stepsize
	if b.jitter > 0 {
		eps *= 1.0 + b.jitter*(2.0*b.rng.Float64()-1.0)
	}

	g.sampleMomentum(b.rng, cur.p)
	h0 := -cur.lp + g.kinetic(cur.p)

	depth := b.maxDepth
	if depth > maxDoublings {
		depth = maxDoublings
	}
	nLeap = 1 + b.rng.Intn(1<<uint(depth))

	prop.copyFrom(cur)

	// Leapfrog: half step on momentum, alternate full steps, half step to end
	halfStep(prop, eps/2)
	for step := 0; step < nLeap; step++ {
		g.velocity(prop.p, velocity)
		for i := range prop.q {
			prop.q[i] += eps * velocity[i]
		}

		lp, grad, gerr := b.m.LogDensityGradient(prop.q)
		if gerr != nil {
			return 0, nLeap, false, h0, errors.Wrap(gerr, "Gradient evaluation failed mid-trajectory")
		}
		prop.lp = lp
		copy(prop.grad, grad)

		if step+1 < nLeap {
			halfStep(prop, eps)
		} else {
			halfStep(prop, eps/2)
		}
	}

	h1 := -prop.lp + g.kinetic(prop.p)
	energy = h1

	delta := h0 - h1
	if math.IsNaN(delta) || h1-h0 > maxEnergyError {
		// Divergent trajectory: reject outright
		return 0, nLeap, true, energy, nil
	}

	accept = math.Exp(delta)
	if accept > 1 {
		accept = 1
	}
	if b.rng.Float64() < accept {
		cur.copyFrom(prop)
	}
	return accept, nLeap, false, energy, nil
}

func halfStep(z *point, eps float64) {
	for i := range z.p {
		z.p[i] += eps * z.grad[i]
	}
}

func writeHeaders(names []string, sampleW, diagW writer.RowWriter) error {
	head := append([]string{"lp__", "accept_stat__", "stepsize__", "n_leapfrog__", "divergent__", "energy__"}, names...)
	if err := sampleW.Header(head); err != nil {
		return errors.Wrap(err, "Could not write sample header")
	}

	dhead := []string{"lp__", "accept_stat__", "divergent__"}
	dhead = append(dhead, names...)
	for _, n := range names {
		dhead = append(dhead, "g_"+n)
	}
	if err := diagW.Header(dhead); err != nil {
		return errors.Wrap(err, "Could not write diagnostic header")
	}
	return nil
}

func writeDraw(sampleW, diagW writer.RowWriter, cur *point, accept, stepsize float64, nLeap int, divergent bool, energy float64) error {
	div := 0.0
	if divergent {
		div = 1.0
	}

	row := make([]float64, 0, 6+len(cur.q))
	row = append(row, cur.lp, accept, stepsize, float64(nLeap), div, energy)
	row = append(row, cur.q...)
	if err := sampleW.Row(row); err != nil {
		return err
	}

	drow := make([]float64, 0, 3+2*len(cur.q))
	drow = append(drow, cur.lp, accept, div)
	drow = append(drow, cur.q...)
	drow = append(drow, cur.grad...)
	return diagW.Row(drow)
}

func progress(log logging.Logger, chainID, numChains, it, warmup, total, refresh int) {
	if refresh <= 0 {
		return
	}
	if it%refresh != 0 && it+1 != total && it+1 != warmup {
		return
	}

	phase := "Sampling"
	if it < warmup {
		phase = "Warmup"
	}
	log.Infof("Chain [%d/%d] Iteration: %d / %d (%s)", chainID, numChains, it+1, total, phase)
}
