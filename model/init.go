package model

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// initRetries bounds the random-initialization search for an in-support
// starting point.
const initRetries = 100

// ParamsKey is the context entry a full initial parameter vector is read
// from. Individual entries may instead be supplied under their parameter
// names.
const ParamsKey = "params"

// Initialize produces the starting parameter vector for one chain. Values
// come from the supplied context when present; otherwise they are drawn
// uniformly in (-radius, radius), retrying until the log density and gradient
// are finite. The chosen vector is recorded on w before it is returned.
//
// A context-supplied vector that is out of support is fatal immediately -
// explicit initial values are a user contract, not a starting guess.
func Initialize(m Model, ctx data.Context, rng *rand.Generator, radius float64,
	emitTiming bool, log logging.Logger, w writer.RowWriter) ([]float64, error) {
	if radius < 0 {
		return nil, errors.Errorf("Initialization radius must be non-negative, got %g", radius)
	}
	if w == nil {
		w = &writer.Discard{}
	}

	n := m.NumUnconstrainedParams()

	supplied, err := contextParams(m, ctx, n)
	if err != nil {
		return nil, err
	}

	if supplied != nil {
		if err := checkPoint(m, supplied, emitTiming, log); err != nil {
			return nil, errors.Wrap(err, "Supplied initial values are not in support")
		}
		if err := w.Row(supplied); err != nil {
			return nil, errors.Wrap(err, "Could not record initial values")
		}
		return supplied, nil
	}

	params := make([]float64, n)
	for attempt := 0; attempt < initRetries; attempt++ {
		for i := range params {
			params[i] = radius * (2.0*rng.Float64() - 1.0)
		}

		if err := checkPoint(m, params, emitTiming && attempt == 0, log); err != nil {
			if attempt == 0 {
				log.Infof("Rejecting initial value: %v", err)
			}
			continue
		}

		if err := w.Row(params); err != nil {
			return nil, errors.Wrap(err, "Could not record initial values")
		}
		return params, nil
	}

	return nil, errors.Errorf(
		"Could not find a valid initial value for model %s after %d attempts (radius %g)",
		m.Name(), initRetries, radius)
}

// contextParams reads initial values from the context, either as a full
// vector under ParamsKey or entry-by-entry under the parameter names.
// Returns nil when the context supplies nothing.
func contextParams(m Model, ctx data.Context, n int) ([]float64, error) {
	if ctx == nil {
		return nil, nil
	}

	if ctx.Has(ParamsKey) {
		params, err := ctx.Vector(ParamsKey)
		if err != nil {
			return nil, errors.Wrap(err, "Could not read initial values")
		}
		if len(params) != n {
			return nil, errors.Errorf("Initial value vector has %d entries, model wants %d", len(params), n)
		}
		return params, nil
	}

	names := m.UnconstrainedParamNames()
	have := 0
	for _, name := range names {
		if ctx.Has(name) {
			have++
		}
	}
	if have == 0 {
		return nil, nil
	}
	if have != n {
		return nil, errors.Errorf("Initial values supplied for %d of %d parameters - need all or none", have, n)
	}

	params := make([]float64, n)
	for i, name := range names {
		v, err := ctx.Scalar(name)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not read initial value for %s", name)
		}
		params[i] = v
	}
	return params, nil
}

// checkPoint evaluates the model at the candidate point and rejects anything
// non-finite in the density or gradient.
func checkPoint(m Model, params []float64, emitTiming bool, log logging.Logger) error {
	start := time.Now()
	lp, grad, err := m.LogDensityGradient(params)
	if err != nil {
		return err
	}
	if emitTiming {
		elapsed := time.Since(start).Seconds()
		log.Infof("Gradient evaluation took %g seconds", elapsed)
		log.Infof("1000 transitions using 10 leapfrog steps per transition would take %g seconds", elapsed*10000)
	}

	if math.IsNaN(lp) || math.IsInf(lp, 0) {
		return errors.Errorf("Log density is %g at the initial value", lp)
	}
	for i, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return errors.Errorf("Gradient element %d is not finite at the initial value", i)
		}
	}
	return nil
}
