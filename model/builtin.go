package model

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/data"
)

func init() {
	Register("normal", newNormal)
	Register("rosenbrock", newRosenbrock)
}

// dimFromContext reads the "D" entry, defaulting when absent.
func dimFromContext(ctx data.Context, def int) (int, error) {
	if ctx == nil || !ctx.Has("D") {
		return def, nil
	}
	d, err := ctx.Scalar("D")
	if err != nil {
		return 0, errors.Wrap(err, "Could not read model dimension D")
	}
	if d < 1 || d != math.Trunc(d) {
		return 0, errors.Errorf("Model dimension D must be a positive integer, got %g", d)
	}
	return int(d), nil
}

func indexNames(prefix string, dim int) []string {
	names := make([]string, dim)
	for i := range names {
		names[i] = fmt.Sprintf("%s.%d", prefix, i+1)
	}
	return names
}

// Normal is an iid standard normal density in D dimensions. Mostly useful as
// a smoke-test target: every metric kind should sample it without drama.
type Normal struct {
	dim int
}

// NewNormal creates a standard normal model of the given dimension.
func NewNormal(dim int) (*Normal, error) {
	if dim < 1 {
		return nil, errors.Errorf("Invalid dimension %d for normal model", dim)
	}
	return &Normal{dim: dim}, nil
}

func newNormal(ctx data.Context) (Model, error) {
	dim, err := dimFromContext(ctx, 2)
	if err != nil {
		return nil, err
	}
	return NewNormal(dim)
}

// Name returns the model name
func (n *Normal) Name() string { return "normal" }

// NumUnconstrainedParams returns the sampling dimension
func (n *Normal) NumUnconstrainedParams() int { return n.dim }

// UnconstrainedParamNames returns one name per dimension
func (n *Normal) UnconstrainedParamNames() []string { return indexNames("x", n.dim) }

// LogDensityGradient evaluates -0.5*sum(x^2) and its gradient.
func (n *Normal) LogDensityGradient(x []float64) (float64, []float64, error) {
	if len(x) != n.dim {
		return 0, nil, errors.Errorf("Normal model is %d-dimensional, got %d params", n.dim, len(x))
	}

	lp := 0.0
	grad := make([]float64, n.dim)
	for i, v := range x {
		lp -= 0.5 * v * v
		grad[i] = -v
	}
	return lp, grad, nil
}

// Rosenbrock is the banana-shaped density built from pairs of coordinates.
// Its curved ridge is the classic stress test for step size and metric
// adaptation.
type Rosenbrock struct {
	dim int
}

// NewRosenbrock creates a Rosenbrock model; dim must be even.
func NewRosenbrock(dim int) (*Rosenbrock, error) {
	if dim < 2 || dim%2 != 0 {
		return nil, errors.Errorf("Rosenbrock dimension must be even and >= 2, got %d", dim)
	}
	return &Rosenbrock{dim: dim}, nil
}

func newRosenbrock(ctx data.Context) (Model, error) {
	dim, err := dimFromContext(ctx, 2)
	if err != nil {
		return nil, err
	}
	return NewRosenbrock(dim)
}

// Name returns the model name
func (r *Rosenbrock) Name() string { return "rosenbrock" }

// NumUnconstrainedParams returns the sampling dimension
func (r *Rosenbrock) NumUnconstrainedParams() int { return r.dim }

// UnconstrainedParamNames returns one name per dimension
func (r *Rosenbrock) UnconstrainedParamNames() []string { return indexNames("x", r.dim) }

// LogDensityGradient evaluates the negative Rosenbrock function over
// consecutive coordinate pairs (a, b): -(100*(b-a^2)^2 + (1-a)^2).
func (r *Rosenbrock) LogDensityGradient(x []float64) (float64, []float64, error) {
	if len(x) != r.dim {
		return 0, nil, errors.Errorf("Rosenbrock model is %d-dimensional, got %d params", r.dim, len(x))
	}

	lp := 0.0
	grad := make([]float64, r.dim)
	for i := 0; i < r.dim; i += 2 {
		a, b := x[i], x[i+1]
		diff := b - a*a
		lp -= 100.0*diff*diff + (1.0-a)*(1.0-a)
		grad[i] = 400.0*a*diff + 2.0*(1.0-a)
		grad[i+1] = -200.0 * diff
	}
	return lp, grad, nil
}
