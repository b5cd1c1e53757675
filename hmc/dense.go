package hmc

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/kcarline/hammock/estimator"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// Dense adapts a dense inverse metric during warmup.
type Dense struct {
	base
	geom denseGeometry
}

// NewDense creates a dense-metric sampler with an identity starting metric.
func NewDense(m model.Model, rng *rand.Generator) *Dense {
	dim := m.NumUnconstrainedParams()

	ident := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		ident.SetSym(i, i, 1.0)
	}

	s := &Dense{
		base: newBase(m, rng),
		geom: denseGeometry{
			dim: dim,
			est: estimator.NewCovariance(dim),
		},
	}
	// Identity always factorizes
	_ = s.geom.setMetric(ident)
	return s
}

// SetMetric installs a precomputed dense inverse metric. The matrix must be
// positive-definite - the Cholesky factor drives momentum resampling.
func (s *Dense) SetMetric(inv *mat.SymDense) error {
	return s.geom.setMetric(inv)
}

// Metric returns a copy of the current inverse metric.
func (s *Dense) Metric() *mat.SymDense {
	out := mat.NewSymDense(s.geom.dim, nil)
	out.CopySym(s.geom.inv)
	return out
}

// SetWindowParams installs the warmup windowing schedule.
func (s *Dense) SetWindowParams(warmup, initBuffer, termBuffer, window int, log logging.Logger) {
	s.setWindow(warmup, initBuffer, termBuffer, window, log)
}

// Run executes the chain's adaptive sampling loop.
func (s *Dense) Run(ctx context.Context, init []float64,
	warmup, samples, thin, refresh int, saveWarmup bool, log logging.Logger,
	sampleW, diagW writer.RowWriter, metricW writer.RecordWriter,
	chainID, numChains int) error {
	return s.runLoop(ctx, &s.geom, init, warmup, samples, thin, refresh,
		saveWarmup, log, sampleW, diagW, metricW, chainID, numChains)
}

type denseGeometry struct {
	dim  int
	inv  *mat.SymDense
	chol mat.Cholesky // factor of inv, used for momentum draws
	est  *estimator.Covariance
}

func (g *denseGeometry) setMetric(inv *mat.SymDense) error {
	if inv.SymmetricDim() != g.dim {
		return errors.Errorf("Dense metric is %dx%d, sampler wants %d", inv.SymmetricDim(), inv.SymmetricDim(), g.dim)
	}

	var chol mat.Cholesky
	if !chol.Factorize(inv) {
		return errors.Errorf("Dense metric is not positive definite")
	}

	cp := mat.NewSymDense(g.dim, nil)
	cp.CopySym(inv)
	g.inv = cp
	g.chol = chol
	return nil
}

func (g *denseGeometry) kindName() string { return "dense_e" }

// sampleMomentum draws p ~ N(0, inv^-1): with inv = L L^T, solving L^T p = z
// for standard normal z gives exactly that covariance.
func (g *denseGeometry) sampleMomentum(rng *rand.Generator, p []float64) {
	z := mat.NewVecDense(g.dim, nil)
	for i := 0; i < g.dim; i++ {
		z.SetVec(i, rng.NormFloat64())
	}

	var l mat.TriDense
	g.chol.LTo(&l)

	var sol mat.VecDense
	if err := sol.SolveVec(l.T(), z); err != nil {
		// The factor is triangular with positive diagonal; a singular solve
		// here means the metric was corrupted
		panic("dense metric momentum solve failed: " + err.Error())
	}
	for i := 0; i < g.dim; i++ {
		p[i] = sol.AtVec(i)
	}
}

func (g *denseGeometry) velocity(p []float64, v []float64) {
	pv := mat.NewVecDense(g.dim, p)
	var out mat.VecDense
	out.MulVec(g.inv, pv)
	for i := 0; i < g.dim; i++ {
		v[i] = out.AtVec(i)
	}
}

func (g *denseGeometry) kinetic(p []float64) float64 {
	v := make([]float64, g.dim)
	g.velocity(p, v)

	k := 0.0
	for i, pi := range p {
		k += pi * v[i]
	}
	return 0.5 * k
}

func (g *denseGeometry) learn(q []float64) {
	g.est.Add(q)
}

func (g *denseGeometry) updateMetric(log logging.Logger) error {
	if g.est.Count() < 2 {
		log.Warn("Slow adaptation window closed with too few draws; keeping current metric")
		g.est.Reset()
		return nil
	}

	if err := g.setMetric(g.est.RegularizedCovariance()); err != nil {
		return errors.Wrap(err, "Adapted dense metric is invalid")
	}
	g.est.Reset()
	return nil
}

func (g *denseGeometry) record(rw writer.RecordWriter, stepsize float64) error {
	if err := rw.Begin(); err != nil {
		return err
	}
	if err := rw.Field("metric_type", g.kindName()); err != nil {
		return err
	}
	if err := rw.Field("stepsize", stepsize); err != nil {
		return err
	}

	rows := make([][]float64, g.dim)
	for i := range rows {
		rows[i] = make([]float64, g.dim)
		for j := 0; j < g.dim; j++ {
			rows[i][j] = g.inv.At(i, j)
		}
	}
	if err := rw.Field("inv_metric", rows); err != nil {
		return err
	}
	return rw.End()
}
