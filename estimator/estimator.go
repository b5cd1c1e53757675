// Package estimator provides the streaming moment accumulators that warmup
// metric adaptation feeds draws into.
package estimator

import (
	"gonum.org/v1/gonum/mat"
)

// Welford accumulates per-dimension mean and variance in one pass.
type Welford struct {
	n    int64
	mean []float64
	m2   []float64
}

// NewWelford creates an accumulator for dim-dimensional samples.
func NewWelford(dim int) *Welford {
	return &Welford{
		mean: make([]float64, dim),
		m2:   make([]float64, dim),
	}
}

// Dim returns the sample dimension.
func (w *Welford) Dim() int {
	return len(w.mean)
}

// Count returns the number of samples seen.
func (w *Welford) Count() int64 {
	return w.n
}

// Add folds one sample into the running moments.
func (w *Welford) Add(x []float64) {
	w.n++
	for i, v := range x {
		delta := v - w.mean[i]
		w.mean[i] += delta / float64(w.n)
		w.m2[i] += delta * (v - w.mean[i])
	}
}

// Reset discards all accumulated state.
func (w *Welford) Reset() {
	w.n = 0
	for i := range w.mean {
		w.mean[i] = 0
		w.m2[i] = 0
	}
}

// Mean returns the running mean.
func (w *Welford) Mean() []float64 {
	out := make([]float64, len(w.mean))
	copy(out, w.mean)
	return out
}

// Variance returns the sample variance (n-1 denominator). All zeros until at
// least two samples have been added.
func (w *Welford) Variance() []float64 {
	out := make([]float64, len(w.m2))
	if w.n < 2 {
		return out
	}
	for i, v := range w.m2 {
		out[i] = v / float64(w.n-1)
	}
	return out
}

// RegularizedVariance shrinks the sample variance toward unit, weighting the
// data by n/(n+5). This keeps a short adaptation window from producing a
// degenerate metric.
func (w *Welford) RegularizedVariance() []float64 {
	out := w.Variance()
	n := float64(w.n)
	for i, v := range out {
		out[i] = (n/(n+5.0))*v + 1e-3*(5.0/(n+5.0))
	}
	return out
}

// Covariance accumulates a full covariance matrix in one pass.
type Covariance struct {
	n    int64
	mean []float64
	m2   []float64 // row-major upper triangle of co-moments, full storage
	dim  int
}

// NewCovariance creates an accumulator for dim-dimensional samples.
func NewCovariance(dim int) *Covariance {
	return &Covariance{
		mean: make([]float64, dim),
		m2:   make([]float64, dim*dim),
		dim:  dim,
	}
}

// Dim returns the sample dimension.
func (c *Covariance) Dim() int {
	return c.dim
}

// Count returns the number of samples seen.
func (c *Covariance) Count() int64 {
	return c.n
}

// Add folds one sample into the running co-moments.
func (c *Covariance) Add(x []float64) {
	c.n++
	nf := float64(c.n)

	delta := make([]float64, c.dim)
	for i, v := range x {
		delta[i] = v - c.mean[i]
		c.mean[i] += delta[i] / nf
	}

	// m2 += delta * (x - newMean)^T, symmetric by construction
	for i := 0; i < c.dim; i++ {
		post := x[i] - c.mean[i]
		for j := i; j < c.dim; j++ {
			inc := delta[j] * post
			c.m2[i*c.dim+j] += inc
			if i != j {
				c.m2[j*c.dim+i] += inc
			}
		}
	}
}

// Reset discards all accumulated state.
func (c *Covariance) Reset() {
	c.n = 0
	for i := range c.mean {
		c.mean[i] = 0
	}
	for i := range c.m2 {
		c.m2[i] = 0
	}
}

// Covariance returns the sample covariance (n-1 denominator), or the zero
// matrix until at least two samples have been added.
func (c *Covariance) Covariance() *mat.SymDense {
	out := mat.NewSymDense(c.dim, nil)
	if c.n < 2 {
		return out
	}
	for i := 0; i < c.dim; i++ {
		for j := i; j < c.dim; j++ {
			out.SetSym(i, j, c.m2[i*c.dim+j]/float64(c.n-1))
		}
	}
	return out
}

// RegularizedCovariance shrinks the sample covariance toward the identity,
// weighting the data by n/(n+5), mirroring Welford.RegularizedVariance.
func (c *Covariance) RegularizedCovariance() *mat.SymDense {
	out := c.Covariance()
	n := float64(c.n)
	w := n / (n + 5.0)
	reg := 1e-3 * (5.0 / (n + 5.0))
	for i := 0; i < c.dim; i++ {
		for j := i; j < c.dim; j++ {
			v := w * out.At(i, j)
			if i == j {
				v += reg
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}
