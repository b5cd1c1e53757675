package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWelford(t *testing.T) {
	assert := assert.New(t)

	w := NewWelford(2)
	assert.Equal(2, w.Dim())
	assert.Equal([]float64{0, 0}, w.Variance())

	samples := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
		{4, 40},
	}
	for _, s := range samples {
		w.Add(s)
	}

	assert.Equal(int64(4), w.Count())
	mean := w.Mean()
	assert.InDelta(2.5, mean[0], 1e-12)
	assert.InDelta(25.0, mean[1], 1e-12)

	// Sample variance of {1,2,3,4} is 5/3
	v := w.Variance()
	assert.InDelta(5.0/3.0, v[0], 1e-12)
	assert.InDelta(500.0/3.0, v[1], 1e-12)

	// Regularization pulls toward the unit scale
	rv := w.RegularizedVariance()
	assert.InDelta((4.0/9.0)*(5.0/3.0)+1e-3*(5.0/9.0), rv[0], 1e-12)

	w.Reset()
	assert.Equal(int64(0), w.Count())
	assert.Equal([]float64{0, 0}, w.Mean())
}

func TestCovariance(t *testing.T) {
	assert := assert.New(t)

	c := NewCovariance(2)

	// Perfectly anti-correlated pairs
	samples := [][]float64{
		{1, -1},
		{2, -2},
		{3, -3},
		{4, -4},
	}
	for _, s := range samples {
		c.Add(s)
	}

	cov := c.Covariance()
	assert.InDelta(5.0/3.0, cov.At(0, 0), 1e-12)
	assert.InDelta(5.0/3.0, cov.At(1, 1), 1e-12)
	assert.InDelta(-5.0/3.0, cov.At(0, 1), 1e-12)
	assert.InDelta(cov.At(0, 1), cov.At(1, 0), 1e-12)

	// Regularization shrinks off-diagonals and keeps the matrix PD-friendly
	reg := c.RegularizedCovariance()
	assert.InDelta((4.0/9.0)*(5.0/3.0)+1e-3*(5.0/9.0), reg.At(0, 0), 1e-12)
	assert.InDelta((4.0/9.0)*(-5.0/3.0), reg.At(0, 1), 1e-12)

	c.Reset()
	assert.Equal(int64(0), c.Count())
	assert.InDelta(0.0, c.Covariance().At(0, 0), 1e-12)
}
