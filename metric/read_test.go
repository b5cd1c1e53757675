package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/logging"
)

func TestReadDiagFallbacks(t *testing.T) {
	assert := assert.New(t)

	// Absent source: ones, no warning
	log := &logging.Capture{}
	inv, err := ReadDiag(nil, 3, log)
	assert.NoError(err)
	assert.Equal([]float64{1, 1, 1}, inv)
	assert.Empty(log.Warns)

	// Empty source: ones, no warning
	log = &logging.Capture{}
	inv, err = ReadDiag(data.Empty(), 3, log)
	assert.NoError(err)
	assert.Equal([]float64{1, 1, 1}, inv)
	assert.Empty(log.Warns)

	// Wrong length: ones plus a warning
	log = &logging.Capture{}
	ctx := data.FromValues(map[string]interface{}{Key: []interface{}{1.0, 2.0}})
	inv, err = ReadDiag(ctx, 3, log)
	assert.NoError(err)
	assert.Equal([]float64{1, 1, 1}, inv)
	assert.Len(log.Warns, 1)

	// Non-numeric: ones plus a warning
	log = &logging.Capture{}
	ctx = data.FromValues(map[string]interface{}{Key: "nope"})
	inv, err = ReadDiag(ctx, 3, log)
	assert.NoError(err)
	assert.Equal([]float64{1, 1, 1}, inv)
	assert.Len(log.Warns, 1)
}

func TestReadDiagProvided(t *testing.T) {
	assert := assert.New(t)

	log := &logging.Capture{}
	ctx := data.FromValues(map[string]interface{}{Key: []interface{}{0.5, 2.0, 4.0}})
	inv, err := ReadDiag(ctx, 3, log)
	assert.NoError(err)
	assert.Equal([]float64{0.5, 2.0, 4.0}, inv)
	assert.Empty(log.Warns)
}

func TestReadDiagInvalidProvided(t *testing.T) {
	assert := assert.New(t)

	// Well-formed shape but invalid values fails validation, fatally - the
	// fallback only covers read failures.
	log := &logging.Capture{}
	ctx := data.FromValues(map[string]interface{}{Key: []interface{}{1.0, -2.0, 1.0}})
	_, err := ReadDiag(ctx, 3, log)
	assert.Error(err)
}

func TestReadDenseFallbacks(t *testing.T) {
	assert := assert.New(t)

	log := &logging.Capture{}
	inv, err := ReadDense(data.Empty(), 2, log)
	assert.NoError(err)
	assert.True(mat.EqualApprox(inv, Identity(2), 1e-12))
	assert.Empty(log.Warns)

	// Wrong shape: identity plus a warning
	log = &logging.Capture{}
	ctx := data.FromValues(map[string]interface{}{
		Key: []interface{}{[]interface{}{1.0, 0.0}},
	})
	inv, err = ReadDense(ctx, 2, log)
	assert.NoError(err)
	assert.True(mat.EqualApprox(inv, Identity(2), 1e-12))
	assert.Len(log.Warns, 1)

	// Asymmetric: identity plus a warning
	log = &logging.Capture{}
	ctx = data.FromValues(map[string]interface{}{
		Key: []interface{}{
			[]interface{}{1.0, 0.5},
			[]interface{}{-0.5, 1.0},
		},
	})
	inv, err = ReadDense(ctx, 2, log)
	assert.NoError(err)
	assert.True(mat.EqualApprox(inv, Identity(2), 1e-12))
	assert.Len(log.Warns, 1)
}

func TestReadDenseProvided(t *testing.T) {
	assert := assert.New(t)

	log := &logging.Capture{}
	ctx := data.FromValues(map[string]interface{}{
		Key: []interface{}{
			[]interface{}{2.0, 0.5},
			[]interface{}{0.5, 1.0},
		},
	})
	inv, err := ReadDense(ctx, 2, log)
	assert.NoError(err)
	assert.Empty(log.Warns)
	assert.InDelta(2.0, inv.At(0, 0), 1e-12)
	assert.InDelta(0.5, inv.At(0, 1), 1e-12)
	assert.InDelta(0.5, inv.At(1, 0), 1e-12)
}

func TestReadDenseNotPositiveDefinite(t *testing.T) {
	assert := assert.New(t)

	// Symmetric, well-formed, but indefinite: validation failure is fatal
	log := &logging.Capture{}
	ctx := data.FromValues(map[string]interface{}{
		Key: []interface{}{
			[]interface{}{1.0, 2.0},
			[]interface{}{2.0, 1.0},
		},
	})
	_, err := ReadDense(ctx, 2, log)
	assert.Error(err)
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateDiag([]float64{1, 2, 3}))
	assert.Error(ValidateDiag([]float64{1, 0, 3}))
	assert.Error(ValidateDiag([]float64{1, math.NaN(), 3}))
	assert.Error(ValidateDiag([]float64{1, math.Inf(1), 3}))

	assert.NoError(ValidateDense(Identity(3)))

	bad := Identity(2)
	bad.SetSym(0, 1, math.NaN())
	assert.Error(ValidateDense(bad))
}
