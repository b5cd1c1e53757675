package metric

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/logging"
)

// Key is the context entry a precomputed inverse metric is read from.
const Key = "inv_metric"

// symTol is the relative tolerance for the dense symmetry check.
const symTol = 1e-8

// Ones returns the diagonal fallback metric.
func Ones(dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = 1.0
	}
	return v
}

// Identity returns the dense fallback metric.
func Identity(dim int) *mat.SymDense {
	s := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		s.SetSym(i, i, 1.0)
	}
	return s
}

// ReadDiag produces the diagonal inverse metric for one chain. An absent or
// empty source yields ones silently; a malformed source yields ones with a
// warning. The result is validated either way - a metric that fails
// validation after fallback is a fatal error, not retried.
func ReadDiag(ctx data.Context, dim int, log logging.Logger) ([]float64, error) {
	inv := Ones(dim)

	if ctx != nil && ctx.Has(Key) {
		got, err := ctx.Vector(Key)
		if err != nil || len(got) != dim {
			log.Warn("Using unit diagonal metric (failed to read provided metric)")
		} else {
			inv = got
		}
	}

	if err := ValidateDiag(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ReadDense produces the dense inverse metric for one chain, with the same
// policy as ReadDiag but an identity fallback.
func ReadDense(ctx data.Context, dim int, log logging.Logger) (*mat.SymDense, error) {
	inv := Identity(dim)

	if ctx != nil && ctx.Has(Key) {
		rows, err := ctx.Matrix(Key)
		if err == nil {
			inv, err = symFromRows(rows, dim)
		}
		if err != nil {
			log.Warn("Using identity matrix metric (failed to read provided metric)")
			inv = Identity(dim)
		}
	}

	if err := ValidateDense(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ValidateDiag checks that every entry is finite and positive.
func ValidateDiag(inv []float64) error {
	for i, v := range inv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("Diagonal metric entry %d is not finite", i)
		}
		if v <= 0 {
			return errors.Errorf("Diagonal metric entry %d is not positive (%g)", i, v)
		}
	}
	return nil
}

// ValidateDense checks that the matrix is finite and positive-definite.
func ValidateDense(inv *mat.SymDense) error {
	n := inv.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := inv.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Errorf("Dense metric entry [%d][%d] is not finite", i, j)
			}
		}
	}

	var ch mat.Cholesky
	if !ch.Factorize(inv) {
		return errors.Errorf("Dense metric is not positive definite")
	}
	return nil
}

// symFromRows turns a row-major matrix into symmetric storage, checking shape
// and symmetry on the way.
func symFromRows(rows [][]float64, dim int) (*mat.SymDense, error) {
	if len(rows) != dim {
		return nil, errors.Errorf("Dense metric has %d rows, want %d", len(rows), dim)
	}

	s := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		if len(rows[i]) != dim {
			return nil, errors.Errorf("Dense metric row %d has %d entries, want %d", i, len(rows[i]), dim)
		}
		for j := i; j < dim; j++ {
			lo, hi := rows[j][i], rows[i][j]
			if math.Abs(lo-hi) > symTol*math.Max(1.0, math.Abs(hi)) {
				return nil, errors.Errorf("Dense metric is not symmetric at [%d][%d]", i, j)
			}
			s.SetSym(i, j, hi)
		}
	}
	return s, nil
}
