// Package metric defines the mass-metric kinds a sampler can be specialized
// on, and reads precomputed inverse metrics from data contexts.
package metric

import (
	"github.com/pkg/errors"
)

// Kind selects one of the three sampler geometries. The zero value is the
// unit (non-adapting) metric.
type Kind int

// The three supported metric kinds. There is no default/fallthrough kind -
// anything else is a configuration error.
const (
	UnitE Kind = iota
	DiagE
	DenseE
)

// ParseKind maps the external metric name onto a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "unit_e":
		return UnitE, nil
	case "diag_e":
		return DiagE, nil
	case "dense_e":
		return DenseE, nil
	}
	return 0, errors.Errorf("Unknown metric type %q (want unit_e, diag_e, or dense_e)", name)
}

// String returns the external name for the kind.
func (k Kind) String() string {
	switch k {
	case UnitE:
		return "unit_e"
	case DiagE:
		return "diag_e"
	case DenseE:
		return "dense_e"
	}
	return "unknown"
}

// Valid is true only for the three defined kinds.
func (k Kind) Valid() bool {
	return k == UnitE || k == DiagE || k == DenseE
}
