// Package data reads the JSON key/value contexts that supply model data,
// initial parameter values, and precomputed metrics.
package data

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Context is a read-only mapping from names to numeric values. Values are
// scalars, vectors, or matrices; lookups coerce where sensible (a scalar can
// be read as a length-1 vector).
type Context interface {
	Has(name string) bool
	Names() []string
	Scalar(name string) (float64, error)
	Vector(name string) ([]float64, error)
	Matrix(name string) ([][]float64, error)
}

// mapContext is the standard Context over parsed JSON values.
type mapContext struct {
	vals map[string]interface{}
}

// Empty returns a Context with no entries.
func Empty() Context {
	return &mapContext{vals: map[string]interface{}{}}
}

// FromFile reads a JSON object from the named file. An empty path is not an
// error - it yields an empty context, which is how "no data supplied" flows
// through the rest of the system.
func FromFile(path string) (Context, error) {
	if path == "" {
		return Empty(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not read data file %s", path)
	}

	ctx, err := FromBytes(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not parse data file %s", path)
	}
	return ctx, nil
}

// FromBytes parses a JSON object into a Context.
func FromBytes(raw []byte) (Context, error) {
	vals := map[string]interface{}{}
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, errors.Wrap(err, "Data must be a JSON object")
	}
	return &mapContext{vals: vals}, nil
}

// FromValues builds a Context directly from already-parsed values. Handy for
// tests and for embedding callers that never touch the filesystem.
func FromValues(vals map[string]interface{}) Context {
	cp := make(map[string]interface{}, len(vals))
	for k, v := range vals {
		cp[k] = v
	}
	return &mapContext{vals: cp}
}

func (c *mapContext) Has(name string) bool {
	_, ok := c.vals[name]
	return ok
}

func (c *mapContext) Names() []string {
	names := make([]string, 0, len(c.vals))
	for k := range c.vals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Scalar returns the named value as a single number.
func (c *mapContext) Scalar(name string) (float64, error) {
	v, ok := c.vals[name]
	if !ok {
		return 0, errors.Errorf("No value named %s", name)
	}

	f, ok := asFloat(v)
	if !ok {
		return 0, errors.Errorf("Value %s is not a scalar", name)
	}
	return f, nil
}

// Vector returns the named value as a flat sequence. Scalars are promoted to
// length-1 vectors.
func (c *mapContext) Vector(name string) ([]float64, error) {
	v, ok := c.vals[name]
	if !ok {
		return nil, errors.Errorf("No value named %s", name)
	}

	if f, ok := asFloat(v); ok {
		return []float64{f}, nil
	}

	arr, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("Value %s is not a numeric array", name)
	}

	out := make([]float64, len(arr))
	for i, e := range arr {
		f, ok := asFloat(e)
		if !ok {
			return nil, errors.Errorf("Value %s has a non-numeric entry at %d", name, i)
		}
		out[i] = f
	}
	return out, nil
}

// Matrix returns the named value as rows of numbers. Every row must have the
// same length.
func (c *mapContext) Matrix(name string) ([][]float64, error) {
	v, ok := c.vals[name]
	if !ok {
		return nil, errors.Errorf("No value named %s", name)
	}

	arr, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("Value %s is not an array of rows", name)
	}

	out := make([][]float64, len(arr))
	width := -1
	for i, re := range arr {
		row, ok := re.([]interface{})
		if !ok {
			return nil, errors.Errorf("Value %s row %d is not an array", name, i)
		}
		if width < 0 {
			width = len(row)
		} else if len(row) != width {
			return nil, errors.Errorf("Value %s row %d has %d entries, want %d", name, i, len(row), width)
		}

		out[i] = make([]float64, len(row))
		for j, e := range row {
			f, ok := asFloat(e)
			if !ok {
				return nil, errors.Errorf("Value %s has a non-numeric entry at [%d][%d]", name, i, j)
			}
			out[i][j] = f
		}
	}
	return out, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	}
	return 0, false
}
