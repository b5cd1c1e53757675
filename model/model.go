// Package model defines the probabilistic-model capability the samplers
// consume, plus a registry of builtin models so the CLI can run end to end.
package model

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/data"
)

// Model is the opaque capability the sampling engine works against. The
// engine never looks inside - it only needs the unconstrained dimension,
// parameter names for output headers, and joint log density with gradient.
type Model interface {
	Name() string
	NumUnconstrainedParams() int
	UnconstrainedParamNames() []string
	LogDensityGradient(x []float64) (lp float64, grad []float64, err error)
}

// Builder instantiates a named model from its data context.
type Builder func(ctx data.Context) (Model, error)

var registry = map[string]Builder{}

// Register adds a named model builder. Duplicate names are a programming
// error and panic at init time.
func Register(name string, b Builder) {
	if _, ok := registry[name]; ok {
		panic("Duplicate model registration: " + name)
	}
	registry[name] = b
}

// Lookup builds the named model against the given data context.
func Lookup(name string, ctx data.Context) (Model, error) {
	b, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("Unknown model %q (have %v)", name, Names())
	}
	return b(ctx)
}

// Names lists the registered model names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
