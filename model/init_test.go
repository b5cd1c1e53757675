package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

// hostile always reports an out-of-support point, so initialization can never
// succeed against it.
type hostile struct{}

func (h *hostile) Name() string                      { return "hostile" }
func (h *hostile) NumUnconstrainedParams() int       { return 2 }
func (h *hostile) UnconstrainedParamNames() []string { return []string{"a", "b"} }
func (h *hostile) LogDensityGradient(x []float64) (float64, []float64, error) {
	return math.Inf(-1), []float64{0, 0}, nil
}

func testGen(t *testing.T) *rand.Generator {
	gen, err := rand.NewChainGenerator(42, 0)
	if err != nil {
		t.Fatalf("could not build generator: %v", err)
	}
	return gen
}

func TestInitializeRandom(t *testing.T) {
	assert := assert.New(t)

	m, err := NewNormal(4)
	assert.NoError(err)

	buf := &writer.Buffer{}
	params, err := Initialize(m, data.Empty(), testGen(t), 2.0, false, logging.Nop(), buf)
	assert.NoError(err)
	assert.Len(params, 4)
	for _, p := range params {
		assert.True(p > -2.0 && p < 2.0)
	}

	// Vector recorded on the writer before handoff
	assert.Len(buf.Rows, 1)
	assert.Equal(params, buf.Rows[0])
}

func TestInitializeDeterministic(t *testing.T) {
	assert := assert.New(t)

	m, err := NewNormal(3)
	assert.NoError(err)

	p1, err := Initialize(m, data.Empty(), testGen(t), 2.0, false, logging.Nop(), nil)
	assert.NoError(err)
	p2, err := Initialize(m, data.Empty(), testGen(t), 2.0, false, logging.Nop(), nil)
	assert.NoError(err)
	assert.Equal(p1, p2)
}

func TestInitializeZeroRadius(t *testing.T) {
	assert := assert.New(t)

	m, err := NewNormal(2)
	assert.NoError(err)

	params, err := Initialize(m, data.Empty(), testGen(t), 0.0, false, logging.Nop(), nil)
	assert.NoError(err)
	assert.Equal([]float64{0, 0}, params)

	_, err = Initialize(m, data.Empty(), testGen(t), -1.0, false, logging.Nop(), nil)
	assert.Error(err)
}

func TestInitializeFromContextVector(t *testing.T) {
	assert := assert.New(t)

	m, err := NewNormal(2)
	assert.NoError(err)

	ctx := data.FromValues(map[string]interface{}{
		ParamsKey: []interface{}{0.5, -0.25},
	})
	params, err := Initialize(m, ctx, testGen(t), 2.0, false, logging.Nop(), nil)
	assert.NoError(err)
	assert.Equal([]float64{0.5, -0.25}, params)

	// Wrong length is fatal
	ctx = data.FromValues(map[string]interface{}{
		ParamsKey: []interface{}{0.5},
	})
	_, err = Initialize(m, ctx, testGen(t), 2.0, false, logging.Nop(), nil)
	assert.Error(err)
}

func TestInitializeFromContextNames(t *testing.T) {
	assert := assert.New(t)

	m, err := NewNormal(2)
	assert.NoError(err)

	ctx := data.FromValues(map[string]interface{}{
		"x.1": 1.5,
		"x.2": -1.5,
	})
	params, err := Initialize(m, ctx, testGen(t), 2.0, false, logging.Nop(), nil)
	assert.NoError(err)
	assert.Equal([]float64{1.5, -1.5}, params)

	// Partial supply is fatal - all or none
	ctx = data.FromValues(map[string]interface{}{"x.1": 1.5})
	_, err = Initialize(m, ctx, testGen(t), 2.0, false, logging.Nop(), nil)
	assert.Error(err)
}

func TestInitializeHostileModel(t *testing.T) {
	assert := assert.New(t)

	log := &logging.Capture{}
	_, err := Initialize(&hostile{}, data.Empty(), testGen(t), 2.0, false, log, nil)
	assert.Error(err)
	assert.Contains(err.Error(), "hostile")

	// Supplied values out of support fail immediately, too
	ctx := data.FromValues(map[string]interface{}{
		ParamsKey: []interface{}{0.0, 0.0},
	})
	_, err = Initialize(&hostile{}, ctx, testGen(t), 2.0, false, log, nil)
	assert.Error(err)
}

func TestInitializeTiming(t *testing.T) {
	assert := assert.New(t)

	m, err := NewNormal(2)
	assert.NoError(err)

	log := &logging.Capture{}
	_, err = Initialize(m, data.Empty(), testGen(t), 1.0, true, log, nil)
	assert.NoError(err)
	assert.NotEmpty(log.Infos)
}
