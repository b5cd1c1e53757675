package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyPath(t *testing.T) {
	assert := assert.New(t)

	ctx, err := FromFile("")
	assert.NoError(err)
	assert.NotNil(ctx)
	assert.Empty(ctx.Names())
	assert.False(ctx.Has("anything"))
}

func TestMissingFile(t *testing.T) {
	assert := assert.New(t)

	ctx, err := FromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Nil(ctx)
	assert.Error(err)
}

func TestFromBytes(t *testing.T) {
	assert := assert.New(t)

	ctx, err := FromBytes([]byte(`{
		"D": 3,
		"inv_metric": [1.0, 2.0, 0.5],
		"cov": [[1.0, 0.0], [0.0, 1.0]]
	}`))
	assert.NoError(err)

	assert.Equal([]string{"D", "cov", "inv_metric"}, ctx.Names())

	d, err := ctx.Scalar("D")
	assert.NoError(err)
	assert.Equal(3.0, d)

	v, err := ctx.Vector("inv_metric")
	assert.NoError(err)
	assert.Equal([]float64{1.0, 2.0, 0.5}, v)

	// Scalar promotion to a length-1 vector
	v, err = ctx.Vector("D")
	assert.NoError(err)
	assert.Equal([]float64{3.0}, v)

	m, err := ctx.Matrix("cov")
	assert.NoError(err)
	assert.Equal([][]float64{{1.0, 0.0}, {0.0, 1.0}}, m)
}

func TestLookupErrors(t *testing.T) {
	assert := assert.New(t)

	ctx, err := FromBytes([]byte(`{"a": [1, "x"], "b": [[1,2],[3]], "s": "str"}`))
	assert.NoError(err)

	_, err = ctx.Scalar("missing")
	assert.Error(err)
	_, err = ctx.Scalar("s")
	assert.Error(err)
	_, err = ctx.Vector("a")
	assert.Error(err)
	_, err = ctx.Matrix("b")
	assert.Error(err)
	_, err = ctx.Matrix("s")
	assert.Error(err)
}

func TestMalformedJSON(t *testing.T) {
	assert := assert.New(t)

	_, err := FromBytes([]byte(`[1, 2, 3]`))
	assert.Error(err)

	fn := filepath.Join(t.TempDir(), "bad.json")
	assert.NoError(os.WriteFile(fn, []byte(`{"x": `), 0o644))
	_, err = FromFile(fn)
	assert.Error(err)
}

func TestFromValuesCopies(t *testing.T) {
	assert := assert.New(t)

	src := map[string]interface{}{"D": 2.0}
	ctx := FromValues(src)
	src["D"] = 99.0

	d, err := ctx.Scalar("D")
	assert.NoError(err)
	assert.Equal(2.0, d)
}
