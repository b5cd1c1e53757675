package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	assert := assert.New(t)

	cases := map[string]Kind{
		"unit_e":  UnitE,
		"diag_e":  DiagE,
		"dense_e": DenseE,
	}
	for name, want := range cases {
		k, err := ParseKind(name)
		assert.NoError(err)
		assert.Equal(want, k)
		assert.Equal(name, k.String())
		assert.True(k.Valid())
	}

	_, err := ParseKind("euclidean")
	assert.Error(err)
	_, err = ParseKind("")
	assert.Error(err)

	bogus := Kind(42)
	assert.False(bogus.Valid())
	assert.Equal("unknown", bogus.String())
}
