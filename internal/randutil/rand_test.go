package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func draw(n int, next func() uint64) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = next()
	}
	return out
}

func TestNewIsDeterministic(t *testing.T) {
	assert.Equal(t, draw(8, New(42).Uint64), draw(8, New(42).Uint64))
	assert.NotEqual(t, draw(8, New(42).Uint64), draw(8, New(43).Uint64))
}

func TestStreamsAreIndependent(t *testing.T) {
	assert.Equal(t, draw(8, Stream(7, 3).Uint64), draw(8, Stream(7, 3).Uint64))
	assert.NotEqual(t, draw(8, Stream(7, 3).Uint64), draw(8, Stream(7, 4).Uint64))
	assert.NotEqual(t, draw(8, Stream(7, 0).Uint64), draw(8, Stream(8, 0).Uint64))
}
