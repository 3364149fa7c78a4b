package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResize(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 0, 0}, Resize([]float64{1, 2}, 4))
	assert.Equal(t, []float64{1, 2}, Resize([]float64{1, 2, 3}, 2))
	assert.Len(t, Resize(nil, DefaultDimension), DefaultDimension)
}

func TestRandomVectors(t *testing.T) {
	vecs := RandomVectors(3, 16)
	assert.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 16)
		for _, x := range v {
			assert.GreaterOrEqual(t, x, 0.0)
			assert.Less(t, x, 1.0)
		}
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 1}))
}
