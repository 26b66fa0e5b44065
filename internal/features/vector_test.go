package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	a := Vector{Indices: []int{0, 2}, Values: []float64{3, 4}}
	b := Vector{Indices: []int{1}, Values: []float64{1}}
	zero := Vector{}

	assert.Equal(t, 5.0, Distance(a, zero))
	assert.Equal(t, 5.0, Distance(zero, a))
	assert.Equal(t, 0.0, Distance(a, a))
	assert.InDelta(t, math.Sqrt(26), Distance(a, b), 1e-12)
	assert.Equal(t, Distance(a, b), Distance(b, a))

	c := Vector{Indices: []int{0, 2}, Values: []float64{3, 1}}
	assert.Equal(t, 3.0, Distance(a, c))
}

func TestDot(t *testing.T) {
	a := Vector{Indices: []int{0, 2, 5}, Values: []float64{1, 2, 3}}
	b := Vector{Indices: []int{2, 3, 5}, Values: []float64{4, 7, 1}}

	assert.Equal(t, 11.0, Dot(a, b))
	assert.Equal(t, 0.0, Dot(a, Vector{}))
}
