package knn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/kabar/internal/features"
)

func vec(pairs ...float64) features.Vector {
	var v features.Vector
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Indices = append(v.Indices, int(pairs[i]))
		v.Values = append(v.Values, pairs[i+1])
	}
	return v
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit(nil, nil, 5)
	assert.ErrorIs(t, err, ErrNoExamples)

	_, err = Fit([]features.Vector{vec(0, 1)}, []string{"A", "B"}, 5)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestFit_EffectiveK(t *testing.T) {
	vs := []features.Vector{vec(0, 1), vec(1, 1), vec(2, 1)}
	labels := []string{"A", "B", "A"}

	c, err := Fit(vs, labels, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, c.K())
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []string{"A", "B"}, c.Classes())

	c, err = Fit(vs, labels, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, c.K())

	c, err = Fit(vs, labels, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.K())
}

func TestPredict_SingleExample(t *testing.T) {
	c, err := Fit([]features.Vector{vec(0, 1)}, []string{"Politik"}, 5)
	require.NoError(t, err)

	p := c.Predict(vec(3, 1))
	assert.Equal(t, "Politik", p.Label)
	assert.Equal(t, 1.0, p.Confidence)
}

func TestPredict_ExactMatchWins(t *testing.T) {
	vs := []features.Vector{vec(0, 1), vec(1, 1), vec(1, 0.6, 2, 0.8)}
	c, err := Fit(vs, []string{"A", "B", "B"}, 3)
	require.NoError(t, err)

	p := c.Predict(vec(0, 1))
	assert.Equal(t, "A", p.Label)
	assert.Equal(t, 1.0, p.Confidence)
}

func TestPredict_ZeroVectorQuery(t *testing.T) {
	vs := []features.Vector{vec(0, 1), vec(1, 1), vec(2, 1)}
	c, err := Fit(vs, []string{"B", "A", "A"}, 3)
	require.NoError(t, err)

	p := c.Predict(features.Vector{})
	assert.Equal(t, "A", p.Label)
	assert.InDelta(t, 2.0/3.0, p.Confidence, 1e-12)
}

func TestPredict_ZeroVectorUsesWholeTrainingSet(t *testing.T) {
	// The minority label arrives first and would fill most of a k=3
	// neighborhood if the zero query went through the neighbor search.
	var vs []features.Vector
	var labels []string
	for i := range 2 {
		vs = append(vs, vec(float64(i), 1))
		labels = append(labels, "Ekonomi")
	}
	for i := range 6 {
		vs = append(vs, vec(float64(10+i), 1))
		labels = append(labels, "Olahraga")
	}
	c, err := Fit(vs, labels, 3)
	require.NoError(t, err)

	p := c.Predict(features.Vector{})
	assert.Equal(t, "Olahraga", p.Label)
	assert.InDelta(t, 0.75, p.Confidence, 1e-12)
	assert.Less(t, p.Confidence, 1.0)
}

func TestPredict_ZeroVectorEqualCountsGoToFirstSeen(t *testing.T) {
	vs := []features.Vector{vec(0, 1), vec(1, 1), vec(2, 1), vec(3, 1)}
	c, err := Fit(vs, []string{"Hiburan", "Teknologi", "Teknologi", "Hiburan"}, 2)
	require.NoError(t, err)

	p := c.Predict(features.Vector{})
	assert.Equal(t, "Hiburan", p.Label)
	assert.InDelta(t, 0.5, p.Confidence, 1e-12)
}

func TestPredict_TieGoesToNearestNeighbor(t *testing.T) {
	vs := []features.Vector{vec(0, 1), vec(1, 1)}

	c, err := Fit(vs, []string{"B", "A"}, 2)
	require.NoError(t, err)

	// Equidistant from both: the tie falls to the lower training index.
	p := c.Predict(vec(0, 1, 1, 1))
	assert.Equal(t, "B", p.Label)
	assert.InDelta(t, 0.5, p.Confidence, 1e-12)
}

func TestPredict_DistanceWeighting(t *testing.T) {
	// One close A beats two distant Bs.
	vs := []features.Vector{vec(0, 1), vec(1, 1), vec(2, 1)}
	c, err := Fit(vs, []string{"A", "B", "B"}, 3)
	require.NoError(t, err)

	q := vec(0, 0.99, 1, 0.1)
	p := c.Predict(q)
	assert.Equal(t, "A", p.Label)
	assert.Greater(t, p.Confidence, 0.5)
	assert.LessOrEqual(t, p.Confidence, 1.0)
}

func TestNeighbors_OrderedAndDeterministic(t *testing.T) {
	vs := []features.Vector{vec(0, 1), vec(1, 1), vec(0, 1), vec(2, 1)}
	c, err := Fit(vs, []string{"A", "B", "C", "D"}, 3)
	require.NoError(t, err)

	ns := c.Neighbors(vec(0, 1))
	require.Len(t, ns, 3)
	assert.Equal(t, 0, ns[0].Index)
	assert.Equal(t, 2, ns[1].Index)
	assert.Equal(t, 1, ns[2].Index)
	assert.Equal(t, 0.0, ns[0].Distance)
	assert.Equal(t, 0.0, ns[1].Distance)

	// Two exact matches with different labels tie; the lower index wins.
	p := c.Predict(vec(0, 1))
	assert.Equal(t, "A", p.Label)
	assert.InDelta(t, 0.5, p.Confidence, 1e-12)
}

func TestPredict_ConfidenceBounds(t *testing.T) {
	vs := []features.Vector{
		vec(0, 0.6, 1, 0.8), vec(1, 1), vec(2, 1), vec(0, 1), vec(3, 0.8, 4, 0.6), vec(4, 1),
	}
	labels := []string{"A", "B", "C", "A", "B", "C"}
	c, err := Fit(vs, labels, 5)
	require.NoError(t, err)

	queries := []features.Vector{{}, vec(0, 1), vec(2, 0.7, 3, 0.7), vec(4, 0.1), vec(1, 0.3, 5, 0.95)}
	for _, q := range queries {
		p := c.Predict(q)
		assert.NotEmpty(t, p.Label)
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}
