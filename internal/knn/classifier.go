// Package knn implements a distance-weighted k-nearest-neighbor classifier
// over sparse TF-IDF vectors.
package knn

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kalambet/kabar/internal/features"
)

const DefaultK = 5

var (
	// ErrNoExamples is returned when fitting without training vectors.
	ErrNoExamples = errors.New("knn: no training examples")
	// ErrLengthMismatch is returned when vectors and labels differ in length.
	ErrLengthMismatch = errors.New("knn: vectors and labels differ in length")
)

// voteTolerance is the relative difference under which two label weights
// are considered tied.
const voteTolerance = 1e-12

// Classifier holds the training vectors and labels. It is immutable after Fit.
type Classifier struct {
	k       int
	vectors []features.Vector
	labels  []string
	classes []string
}

// Prediction is the winning label with its weighted vote share in [0, 1].
type Prediction struct {
	Label      string
	Confidence float64
}

type Neighbor struct {
	Index    int
	Label    string
	Distance float64
}

// Fit stores the training set. k <= 0 selects DefaultK; the effective k is
// min(k, len(vectors)).
func Fit(vectors []features.Vector, labels []string, k int) (*Classifier, error) {
	if len(vectors) == 0 {
		return nil, ErrNoExamples
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("%w: %d vectors, %d labels", ErrLengthMismatch, len(vectors), len(labels))
	}
	if k <= 0 {
		k = DefaultK
	}
	k = min(k, len(vectors))

	seen := make(map[string]struct{})
	var classes []string
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)

	return &Classifier{
		k:       k,
		vectors: vectors,
		labels:  labels,
		classes: classes,
	}, nil
}

// K returns the effective number of neighbors consulted.
func (c *Classifier) K() int { return c.k }

// Size returns the number of training examples.
func (c *Classifier) Size() int { return len(c.vectors) }

// Classes returns the distinct training labels in lexical order.
func (c *Classifier) Classes() []string {
	out := make([]string, len(c.classes))
	copy(out, c.classes)
	return out
}

// Neighbors returns the k nearest training examples ordered by distance,
// then by training index.
func (c *Classifier) Neighbors(v features.Vector) []Neighbor {
	h := &neighborHeap{}
	heap.Init(h)
	for i, tv := range c.vectors {
		n := Neighbor{Index: i, Label: c.labels[i], Distance: features.Distance(v, tv)}
		if h.Len() < c.k {
			heap.Push(h, n)
		} else if closer(n, (*h)[0]) {
			(*h)[0] = n
			heap.Fix(h, 0)
		}
	}

	out := make([]Neighbor, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Neighbor)
	}
	return out
}

// Predict returns the label with the largest inverse-distance vote among the
// k nearest neighbors. When any neighbor is at distance zero only the
// zero-distance neighbors vote, each with weight one. Equal votes go to the
// label of the nearest neighbor among the tied labels.
//
// A zero query carries no evidence and sits at the same distance from every
// normalized example, so it gets the most frequent training label instead,
// with that label's share of the training set as confidence.
func (c *Classifier) Predict(v features.Vector) Prediction {
	if v.IsZero() {
		return c.majority()
	}
	neighbors := c.Neighbors(v)

	exact := neighbors[0].Distance == 0
	votes := make(map[string]float64, len(c.classes))
	var total float64
	for _, n := range neighbors {
		var w float64
		switch {
		case exact && n.Distance == 0:
			w = 1
		case exact:
			continue
		default:
			w = 1 / n.Distance
		}
		votes[n.Label] += w
		total += w
	}

	var best float64
	for _, w := range votes {
		best = math.Max(best, w)
	}
	var label string
	for _, n := range neighbors {
		if w, ok := votes[n.Label]; ok && tied(w, best) {
			label = n.Label
			break
		}
	}

	return Prediction{Label: label, Confidence: votes[label] / total}
}

// majority counts every training label once. Equal counts go to the label
// seen first.
func (c *Classifier) majority() Prediction {
	counts := make(map[string]int, len(c.classes))
	for _, l := range c.labels {
		counts[l]++
	}
	var label string
	for _, l := range c.labels {
		if counts[l] > counts[label] {
			label = l
		}
	}
	return Prediction{Label: label, Confidence: float64(counts[label]) / float64(len(c.labels))}
}

func tied(a, b float64) bool {
	return math.Abs(a-b) <= voteTolerance*math.Max(math.Abs(a), math.Abs(b))
}

func closer(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Index < b.Index
}

// neighborHeap is a max-heap on (Distance, Index): the root is the farthest
// of the current candidates.
type neighborHeap []Neighbor

func (h neighborHeap) Len() int            { return len(h) }
func (h neighborHeap) Less(i, j int) bool  { return closer(h[j], h[i]) }
func (h neighborHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x interface{}) { *h = append(*h, x.(Neighbor)) }
func (h *neighborHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
