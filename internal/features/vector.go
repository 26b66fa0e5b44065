package features

import "math"

// Vector is a sparse vector with strictly increasing indices.
type Vector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int { return len(v.Indices) }

// IsZero reports whether v has no non-zero entries.
func (v Vector) IsZero() bool { return len(v.Indices) == 0 }

func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two sparse vectors.
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Distance returns the Euclidean distance between two sparse vectors. It
// merges coordinates directly, so identical vectors are exactly 0 apart.
func Distance(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) || j < len(b.Indices) {
		var d float64
		switch {
		case j >= len(b.Indices) || (i < len(a.Indices) && a.Indices[i] < b.Indices[j]):
			d = a.Values[i]
			i++
		case i >= len(a.Indices) || b.Indices[j] < a.Indices[i]:
			d = b.Values[j]
			j++
		default:
			d = a.Values[i] - b.Values[j]
			i++
			j++
		}
		sum += d * d
	}
	return math.Sqrt(sum)
}
