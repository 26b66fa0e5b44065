// Package features builds the TF-IDF vector space over canonical text.
package features

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// ErrNoDocuments is returned when fitting on an empty document list.
var ErrNoDocuments = errors.New("features: no documents to fit")

const (
	DefaultMaxFeatures = 1000
	DefaultNGramMax    = 2
)

type Options struct {
	// MaxFeatures caps the vocabulary; the most frequent terms across the
	// corpus are kept.
	MaxFeatures int
	// NGramMax is the longest word n-gram extracted (1 = unigrams only).
	NGramMax int
}

func (o Options) withDefaults() Options {
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = DefaultMaxFeatures
	}
	if o.NGramMax <= 0 {
		o.NGramMax = DefaultNGramMax
	}
	return o
}

// Space maps canonical text to L2-normalized TF-IDF vectors. It is immutable
// after Fit and safe for concurrent Transform calls.
type Space struct {
	opts  Options
	vocab map[string]int
	terms []string
	idf   []float64
	docs  int
}

// Fit learns the vocabulary and inverse document frequencies from texts.
// Each text must already be canonical (space-separated tokens).
func Fit(texts []string, opts Options) (*Space, error) {
	if len(texts) == 0 {
		return nil, ErrNoDocuments
	}
	opts = opts.withDefaults()

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, text := range texts {
		counts := countTerms(text, opts.NGramMax)
		for term, c := range counts {
			df[term]++
			tf[term] += c
		}
	}

	kept := make([]string, 0, len(df))
	for term := range df {
		kept = append(kept, term)
	}
	if len(kept) > opts.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if tf[kept[i]] != tf[kept[j]] {
				return tf[kept[i]] > tf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:opts.MaxFeatures]
	}
	sort.Strings(kept)

	n := float64(len(texts))
	s := &Space{
		opts:  opts,
		vocab: make(map[string]int, len(kept)),
		terms: kept,
		idf:   make([]float64, len(kept)),
		docs:  len(texts),
	}
	for i, term := range kept {
		s.vocab[term] = i
		s.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return s, nil
}

// Transform maps canonical text into the space. Terms outside the vocabulary
// are ignored; text with no known terms yields the zero vector.
func (s *Space) Transform(text string) Vector {
	counts := countTerms(text, s.opts.NGramMax)

	var v Vector
	for term, c := range counts {
		idx, ok := s.vocab[term]
		if !ok {
			continue
		}
		v.Indices = append(v.Indices, idx)
		v.Values = append(v.Values, float64(c)*s.idf[idx])
	}
	sortVector(&v)

	if norm := v.Norm(); norm > 0 {
		for i := range v.Values {
			v.Values[i] /= norm
		}
	}
	return v
}

// Dim returns the vocabulary size.
func (s *Space) Dim() int { return len(s.terms) }

// Documents returns how many texts the space was fitted on.
func (s *Space) Documents() int { return s.docs }

// Terms returns the vocabulary in index order.
func (s *Space) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// IDF returns the inverse document frequency of term and whether it is in
// the vocabulary.
func (s *Space) IDF(term string) (float64, bool) {
	idx, ok := s.vocab[term]
	if !ok {
		return 0, false
	}
	return s.idf[idx], true
}

func (s *Space) Options() Options { return s.opts }

func countTerms(text string, ngramMax int) map[string]int {
	tokens := strings.Fields(text)
	counts := make(map[string]int, len(tokens)*ngramMax)
	for n := 1; n <= ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			counts[strings.Join(tokens[i:i+n], " ")]++
		}
	}
	return counts
}

func sortVector(v *Vector) {
	sort.Sort(byIndex{v})
}

type byIndex struct{ v *Vector }

func (b byIndex) Len() int           { return len(b.v.Indices) }
func (b byIndex) Less(i, j int) bool { return b.v.Indices[i] < b.v.Indices[j] }
func (b byIndex) Swap(i, j int) {
	b.v.Indices[i], b.v.Indices[j] = b.v.Indices[j], b.v.Indices[i]
	b.v.Values[i], b.v.Values[j] = b.v.Values[j], b.v.Values[i]
}
