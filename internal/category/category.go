// Package category holds the configured set of news categories.
package category

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLabel is returned for labels outside the configured set.
var ErrInvalidLabel = errors.New("invalid category")

// Defaults is the category set used when none is configured.
var Defaults = []string{"Politik", "Olahraga", "Teknologi", "Hiburan", "Ekonomi"}

// Set is an ordered, immutable list of category names. Labels are
// case-sensitive.
type Set struct {
	names []string
	index map[string]int
}

// Count is the number of documents carrying a category.
type Count struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

func New(names ...string) (Set, error) {
	if len(names) == 0 {
		return Set{}, errors.New("category set is empty")
	}
	s := Set{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return Set{}, errors.New("category name is empty")
		}
		if _, dup := s.index[n]; dup {
			return Set{}, fmt.Errorf("duplicate category %q", n)
		}
		s.index[n] = len(s.names)
		s.names = append(s.names, n)
	}
	return s, nil
}

// Parse builds a Set from a comma-separated list.
func Parse(list string) (Set, error) {
	return New(strings.Split(list, ",")...)
}

func Default() Set {
	s, err := New(Defaults...)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the categories in configured order.
func (s Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s Set) Len() int { return len(s.names) }

func (s Set) Contains(label string) bool {
	_, ok := s.index[label]
	return ok
}

// Validate returns ErrInvalidLabel when label is not in the set.
func (s Set) Validate(label string) error {
	if !s.Contains(label) {
		return fmt.Errorf("%w: %q (valid: %s)", ErrInvalidLabel, label, strings.Join(s.names, ", "))
	}
	return nil
}

// Complete lists every category in configured order with its count from
// counts, zero when absent. Labels in counts outside the set are ignored.
func (s Set) Complete(counts map[string]int) []Count {
	out := make([]Count, len(s.names))
	for i, n := range s.names {
		out[i] = Count{Category: n, Count: counts[n]}
	}
	return out
}

func (s Set) String() string {
	return strings.Join(s.names, ",")
}
