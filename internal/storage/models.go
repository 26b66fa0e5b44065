package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Provenance of a stored news item. Confidence is 1.0 for seed and labeled
// rows and the classifier's confidence for classified rows.
const (
	SourceSeed       = "seed"
	SourceLabeled    = "labeled"
	SourceClassified = "classified"
)

type News struct {
	ID         string
	Title      string
	Body       string
	Label      string
	Confidence float64
	Source     string
	CreatedAt  time.Time
}

// NewsFilter narrows ListNews. An empty Label matches every row.
type NewsFilter struct {
	Label  string
	Limit  int
	Offset int
}
