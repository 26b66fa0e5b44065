// Package model owns the trained (feature space, classifier) pair: it
// retrains from the corpus, publishes immutable generations, and serves
// classification from whichever generation is current.
package model

import (
	"context"
	"errors"
	"time"

	"github.com/kalambet/kabar/internal/features"
	"github.com/kalambet/kabar/internal/knn"
)

var (
	// ErrNotReady is returned by Classify before any model has been published.
	ErrNotReady = errors.New("model not ready")
	// ErrEmptyCorpus is returned when a retrain finds no usable documents.
	ErrEmptyCorpus = errors.New("corpus has no usable documents")
)

// Document is one labeled training example as read from the corpus.
type Document struct {
	Title string
	Body  string
	Label string
}

// CorpusSource supplies the full labeled corpus in arrival order.
type CorpusSource interface {
	LabeledDocuments(ctx context.Context) ([]Document, error)
}

// Trained is one published generation. Nothing in it changes after
// publication; the space and classifier are always used together.
type Trained struct {
	Generation uint64
	RunID      string
	Space      *features.Space
	Classifier *knn.Classifier
	// CorpusSize is the number of rows read; Documents the number trained on.
	CorpusSize int
	Documents  int
	Skipped    int
	Labels     map[string]int
	TrainedAt  time.Time
	Duration   time.Duration
}

// Prediction is the facade result. Generation identifies the model that
// produced both Label and Confidence.
type Prediction struct {
	Label      string
	Confidence float64
	Generation uint64
}

// Result describes a completed Retrain call.
type Result struct {
	Generation uint64
	RunID      string
	Documents  int
	Skipped    int
	Duration   time.Duration
	// Coalesced is true when the caller's request was satisfied by a fit
	// that another caller ran.
	Coalesced bool
}

type State int32

const (
	StateUninitialized State = iota
	StateTraining
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTraining:
		return "training"
	case StatePublished:
		return "published"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the manager for health and admin surfaces.
type Status struct {
	State      State
	Ready      bool
	Generation uint64
	RunID      string
	CorpusSize int
	Documents  int
	Labels     map[string]int
	TrainedAt  time.Time
	LastError  string
}
