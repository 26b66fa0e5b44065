package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kalambet/kabar/internal/model"
)

// CorpusCounter reports how many rows the store holds.
type CorpusCounter interface {
	CountNews(ctx context.Context) (int, error)
}

// Retrainer is the model lifecycle manager as seen by the worker.
type Retrainer interface {
	Retrain(ctx context.Context) (model.Result, error)
	Current() *model.Trained
}

// Worker retrains the model when the store holds rows the published model
// has not seen, e.g. rows written by another tool or an append whose retrain
// failed.
type Worker struct {
	store  CorpusCounter
	model  Retrainer
	poll   time.Duration
	logger *slog.Logger

	// emptyAt is the row count whose fit found no usable documents, or -1.
	emptyAt atomic.Int64
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to one minute.
func NewWorker(store CorpusCounter, m Retrainer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	w := &Worker{
		store:  store,
		model:  m,
		poll:   pollInterval,
		logger: slog.Default(),
	}
	w.emptyAt.Store(-1)
	return w
}

// Run checks the corpus every poll interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("retrain check failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce retrains if the store's row count differs from the corpus size of
// the published model, or if nothing is published and the store has rows.
// A row count whose fit found no usable documents is not retried until the
// count changes. Returns true if a retrain ran.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	n, err := w.store.CountNews(ctx)
	if err != nil {
		return false, fmt.Errorf("counting corpus: %w", err)
	}

	current := w.model.Current()
	switch {
	case current == nil && n == 0:
		return false, nil
	case current != nil && current.CorpusSize == n:
		return false, nil
	case w.emptyAt.Load() == int64(n):
		return false, nil
	}

	res, err := w.model.Retrain(ctx)
	if errors.Is(err, model.ErrEmptyCorpus) {
		w.emptyAt.Store(int64(n))
		w.logger.Warn("corpus has no usable documents", "rows", n)
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("retraining: %w", err)
	}
	w.logger.Info("background retrain", "generation", res.Generation, "documents", res.Documents, "coalesced", res.Coalesced)
	return true, nil
}
