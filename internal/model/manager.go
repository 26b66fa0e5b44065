package model

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kalambet/kabar/internal/category"
	"github.com/kalambet/kabar/internal/features"
	"github.com/kalambet/kabar/internal/knn"
	"github.com/kalambet/kabar/internal/normalize"
)

const DefaultCacheSize = 1024

type Options struct {
	// K is the configured neighbor count; the classifier uses min(K, n).
	K        int
	Features features.Options
	// CacheSize bounds the classification cache. Zero disables it.
	CacheSize int
	// Workers bounds parallel canonicalization of the corpus during a fit.
	Workers int
	Logger  *slog.Logger
}

// Manager runs retrains and publishes their results. Retrains are
// serialized; readers never block on them.
type Manager struct {
	source     CorpusSource
	normalizer *normalize.Normalizer
	categories category.Set
	opts       Options
	logger     *slog.Logger

	sem       *semaphore.Weighted
	requested atomic.Uint64
	covered   uint64 // guarded by sem
	lastGen   uint64 // guarded by sem

	current  atomic.Pointer[Trained]
	training atomic.Bool

	mu      sync.Mutex
	lastErr string

	cache *lru.Cache[string, Prediction]
}

func NewManager(source CorpusSource, normalizer *normalize.Normalizer, categories category.Set, opts Options) *Manager {
	if opts.K <= 0 {
		opts.K = knn.DefaultK
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		source:     source,
		normalizer: normalizer,
		categories: categories,
		opts:       opts,
		logger:     logger,
		sem:        semaphore.NewWeighted(1),
	}
	if opts.CacheSize > 0 {
		m.cache, _ = lru.New[string, Prediction](opts.CacheSize)
	}
	return m
}

// Retrain rebuilds the model from the full corpus and publishes it as a new
// generation. Concurrent calls are serialized; a call whose request was
// already covered by a fit that read the corpus after it was made returns
// that fit's result without fitting again.
//
// ctx bounds only the wait for the retrain slot. Once fitting starts it runs
// to completion. On failure the previously published model stays in place.
func (m *Manager) Retrain(ctx context.Context) (Result, error) {
	ticket := m.requested.Add(1)
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer m.sem.Release(1)

	if m.covered >= ticket {
		t := m.current.Load()
		return Result{
			Generation: t.Generation,
			RunID:      t.RunID,
			Documents:  t.Documents,
			Skipped:    t.Skipped,
			Duration:   t.Duration,
			Coalesced:  true,
		}, nil
	}

	// Every request issued up to here is satisfied by the corpus read below.
	cover := m.requested.Load()

	m.training.Store(true)
	defer m.training.Store(false)

	t, err := m.fit(context.WithoutCancel(ctx))
	if err != nil {
		m.setLastError(err)
		m.logger.Warn("retrain failed, keeping previous model", "generation", m.lastGen, "error", err)
		return Result{}, err
	}

	m.lastGen++
	t.Generation = m.lastGen
	m.current.Store(t)
	m.covered = cover
	if m.cache != nil {
		m.cache.Purge()
	}
	m.setLastError(nil)

	m.logger.Info("model published",
		"generation", t.Generation,
		"run_id", t.RunID,
		"documents", t.Documents,
		"skipped", t.Skipped,
		"features", t.Space.Dim(),
		"k", t.Classifier.K(),
		"duration", t.Duration,
	)

	return Result{
		Generation: t.Generation,
		RunID:      t.RunID,
		Documents:  t.Documents,
		Skipped:    t.Skipped,
		Duration:   t.Duration,
	}, nil
}

func (m *Manager) fit(ctx context.Context) (*Trained, error) {
	start := time.Now()

	docs, err := m.source.LabeledDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	usable := make([]Document, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Body) == "" {
			m.logger.Debug("skipping empty document", "label", d.Label)
			continue
		}
		if !m.categories.Contains(d.Label) {
			m.logger.Debug("skipping document with unknown label", "label", d.Label)
			continue
		}
		usable = append(usable, d)
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: %d rows read", ErrEmptyCorpus, len(docs))
	}

	texts := make([]string, len(usable))
	var g errgroup.Group
	g.SetLimit(m.opts.Workers)
	for i, d := range usable {
		g.Go(func() error {
			texts[i] = m.normalizer.Normalize(normalize.JoinText(d.Title, d.Body))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	space, err := features.Fit(texts, m.opts.Features)
	if err != nil {
		return nil, fmt.Errorf("fitting feature space: %w", err)
	}

	vectors := make([]features.Vector, len(texts))
	labels := make([]string, len(usable))
	counts := make(map[string]int)
	for i, text := range texts {
		vectors[i] = space.Transform(text)
		labels[i] = usable[i].Label
		counts[labels[i]]++
	}

	clf, err := knn.Fit(vectors, labels, m.opts.K)
	if err != nil {
		return nil, fmt.Errorf("fitting classifier: %w", err)
	}

	return &Trained{
		RunID:      uuid.NewString(),
		Space:      space,
		Classifier: clf,
		CorpusSize: len(docs),
		Documents:  len(usable),
		Skipped:    len(docs) - len(usable),
		Labels:     counts,
		TrainedAt:  time.Now().UTC(),
		Duration:   time.Since(start),
	}, nil
}

// Classify assigns a category to an unseen document using the current
// generation. Label and confidence always come from the same generation.
func (m *Manager) Classify(title, body string) (Prediction, error) {
	t := m.current.Load()
	if t == nil {
		return Prediction{}, ErrNotReady
	}

	text := m.normalizer.Normalize(normalize.JoinText(title, body))
	if m.cache != nil {
		if p, ok := m.cache.Get(text); ok && p.Generation == t.Generation {
			return p, nil
		}
	}

	p := t.predict(text)
	if m.cache != nil {
		m.cache.Add(text, p)
	}
	return p, nil
}

func (t *Trained) predict(canonical string) Prediction {
	kp := t.Classifier.Predict(t.Space.Transform(canonical))
	return Prediction{Label: kp.Label, Confidence: kp.Confidence, Generation: t.Generation}
}

// Current returns the published generation, or nil before the first publish.
func (m *Manager) Current() *Trained {
	return m.current.Load()
}

// Ready reports whether a model has been published.
func (m *Manager) Ready() bool {
	return m.current.Load() != nil
}

func (m *Manager) Status() Status {
	st := Status{State: StateUninitialized}
	if t := m.current.Load(); t != nil {
		st.State = StatePublished
		st.Ready = true
		st.Generation = t.Generation
		st.RunID = t.RunID
		st.CorpusSize = t.CorpusSize
		st.Documents = t.Documents
		st.Labels = t.Labels
		st.TrainedAt = t.TrainedAt
	}
	if m.training.Load() {
		st.State = StateTraining
	}
	m.mu.Lock()
	st.LastError = m.lastErr
	m.mu.Unlock()
	return st
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.lastErr = ""
		return
	}
	m.lastErr = err.Error()
}
