// Package corpus is the application layer over the news store: it appends
// documents, keeps the model retrained after each append, and reports
// per-category statistics.
package corpus

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kalambet/kabar/internal/category"
	"github.com/kalambet/kabar/internal/model"
	"github.com/kalambet/kabar/internal/storage"
)

// ErrEmptyDocument is returned when both title and body are blank.
var ErrEmptyDocument = errors.New("document title and body are empty")

// Store is the subset of the news store the service writes and reads.
type Store interface {
	SaveNews(ctx context.Context, n storage.News) error
	SaveNewsBatch(ctx context.Context, items []storage.News) error
	ListNews(ctx context.Context, f storage.NewsFilter) ([]storage.News, error)
	CountNews(ctx context.Context) (int, error)
	CountByLabel(ctx context.Context) (map[string]int, error)
}

// Model is the lifecycle manager as seen by the service.
type Model interface {
	Classify(title, body string) (model.Prediction, error)
	Retrain(ctx context.Context) (model.Result, error)
}

type Service struct {
	store      Store
	model      Model
	categories category.Set
	logger     *slog.Logger
	now        func() time.Time

	// appendMu serializes appends so ULID order matches arrival order.
	appendMu sync.Mutex
	entropy  *ulid.MonotonicEntropy
}

func NewService(store Store, m Model, categories category.Set, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		model:      m,
		categories: categories,
		logger:     logger,
		now:        time.Now,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// Categories returns the configured category set.
func (s *Service) Categories() category.Set {
	return s.categories
}

// SubmitInput is an unlabeled document to classify and store.
type SubmitInput struct {
	Title string
	Body  string
}

// Submission is a stored machine-classified document.
type Submission struct {
	News       storage.News
	Generation uint64
}

// Submit classifies the document with the published model, stores it with
// the predicted label and confidence, and retrains.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Submission, error) {
	if isBlank(in.Title, in.Body) {
		return Submission{}, ErrEmptyDocument
	}
	pred, err := s.model.Classify(in.Title, in.Body)
	if err != nil {
		return Submission{}, err
	}

	n, err := s.appendOne(ctx, storage.News{
		Title:      in.Title,
		Body:       in.Body,
		Label:      pred.Label,
		Confidence: pred.Confidence,
		Source:     storage.SourceClassified,
	})
	if err != nil {
		return Submission{}, err
	}
	s.retrain(ctx)
	return Submission{News: n, Generation: pred.Generation}, nil
}

// AddLabeled stores a document under a caller-supplied category and retrains.
// Invalid labels are rejected before anything is stored.
func (s *Service) AddLabeled(ctx context.Context, in LabeledInput) (storage.News, error) {
	if err := s.validate(in); err != nil {
		return storage.News{}, err
	}
	n, err := s.appendOne(ctx, labeledNews(in, storage.SourceLabeled))
	if err != nil {
		return storage.News{}, err
	}
	s.retrain(ctx)
	return n, nil
}

// Import validates every item, stores them all in one transaction, and
// retrains once.
func (s *Service) Import(ctx context.Context, items []LabeledInput) ([]storage.News, error) {
	for i, in := range items {
		if err := s.validate(in); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	rows := make([]storage.News, len(items))
	for i, in := range items {
		rows[i] = labeledNews(in, storage.SourceLabeled)
	}
	stored, err := s.appendBatch(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.retrain(ctx)
	return stored, nil
}

// Seed loads the embedded seed corpus when the store is empty and returns
// how many documents were inserted. Seed documents whose category is not
// configured are skipped. It does not retrain.
func (s *Service) Seed(ctx context.Context) (int, error) {
	count, err := s.store.CountNews(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	docs, err := SeedDocuments()
	if err != nil {
		return 0, err
	}
	rows := make([]storage.News, 0, len(docs))
	for _, d := range docs {
		if s.validate(d) != nil {
			s.logger.Debug("skipping seed document", "category", d.Label, "title", d.Title)
			continue
		}
		rows = append(rows, labeledNews(d, storage.SourceSeed))
	}
	if _, err := s.appendBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("storing seed corpus: %w", err)
	}
	s.logger.Info("seeded corpus", "documents", len(rows))
	return len(rows), nil
}

type ListOptions struct {
	// Category filters by label; empty lists every category.
	Category string
	Limit    int
	Offset   int
}

// List returns stored news newest first. An unconfigured category yields
// category.ErrInvalidLabel.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]storage.News, error) {
	if opts.Category != "" {
		if err := s.categories.Validate(opts.Category); err != nil {
			return nil, err
		}
	}
	return s.store.ListNews(ctx, storage.NewsFilter{
		Label:  opts.Category,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// Stats returns the document count of every configured category, including
// categories with no documents.
func (s *Service) Stats(ctx context.Context) ([]category.Count, error) {
	counts, err := s.store.CountByLabel(ctx)
	if err != nil {
		return nil, err
	}
	return s.categories.Complete(counts), nil
}

func (s *Service) validate(in LabeledInput) error {
	if err := s.categories.Validate(in.Label); err != nil {
		return err
	}
	if isBlank(in.Title, in.Body) {
		return ErrEmptyDocument
	}
	return nil
}

func (s *Service) appendOne(ctx context.Context, n storage.News) (storage.News, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	n.ID = s.newID()
	n.CreatedAt = s.now().UTC()
	if err := s.store.SaveNews(ctx, n); err != nil {
		return storage.News{}, err
	}
	return n, nil
}

func (s *Service) appendBatch(ctx context.Context, rows []storage.News) ([]storage.News, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	now := s.now().UTC()
	for i := range rows {
		rows[i].ID = s.newID()
		rows[i].CreatedAt = now
	}
	if err := s.store.SaveNewsBatch(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// newID must be called with appendMu held; monotonic entropy is not safe for
// concurrent use.
func (s *Service) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// retrain runs after the append has been stored. A failure leaves the
// document in the corpus for the next successful retrain.
func (s *Service) retrain(ctx context.Context) {
	if _, err := s.model.Retrain(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("retrain after append failed", "error", err)
	}
}

func labeledNews(in LabeledInput, source string) storage.News {
	return storage.News{
		Title:      in.Title,
		Body:       in.Body,
		Label:      in.Label,
		Confidence: 1.0,
		Source:     source,
	}
}

func isBlank(title, body string) bool {
	return strings.TrimSpace(title) == "" && strings.TrimSpace(body) == ""
}
