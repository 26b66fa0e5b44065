package corpus

import (
	"context"

	"github.com/kalambet/kabar/internal/model"
	"github.com/kalambet/kabar/internal/storage"
)

// CorpusLister reads every stored row in arrival order.
type CorpusLister interface {
	ListCorpus(ctx context.Context) ([]storage.News, error)
}

// Source adapts the news store to model.CorpusSource. Every stored row is a
// training document: labeled rows with their given label, classified rows
// with the label the engine assigned.
type Source struct {
	store CorpusLister
}

var _ model.CorpusSource = (*Source)(nil)

func NewSource(store CorpusLister) *Source {
	return &Source{store: store}
}

func (s *Source) LabeledDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.store.ListCorpus(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, len(rows))
	for i, r := range rows {
		docs[i] = model.Document{Title: r.Title, Body: r.Body, Label: r.Label}
	}
	return docs, nil
}
