package api

import (
	"time"

	"github.com/kalambet/kabar/internal/model"
	"github.com/kalambet/kabar/internal/storage"
)

type SubmitRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	// Format is "text" (default) or "html"; HTML bodies are reduced to text.
	Format string `json:"format"`
}

type ClassifyRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type NewsResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

type SubmitResponse struct {
	NewsResponse
	// Generation is the model that produced the category.
	Generation uint64 `json:"generation"`
}

type ClassifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Generation uint64  `json:"generation"`
}

type ModelResponse struct {
	State      string         `json:"state"`
	Ready      bool           `json:"ready"`
	Generation uint64         `json:"generation"`
	RunID      string         `json:"run_id,omitempty"`
	CorpusSize int            `json:"corpus_size"`
	Documents  int            `json:"documents"`
	Labels     map[string]int `json:"labels,omitempty"`
	TrainedAt  *time.Time     `json:"trained_at,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
}

type TrainResponse struct {
	Generation uint64 `json:"generation"`
	RunID      string `json:"run_id"`
	Documents  int    `json:"documents"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
	Coalesced  bool   `json:"coalesced"`
}

type ImportResponse struct {
	Imported int            `json:"imported"`
	News     []NewsResponse `json:"news"`
}

func newsResponse(n storage.News) NewsResponse {
	return NewsResponse{
		ID:         n.ID,
		Title:      n.Title,
		Body:       n.Body,
		Category:   n.Label,
		Confidence: n.Confidence,
		Source:     n.Source,
		CreatedAt:  n.CreatedAt,
	}
}

func newsList(items []storage.News) []NewsResponse {
	out := make([]NewsResponse, len(items))
	for i, n := range items {
		out[i] = newsResponse(n)
	}
	return out
}

func modelResponse(st model.Status) ModelResponse {
	resp := ModelResponse{
		State:      st.State.String(),
		Ready:      st.Ready,
		Generation: st.Generation,
		RunID:      st.RunID,
		CorpusSize: st.CorpusSize,
		Documents:  st.Documents,
		Labels:     st.Labels,
		LastError:  st.LastError,
	}
	if !st.TrainedAt.IsZero() {
		t := st.TrainedAt
		resp.TrainedAt = &t
	}
	return resp
}

func trainResponse(res model.Result) TrainResponse {
	return TrainResponse{
		Generation: res.Generation,
		RunID:      res.RunID,
		Documents:  res.Documents,
		Skipped:    res.Skipped,
		DurationMS: res.Duration.Milliseconds(),
		Coalesced:  res.Coalesced,
	}
}
