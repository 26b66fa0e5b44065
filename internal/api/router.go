// Package api exposes the classification engine over HTTP and MCP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/kabar/internal/category"
	"github.com/kalambet/kabar/internal/corpus"
	"github.com/kalambet/kabar/internal/model"
	"github.com/kalambet/kabar/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB
const maxBatchBodySize = 10 << 20  // 10MB

// ModelManager is the lifecycle manager as seen by the transport layer.
type ModelManager interface {
	Classify(title, body string) (model.Prediction, error)
	Retrain(ctx context.Context) (model.Result, error)
	Status() model.Status
}

// NewsReader looks up a single stored document.
type NewsReader interface {
	GetNews(ctx context.Context, id string) (storage.News, error)
}

type Deps struct {
	Corpus *corpus.Service
	Model  ModelManager
	Store  NewsReader
	// Token guards mutating endpoints when non-empty.
	Token  string
	Logger *slog.Logger
}

// NewHandler returns the REST API. Read endpoints are open; endpoints that
// change the corpus or the model require the bearer token when one is set.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))
	r.Get("/model", handleModel(deps))
	r.Get("/categories", handleCategories(deps))
	r.Get("/categories/stats", handleCategoryStats(deps))
	r.Get("/news", handleListNews(deps))
	r.Get("/news/id/{id}", handleGetNews(deps))
	r.Get("/news/{category}", handleListCategoryNews(deps))
	r.Post("/classify", handleClassify(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/news", handleSubmitNews(deps))
		r.Post("/news/labeled", handleAddLabeled(deps))
		r.Post("/news/labeled/batch", handleImport(deps))
		r.Post("/train", handleTrain(deps))
	})

	return r
}

// BearerAuth rejects requests without the configured bearer token. An empty
// token disables the check.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// serviceError maps engine errors onto the API error envelope.
func serviceError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, model.ErrNotReady):
		httpError(w, http.StatusServiceUnavailable, "not_ready", "%s: %v", action, err)
	case errors.Is(err, model.ErrEmptyCorpus):
		httpError(w, http.StatusConflict, "empty_corpus", "%s: %v", action, err)
	case errors.Is(err, category.ErrInvalidLabel):
		httpError(w, http.StatusUnprocessableEntity, "invalid_label", "%s: %v", action, err)
	case errors.Is(err, corpus.ErrEmptyDocument):
		httpError(w, http.StatusBadRequest, "empty_document", "%s: %v", action, err)
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%s: %v", action, err)
	default:
		logger.Error("request failed", "action", action, "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "%s: %v", action, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
