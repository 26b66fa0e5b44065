package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/kabar/internal/category"
	"github.com/kalambet/kabar/internal/corpus"
	"github.com/kalambet/kabar/internal/extract"
)

func handleCategories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{
			"categories": deps.Corpus.Categories().Names(),
		})
	}
}

func handleCategoryStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Corpus.Stats(r.Context())
		if err != nil {
			serviceError(w, deps.Logger, err, "failed to count categories")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleListNews(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listNews(w, r, deps, r.URL.Query().Get("category"))
	}
}

func handleListCategoryNews(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "category")
		if !deps.Corpus.Categories().Contains(name) {
			httpError(w, http.StatusNotFound, "not_found", "unknown category %q", name)
			return
		}
		listNews(w, r, deps, name)
	}
}

func listNews(w http.ResponseWriter, r *http.Request, deps Deps, cat string) {
	items, err := deps.Corpus.List(r.Context(), corpus.ListOptions{
		Category: cat,
		Limit:    parseIntParam(r, "limit", 20, 100),
		Offset:   parseIntParam(r, "offset", 0, 0),
	})
	if errors.Is(err, category.ErrInvalidLabel) {
		httpError(w, http.StatusNotFound, "not_found", "unknown category %q", cat)
		return
	}
	if err != nil {
		serviceError(w, deps.Logger, err, "failed to list news")
		return
	}
	writeJSON(w, http.StatusOK, newsList(items))
}

func handleGetNews(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Store.GetNews(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, deps.Logger, err, "news not found")
			return
		}
		writeJSON(w, http.StatusOK, newsResponse(n))
	}
}

func handleSubmitNews(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		switch strings.ToLower(req.Format) {
		case "", "text":
		case "html":
			body, err := extract.HTMLText(req.Body)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid html body: %v", err)
				return
			}
			req.Body = body
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "format must be text or html, got %q", req.Format)
			return
		}

		sub, err := deps.Corpus.Submit(r.Context(), corpus.SubmitInput{Title: req.Title, Body: req.Body})
		if err != nil {
			serviceError(w, deps.Logger, err, "failed to submit news")
			return
		}
		writeJSON(w, http.StatusCreated, SubmitResponse{
			NewsResponse: newsResponse(sub.News),
			Generation:   sub.Generation,
		})
	}
}

func handleAddLabeled(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req corpus.LabeledInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		n, err := deps.Corpus.AddLabeled(r.Context(), req)
		if err != nil {
			serviceError(w, deps.Logger, err, "failed to add labeled news")
			return
		}
		writeJSON(w, http.StatusCreated, newsResponse(n))
	}
}

func handleImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBatchBodySize)
		defer r.Body.Close()

		var req []corpus.LabeledInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "batch must contain at least one item")
			return
		}

		stored, err := deps.Corpus.Import(r.Context(), req)
		if err != nil {
			serviceError(w, deps.Logger, err, "failed to import news")
			return
		}
		writeJSON(w, http.StatusCreated, ImportResponse{
			Imported: len(stored),
			News:     newsList(stored),
		})
	}
}
