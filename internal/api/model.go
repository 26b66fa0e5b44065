package api

import (
	"encoding/json"
	"net/http"
)

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"model":  modelResponse(deps.Model.Status()),
		})
	}
}

func handleModel(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, modelResponse(deps.Model.Status()))
	}
}

// handleClassify predicts a category without storing anything.
func handleClassify(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ClassifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		p, err := deps.Model.Classify(req.Title, req.Body)
		if err != nil {
			serviceError(w, deps.Logger, err, "failed to classify")
			return
		}
		writeJSON(w, http.StatusOK, ClassifyResponse{
			Category:   p.Label,
			Confidence: p.Confidence,
			Generation: p.Generation,
		})
	}
}

func handleTrain(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Model.Retrain(r.Context())
		if err != nil {
			serviceError(w, deps.Logger, err, "failed to train")
			return
		}
		writeJSON(w, http.StatusOK, trainResponse(res))
	}
}
