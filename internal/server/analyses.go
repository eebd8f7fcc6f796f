package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/services"
)

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var input services.CreateAnalysisInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.handleError(r.Context(), w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	analysis, err := s.deps.Analyses.Create(r.Context(), user.ID, input)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, analysis)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	list, err := s.deps.Analyses.List(r.Context(), user.ID, page, limit, r.URL.Query().Get("type"))
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	analysis, err := s.deps.Analyses.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleAnalysisStats(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	stats, err := s.deps.Analyses.Stats(r.Context(), user.ID)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name + " must be a number")
	}
	return value, nil
}
