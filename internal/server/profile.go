package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/healthlens-ai/backend/internal/errors"
)

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	profile, err := s.deps.Users.GetProfile(r.Context(), user.ID)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(r.Context(), w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	profile, err := s.deps.Users.UpdateProfile(r.Context(), user.ID, req.Name)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
