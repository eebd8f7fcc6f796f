package server

import (
	"encoding/json"
	"net/http"

	"github.com/healthlens-ai/backend/internal/domain"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
)

type chatRequest struct {
	Message             string                `json:"message"`
	UserAnalyses        []domain.AnalysisView `json:"userAnalyses,omitempty"`
	ConversationHistory []domain.ChatTurn     `json:"conversationHistory,omitempty"`
}

func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleError(r.Context(), w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	result, err := s.deps.Chat.Chat(r.Context(), user.ID, req.Message, req.UserAnalyses, req.ConversationHistory)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
