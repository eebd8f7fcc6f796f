package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/healthlens-ai/backend/internal/domain"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/validate"
)

func (s *Server) handleAnalyzeReport(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	image, mimeType, err := readUpload(w, r, validate.ReportUpload)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	if validate.IsPDF(mimeType) {
		s.handleError(r.Context(), w, apperrors.NewUnsupportedError("PDF analysis is not implemented yet"))
		return
	}

	result, err := s.deps.Analyses.AnalyzeReport(r.Context(), user.ID, image, mimeType)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeFace(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	image, mimeType, err := readUpload(w, r, validate.FaceUpload)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	result, err := s.deps.Analyses.AnalyzeFace(r.Context(), user.ID, image, mimeType)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeRisk(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var input domain.RiskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.handleError(r.Context(), w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	result, err := s.deps.Analyses.AssessRisk(r.Context(), user.ID, input)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// readUpload pulls the "file" part out of a multipart request and runs the
// endpoint's validation over it before any bytes reach the AI layer.
func readUpload(w http.ResponseWriter, r *http.Request, check func(contentType string, size int64) error) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, validate.MaxUploadSize+4096)

	if err := r.ParseMultipartForm(validate.MaxUploadSize); err != nil {
		return nil, "", apperrors.NewValidationError(fmt.Sprintf("file exceeds the %d MB size limit or the form is malformed", validate.MaxUploadSize>>20))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", apperrors.NewValidationError("a multipart \"file\" field is required")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := check(contentType, header.Size); err != nil {
		return nil, "", apperrors.NewValidationError(err.Error())
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", apperrors.NewInternalError(fmt.Errorf("failed to read upload: %w", err))
	}

	return data, contentType, nil
}
