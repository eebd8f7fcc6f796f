package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/healthlens-ai/backend/internal/ai"
	"github.com/healthlens-ai/backend/internal/cache"
	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/domain"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/logger"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	statsCacheTTL = 30 * time.Second

	fallbackWarning = "The AI provider quota is exhausted, so a simplified local analysis was returned instead."
)

// AnalysisService orchestrates AI analysis calls, their quota fallback and
// the stored analysis history.
type AnalysisService struct {
	remote  ai.Analyzer
	local   ai.Analyzer
	repo    AnalysisStore
	archive ImageArchiver
	cache   cache.Store
}

// NewAnalysisService wires the two analyzer tiers. archive may be nil when
// no object store is configured; uploads are then not retained.
func NewAnalysisService(remote, local ai.Analyzer, repo AnalysisStore, archive ImageArchiver, store cache.Store) *AnalysisService {
	return &AnalysisService{
		remote:  remote,
		local:   local,
		repo:    repo,
		archive: archive,
		cache:   store,
	}
}

// AnalyzeReport runs OCR + structuring over a report image. On a provider
// quota error the local analyzer supplies the result and the response is
// flagged as a fallback.
func (s *AnalysisService) AnalyzeReport(ctx context.Context, userID string, image []byte, mimeType string) (*ReportResult, error) {
	result := &ReportResult{}

	analysis, err := s.remote.AnalyzeReport(ctx, image, mimeType)
	if errors.Is(err, ai.ErrQuotaExceeded) {
		logger.Warn("AI quota exhausted, using local report analyzer", "user_id", userID)
		analysis, err = s.local.AnalyzeReport(ctx, image, mimeType)
		result.Fallback = true
		result.Warning = fallbackWarning
	}
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "AI")
	}

	result.RawText = analysis.RawText
	result.Structured = analysis.Structured
	result.ImageURL = s.archiveImage(ctx, "reports", userID, image, mimeType)
	return result, nil
}

// AnalyzeFace derives visual health indicators from a face photo, with the
// same quota fallback as report analysis.
func (s *AnalysisService) AnalyzeFace(ctx context.Context, userID string, image []byte, mimeType string) (*FaceResult, error) {
	result := &FaceResult{}

	metrics, err := s.remote.AnalyzeFace(ctx, image, mimeType)
	if errors.Is(err, ai.ErrQuotaExceeded) {
		logger.Warn("AI quota exhausted, using local face analyzer", "user_id", userID)
		metrics, err = s.local.AnalyzeFace(ctx, image, mimeType)
		result.Fallback = true
		result.Warning = fallbackWarning
	}
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "AI")
	}

	result.VisualMetrics = metrics
	result.ImageURL = s.archiveImage(ctx, "faces", userID, image, mimeType)
	return result, nil
}

// AssessRisk generates a long-form risk assessment from the collected data
// sections. At least one section must carry data.
func (s *AnalysisService) AssessRisk(ctx context.Context, userID string, input domain.RiskInput) (*RiskResult, error) {
	if input.Empty() {
		return nil, apperrors.NewValidationError("at least one of lab_data, visual_metrics or user_data is required")
	}

	result := &RiskResult{}

	text, err := s.remote.AssessRisk(ctx, input)
	if errors.Is(err, ai.ErrQuotaExceeded) {
		logger.Warn("AI quota exhausted, using local risk analyzer", "user_id", userID)
		text, err = s.local.AssessRisk(ctx, input)
		result.Fallback = true
		result.Warning = fallbackWarning
	}
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "AI")
	}

	result.RiskAssessment = text
	return result, nil
}

// archiveImage uploads the original image when an object store is
// configured. Archival failures never fail the analysis.
func (s *AnalysisService) archiveImage(ctx context.Context, prefix, userID string, image []byte, mimeType string) string {
	if s.archive == nil {
		return ""
	}

	key := fmt.Sprintf("%s/%s/%s%s", prefix, userID, uuid.NewString(), extensionFor(mimeType))
	url, err := s.archive.Put(ctx, key, image, mimeType)
	if err != nil {
		logger.Warn("Image archival failed", "key", key, "error", err)
		return ""
	}
	return url
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}

// Create stores a completed analysis for a user.
func (s *AnalysisService) Create(ctx context.Context, userID string, input CreateAnalysisInput) (*database.Analysis, error) {
	if !database.ValidAnalysisType(input.Type) {
		return nil, apperrors.NewValidationError("type must be one of: report, face, risk")
	}
	if len(input.RawData) == 0 {
		return nil, apperrors.NewValidationError("raw_data is required")
	}
	if !json.Valid(input.RawData) {
		return nil, apperrors.NewValidationError("raw_data must be valid JSON")
	}

	analysis := &database.Analysis{
		UserID:           userID,
		Type:             input.Type,
		RawData:          datatypes.JSON(input.RawData),
		StructuredData:   datatypes.JSON(input.StructuredData),
		VisualMetrics:    datatypes.JSON(input.VisualMetrics),
		RiskAssessment:   input.RiskAssessment,
		ProblemsDetected: datatypes.JSON(input.ProblemsDetected),
		Treatments:       datatypes.JSON(input.Treatments),
		ImageURL:         input.ImageURL,
		Fallback:         input.Fallback,
	}

	if err := s.repo.Create(ctx, analysis); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	s.invalidateUserCaches(ctx, userID)
	return analysis, nil
}

// List returns one page of the user's analyses, newest first.
func (s *AnalysisService) List(ctx context.Context, userID string, page, limit int, analysisType string) (*AnalysisList, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		return nil, apperrors.NewValidationError("limit must not exceed 100")
	}
	if analysisType != "" && !database.ValidAnalysisType(analysisType) {
		return nil, apperrors.NewValidationError("type must be one of: report, face, risk")
	}

	total, err := s.repo.CountByUser(ctx, userID, analysisType)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	analyses, err := s.repo.ListByUser(ctx, userID, analysisType, (page-1)*limit, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if analyses == nil {
		analyses = []database.Analysis{}
	}

	return &AnalysisList{
		Analyses:   analyses,
		Total:      total,
		Page:       page,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Get returns one analysis owned by the user.
func (s *AnalysisService) Get(ctx context.Context, userID, id string) (*database.Analysis, error) {
	analysisID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid analysis id")
	}

	analysis, err := s.repo.GetByID(ctx, userID, analysisID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return analysis, nil
}

// Stats aggregates the user's analysis counts for the dashboard. Results
// are cached briefly since the dashboard polls them.
func (s *AnalysisService) Stats(ctx context.Context, userID string) (*AnalysisStats, error) {
	key := statsCacheKey(userID)

	var cached AnalysisStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	counts, err := s.repo.CountGroupedByType(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	last, err := s.repo.LastCreatedAt(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	stats := &AnalysisStats{Total: total, ByType: counts, LastAnalysisAt: last}
	if err := s.cache.Set(ctx, key, stats, statsCacheTTL); err != nil {
		logger.Warn("Stats cache write failed", "error", err)
	}
	return stats, nil
}

func (s *AnalysisService) invalidateUserCaches(ctx context.Context, userID string) {
	for _, key := range []string{statsCacheKey(userID), chatContextCacheKey(userID)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			logger.Warn("Cache invalidation failed", "key", key, "error", err)
		}
	}
}

func statsCacheKey(userID string) string {
	return "stats:user:" + userID
}
