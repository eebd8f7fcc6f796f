package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/domain"
)

// AnalysisStore is the persistence surface the services need for analyses.
type AnalysisStore interface {
	Create(ctx context.Context, analysis *database.Analysis) error
	ListByUser(ctx context.Context, userID, analysisType string, offset, limit int) ([]database.Analysis, error)
	CountByUser(ctx context.Context, userID, analysisType string) (int64, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*database.Analysis, error)
	CountGroupedByType(ctx context.Context, userID string) (map[string]int64, error)
	LastCreatedAt(ctx context.Context, userID string) (*time.Time, error)
}

// UserStore is the persistence surface the services need for users.
type UserStore interface {
	GetOrCreate(ctx context.Context, id, email, name string) (*database.User, error)
	GetByID(ctx context.Context, id string) (*database.User, error)
	UpdateName(ctx context.Context, id, name string) error
}

// ImageArchiver stores uploaded images and returns their URL.
type ImageArchiver interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ReportResult is the response of a report analysis call.
type ReportResult struct {
	RawText    string                  `json:"raw_text"`
	Structured domain.StructuredReport `json:"structured_data"`
	ImageURL   string                  `json:"image_url,omitempty"`
	Fallback   bool                    `json:"fallback,omitempty"`
	Warning    string                  `json:"warning,omitempty"`
}

// FaceResult is the response of a face analysis call.
type FaceResult struct {
	VisualMetrics []domain.VisualMetric `json:"visual_metrics"`
	ImageURL      string                `json:"image_url,omitempty"`
	Fallback      bool                  `json:"fallback,omitempty"`
	Warning       string                `json:"warning,omitempty"`
}

// RiskResult is the response of a risk assessment call.
type RiskResult struct {
	RiskAssessment string `json:"risk_assessment"`
	Fallback       bool   `json:"fallback,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

// ChatResult is the response of a chatbot call.
type ChatResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Fallback bool   `json:"fallback,omitempty"`
}

// CreateAnalysisInput carries a completed analysis the client wants stored.
type CreateAnalysisInput struct {
	Type             string          `json:"type"`
	RawData          json.RawMessage `json:"raw_data"`
	StructuredData   json.RawMessage `json:"structured_data,omitempty"`
	VisualMetrics    json.RawMessage `json:"visual_metrics,omitempty"`
	RiskAssessment   string          `json:"risk_assessment,omitempty"`
	ProblemsDetected json.RawMessage `json:"problems_detected,omitempty"`
	Treatments       json.RawMessage `json:"treatments,omitempty"`
	ImageURL         string          `json:"image_url,omitempty"`
	Fallback         bool            `json:"fallback,omitempty"`
}

// AnalysisList is one page of a user's analysis history.
type AnalysisList struct {
	Analyses   []database.Analysis `json:"analyses"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
}

// AnalysisStats summarizes a user's analyses for the dashboard.
type AnalysisStats struct {
	Total          int64            `json:"total"`
	ByType         map[string]int64 `json:"by_type"`
	LastAnalysisAt *time.Time       `json:"last_analysis_at,omitempty"`
}
