package interfaces

import (
	"context"

	"github.com/healthlens-ai/backend/internal/auth"
	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/domain"
	"github.com/healthlens-ai/backend/internal/services"
)

// AnalysisServiceInterface defines the contract for analysis operations
type AnalysisServiceInterface interface {
	AnalyzeReport(ctx context.Context, userID string, image []byte, mimeType string) (*services.ReportResult, error)
	AnalyzeFace(ctx context.Context, userID string, image []byte, mimeType string) (*services.FaceResult, error)
	AssessRisk(ctx context.Context, userID string, input domain.RiskInput) (*services.RiskResult, error)
	Create(ctx context.Context, userID string, input services.CreateAnalysisInput) (*database.Analysis, error)
	List(ctx context.Context, userID string, page, limit int, analysisType string) (*services.AnalysisList, error)
	Get(ctx context.Context, userID, id string) (*database.Analysis, error)
	Stats(ctx context.Context, userID string) (*services.AnalysisStats, error)
}

// ChatServiceInterface defines the contract for chatbot operations
type ChatServiceInterface interface {
	Chat(ctx context.Context, userID, message string, clientViews []domain.AnalysisView, history []domain.ChatTurn) (*services.ChatResult, error)
}

// UserServiceInterface defines the contract for user operations
type UserServiceInterface interface {
	EnsureUser(ctx context.Context, identity *auth.Identity) (*database.User, error)
	GetProfile(ctx context.Context, userID string) (*database.User, error)
	UpdateProfile(ctx context.Context, userID, name string) (*database.User, error)
}
