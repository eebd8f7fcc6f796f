// Package ai wraps the generative-AI providers behind a single Analyzer
// interface and ships a deterministic local implementation used as a
// fallback when the remote provider is unavailable.
package ai

import (
	"context"
	"fmt"

	"github.com/healthlens-ai/backend/internal/config"
	"github.com/healthlens-ai/backend/internal/domain"
)

// Analyzer produces the four AI-backed results the API exposes. Remote
// implementations call a hosted model; the mock implementation derives
// deterministic results locally.
type Analyzer interface {
	// AnalyzeReport runs OCR + structuring over a medical report image.
	AnalyzeReport(ctx context.Context, image []byte, mimeType string) (*domain.ReportAnalysis, error)
	// AnalyzeFace derives visual health indicators from a face photo.
	AnalyzeFace(ctx context.Context, image []byte, mimeType string) ([]domain.VisualMetric, error)
	// AssessRisk generates a long-form risk assessment from collected data.
	AssessRisk(ctx context.Context, input domain.RiskInput) (string, error)
	// Reply answers a free-text chatbot prompt.
	Reply(ctx context.Context, prompt string) (string, error)
}

// NewRemoteAnalyzer builds the provider-backed Analyzer selected by the
// configuration.
func NewRemoteAnalyzer(ctx context.Context, cfg config.AIConfig) (Analyzer, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		return NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.Provider)
	}
}
