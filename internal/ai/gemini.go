package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/healthlens-ai/backend/internal/domain"
)

// GeminiAnalyzer runs all analysis tasks against the Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

func (g *GeminiAnalyzer) AnalyzeReport(ctx context.Context, image []byte, mimeType string) (*domain.ReportAnalysis, error) {
	img := genai.ImageData(mimeSubtype(mimeType), image)
	text, err := g.generate(ctx, img, genai.Text(reportPrompt))
	if err != nil {
		return nil, err
	}
	return parseReportResponse(text)
}

func (g *GeminiAnalyzer) AnalyzeFace(ctx context.Context, image []byte, mimeType string) ([]domain.VisualMetric, error) {
	img := genai.ImageData(mimeSubtype(mimeType), image)
	text, err := g.generate(ctx, img, genai.Text(facePrompt))
	if err != nil {
		return nil, err
	}
	return parseFaceResponse(text)
}

func (g *GeminiAnalyzer) AssessRisk(ctx context.Context, input domain.RiskInput) (string, error) {
	text, err := g.generate(ctx, genai.Text(buildRiskPrompt(input)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiAnalyzer) Reply(ctx context.Context, prompt string) (string, error) {
	text, err := g.generate(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiAnalyzer) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", wrapProviderErr("gemini", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("gemini returned a non-text response")
	}
	return string(text), nil
}

// mimeSubtype converts "image/png" to the bare format name the Gemini SDK
// expects.
func mimeSubtype(mimeType string) string {
	if i := strings.Index(mimeType, "/"); i >= 0 {
		return mimeType[i+1:]
	}
	return mimeType
}
