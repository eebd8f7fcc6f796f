package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/healthlens-ai/backend/internal/domain"
)

type reportPayload struct {
	RawText    string                  `json:"raw_text"`
	Structured domain.StructuredReport `json:"structured_data"`
}

type facePayload struct {
	VisualMetrics []domain.VisualMetric `json:"visual_metrics"`
}

func parseReportResponse(text string) (*domain.ReportAnalysis, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}
	var payload reportPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &domain.ReportAnalysis{RawText: payload.RawText, Structured: payload.Structured}, nil
}

func parseFaceResponse(text string) ([]domain.VisualMetric, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}
	var payload facePayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return payload.VisualMetrics, nil
}

// extractJSON attempts to extract a valid JSON object from the given string.
// It handles cases where the JSON is wrapped in code blocks (```json ... ```) or other text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
