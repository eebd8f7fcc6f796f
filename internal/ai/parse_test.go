package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", `Here is the result: {"a":1}. Let me know!`, `{"a":1}`},
		{"no braces", "no json here", ""},
		{"only opening brace", "{oops", ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}

func TestParseReportResponse(t *testing.T) {
	text := "```json\n" + `{
		"raw_text": "Hemoglobin: 9 g/dL",
		"structured_data": {
			"metrics": [{"name": "Hemoglobin", "value": "9", "unit": "g/dL", "status": "low", "reference_range": "12-17.5 g/dL"}],
			"problems_detected": [{"name": "Low Hemoglobin", "severity": "severe"}],
			"treatments": [],
			"summary": "Hemoglobin is low."
		}
	}` + "\n```"

	result, err := parseReportResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobin: 9 g/dL", result.RawText)
	require.Len(t, result.Structured.Metrics, 1)
	assert.Equal(t, "Hemoglobin", result.Structured.Metrics[0].Name)
	require.Len(t, result.Structured.ProblemsDetected, 1)
	assert.Equal(t, "severe", result.Structured.ProblemsDetected[0].Severity)
}

func TestParseReportResponseNoJSON(t *testing.T) {
	_, err := parseReportResponse("the model refused to answer")
	assert.Error(t, err)
}

func TestParseFaceResponse(t *testing.T) {
	text := `{"visual_metrics": [{"name": "Eye Clarity", "value": "clear", "status": "normal", "note": "ok"}]}`

	metrics, err := parseFaceResponse(text)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "Eye Clarity", metrics[0].Name)
	assert.Equal(t, "normal", metrics[0].Status)
}
