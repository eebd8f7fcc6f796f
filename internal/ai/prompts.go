package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/healthlens-ai/backend/internal/domain"
)

const reportPrompt = `You are a medical laboratory specialist. Your task is to read the medical report in the image and convert it into structured data.

TASK:
1. Transcribe all readable text from the report
2. Extract every lab metric with its value, unit and reference range
3. Flag metrics that fall outside their reference range and derive the problems they indicate
4. Suggest a practical recommendation for each detected problem
5. Provide the information in a specific JSON format

REQUIREMENTS:
- Transcribe values exactly as printed, do not normalize units
- Set status to "normal", "low", "high" or "borderline" based on the reference range
- Severity must be "mild", "moderate" or "severe"
- Recommendations must be practical lifestyle or follow-up advice, never a prescription
- Keep the summary to two or three sentences
- If a section of the report is unreadable, skip it rather than guessing

CRITICAL JSON FORMAT REQUIREMENTS:
- Your response MUST be a valid JSON object
- Do not include any markdown formatting, bullet points, or dashes
- Do not include any explanatory text before or after the JSON
- The JSON must have these exact fields:
  {
    "raw_text": "full transcribed text",
    "structured_data": {
      "metrics": [{"name": "Hemoglobin", "value": "13.5", "unit": "g/dL", "status": "normal", "reference_range": "12-17.5 g/dL"}],
      "problems_detected": [{"name": "Low Hemoglobin", "severity": "moderate", "details": "..."}],
      "treatments": [{"problem": "Low Hemoglobin", "recommendation": "..."}],
      "summary": "..."
    }
  }`

const facePrompt = `You are a health screening assistant. Your task is to assess the face photo for visible, non-diagnostic health indicators.

TASK:
1. Evaluate skin appearance, eye clarity, lip color, facial symmetry and visible fatigue signs
2. Grade each indicator as "normal", "attention" or "concern"
3. Add a short note per indicator explaining what was observed
4. Provide the information in a specific JSON format

REQUIREMENTS:
- Only describe what is visible in the photo
- Never name a disease or give a diagnosis
- Notes must be one sentence each
- If the photo does not show a human face clearly, grade every indicator "attention" and say so in the note

CRITICAL JSON FORMAT REQUIREMENTS:
- Your response MUST be a valid JSON object
- Do not include any markdown formatting, bullet points, or dashes
- Do not include any explanatory text before or after the JSON
- The JSON must have these exact fields:
  {
    "visual_metrics": [{"name": "Skin Appearance", "value": "even tone", "status": "normal", "note": "..."}]
  }`

const riskPromptHeader = `You are a preventive-health advisor. Your task is to write a risk assessment from the data collected about a user.

REQUIREMENTS:
- Write in plain language a non-medical reader understands
- Organize the text into these sections: Overall Risk Level, Key Findings, Recommendations, Disclaimer
- Base every finding on the supplied data only, never invent values
- The Overall Risk Level must be one of: low, moderate, elevated, high
- Recommendations must be lifestyle and follow-up advice, never a prescription
- Close with a disclaimer that this is not a medical diagnosis

COLLECTED DATA:`

// buildRiskPrompt renders the risk input sections as labelled JSON blocks
// appended to the instruction header. Empty sections are omitted.
func buildRiskPrompt(input domain.RiskInput) string {
	var b strings.Builder
	b.WriteString(riskPromptHeader)
	if len(input.LabData) > 0 {
		writeSection(&b, "Lab data", input.LabData)
	}
	if len(input.VisualMetrics) > 0 {
		writeSection(&b, "Visual metrics", input.VisualMetrics)
	}
	if len(input.UserData) > 0 {
		writeSection(&b, "User data", input.UserData)
	}
	return b.String()
}

func writeSection(b *strings.Builder, label string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "\n\n%s:\n%s", label, raw)
}
