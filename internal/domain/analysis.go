package domain

import "time"

// LabMetric is a single measured value extracted from a medical report.
type LabMetric struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Unit      string `json:"unit,omitempty"`
	Status    string `json:"status"` // normal | low | high | borderline
	Reference string `json:"reference_range,omitempty"`
}

// Problem is a finding derived from report metrics.
type Problem struct {
	Name     string `json:"name"`
	Severity string `json:"severity"` // mild | moderate | severe
	Details  string `json:"details,omitempty"`
}

// Treatment is a recommendation tied to a detected problem.
type Treatment struct {
	Problem        string `json:"problem"`
	Recommendation string `json:"recommendation"`
}

// StructuredReport is the parsed form of a report analysis.
type StructuredReport struct {
	Metrics          []LabMetric `json:"metrics"`
	ProblemsDetected []Problem   `json:"problems_detected"`
	Treatments       []Treatment `json:"treatments"`
	Summary          string      `json:"summary,omitempty"`
}

// ReportAnalysis is the full result of OCR + structuring over a report image.
type ReportAnalysis struct {
	RawText    string           `json:"raw_text"`
	Structured StructuredReport `json:"structured_data"`
}

// VisualMetric is a facial indicator produced by image analysis.
type VisualMetric struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Status string `json:"status"` // normal | attention | concern
	Note   string `json:"note,omitempty"`
}

// RiskInput aggregates the data sections a risk assessment is generated from.
// All sections are optional but at least one must be present.
type RiskInput struct {
	LabData       map[string]any `json:"lab_data"`
	VisualMetrics []VisualMetric `json:"visual_metrics"`
	UserData      map[string]any `json:"user_data"`
}

// Empty reports whether no section carries data.
func (r RiskInput) Empty() bool {
	return len(r.LabData) == 0 && len(r.VisualMetrics) == 0 && len(r.UserData) == 0
}

// ChatTurn is one message of a chatbot conversation transcript.
type ChatTurn struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// AnalysisView is the slice of an Analysis row the chatbot context is built
// from. It is assembled either from stored rows or from client-supplied
// summaries.
type AnalysisView struct {
	Type           string            `json:"type"`
	CreatedAt      time.Time         `json:"created_at"`
	Structured     *StructuredReport `json:"structured_data,omitempty"`
	VisualMetrics  []VisualMetric    `json:"visual_metrics,omitempty"`
	RiskAssessment string            `json:"risk_assessment,omitempty"`
}
