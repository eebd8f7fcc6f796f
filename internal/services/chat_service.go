package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/healthlens-ai/backend/internal/ai"
	"github.com/healthlens-ai/backend/internal/cache"
	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/domain"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/logger"
	"github.com/healthlens-ai/backend/internal/utils"
)

const (
	maxContextAnalyses = 10
	maxTranscriptTurns = 6
	maxTurnLength      = 500
	maxRiskExcerpt     = 200

	chatContextTTL = time.Minute
)

const chatSystemPrompt = `You are the health assistant of a personal health dashboard. Answer the user's question using only the health data and conversation below.

REQUIREMENTS:
- Base every statement on the provided data, never invent values
- Keep answers short and in plain language
- Recommend consulting a physician for diagnosis or treatment decisions
- If the data does not cover the question, say so`

// ChatService answers dashboard chatbot messages with the user's recent
// analyses pasted into the prompt as context.
type ChatService struct {
	remote ai.Analyzer
	local  ai.Analyzer
	repo   AnalysisStore
	cache  cache.Store
}

func NewChatService(remote, local ai.Analyzer, repo AnalysisStore, store cache.Store) *ChatService {
	return &ChatService{remote: remote, local: local, repo: repo, cache: store}
}

// Chat builds the context block, sends one prompt to the analyzer and
// returns the reply. Client-supplied analysis summaries take precedence
// over stored rows so the dashboard can chat about unsaved results.
func (s *ChatService) Chat(ctx context.Context, userID, message string, clientViews []domain.AnalysisView, history []domain.ChatTurn) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required")
	}

	views := clientViews
	if len(views) == 0 {
		var err error
		views, err = s.recentAnalyses(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	if len(views) > maxContextAnalyses {
		views = views[:maxContextAnalyses]
	}

	prompt := buildChatPrompt(renderContext(views), history, message)

	result := &ChatResult{Success: true}
	reply, err := s.remote.Reply(ctx, prompt)
	if errors.Is(err, ai.ErrQuotaExceeded) {
		logger.Warn("AI quota exhausted, using local chat reply", "user_id", userID)
		reply, err = s.local.Reply(ctx, prompt)
		result.Fallback = true
	}
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "AI")
	}

	result.Response = reply
	return result, nil
}

// recentAnalyses loads the newest stored analyses as context views, cached
// briefly since chat messages arrive in bursts.
func (s *ChatService) recentAnalyses(ctx context.Context, userID string) ([]domain.AnalysisView, error) {
	key := chatContextCacheKey(userID)

	var cached []domain.AnalysisView
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	rows, err := s.repo.ListByUser(ctx, userID, "", 0, maxContextAnalyses)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	views := make([]domain.AnalysisView, 0, len(rows))
	for _, row := range rows {
		views = append(views, rowToView(row))
	}

	if err := s.cache.Set(ctx, key, views, chatContextTTL); err != nil {
		logger.Warn("Chat context cache write failed", "error", err)
	}
	return views, nil
}

// rowToView projects a stored analysis onto the fields the context needs.
// Malformed JSON columns are skipped rather than failing the chat.
func rowToView(row database.Analysis) domain.AnalysisView {
	view := domain.AnalysisView{
		Type:           row.Type,
		CreatedAt:      row.CreatedAt,
		RiskAssessment: row.RiskAssessment,
	}
	if len(row.StructuredData) > 0 {
		var structured domain.StructuredReport
		if err := json.Unmarshal(row.StructuredData, &structured); err == nil {
			view.Structured = &structured
		}
	}
	if len(row.VisualMetrics) > 0 {
		var metrics []domain.VisualMetric
		if err := json.Unmarshal(row.VisualMetrics, &metrics); err == nil {
			view.VisualMetrics = metrics
		}
	}
	return view
}

// renderContext turns the analysis views into the plain-text block the
// prompt embeds, grouped by type with a temporal summary.
func renderContext(views []domain.AnalysisView) string {
	if len(views) == 0 {
		return "The user has no stored health data yet. If they ask about their results, tell them no analyses are available and suggest running one first."
	}

	var reports, faces, risks []domain.AnalysisView
	earliest, latest := views[0].CreatedAt, views[0].CreatedAt
	for _, view := range views {
		if view.CreatedAt.Before(earliest) {
			earliest = view.CreatedAt
		}
		if view.CreatedAt.After(latest) {
			latest = view.CreatedAt
		}
		switch view.Type {
		case database.AnalysisTypeReport:
			reports = append(reports, view)
		case database.AnalysisTypeFace:
			faces = append(faces, view)
		case database.AnalysisTypeRisk:
			risks = append(risks, view)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Health data on file: %d analyses covering %s.\n", len(views), utils.FormatDateSpan(earliest, latest))

	if len(reports) > 0 {
		b.WriteString("\nMedical reports:\n")
		for _, view := range reports {
			fmt.Fprintf(&b, "- %s: %s\n", view.CreatedAt.Format("2006-01-02"), describeReport(view.Structured))
		}
	}
	if len(faces) > 0 {
		b.WriteString("\nFace analyses:\n")
		for _, view := range faces {
			fmt.Fprintf(&b, "- %s: %s\n", view.CreatedAt.Format("2006-01-02"), describeVisualMetrics(view.VisualMetrics))
		}
	}
	if len(risks) > 0 {
		b.WriteString("\nRisk assessments:\n")
		for _, view := range risks {
			fmt.Fprintf(&b, "- %s: %s\n", view.CreatedAt.Format("2006-01-02"), utils.Truncate(view.RiskAssessment, maxRiskExcerpt))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func describeReport(structured *domain.StructuredReport) string {
	if structured == nil || len(structured.Metrics) == 0 {
		return "report stored without structured metrics"
	}

	var flagged []string
	for _, metric := range structured.Metrics {
		if metric.Status != "" && metric.Status != "normal" {
			flagged = append(flagged, fmt.Sprintf("%s %s (%s)", metric.Name, metric.Value, metric.Status))
		}
	}
	if len(flagged) == 0 {
		return fmt.Sprintf("%d metrics, all within range", len(structured.Metrics))
	}
	return fmt.Sprintf("%d metrics, out of range: %s", len(structured.Metrics), strings.Join(flagged, ", "))
}

func describeVisualMetrics(metrics []domain.VisualMetric) string {
	if len(metrics) == 0 {
		return "face analysis stored without indicators"
	}

	var flagged []string
	for _, metric := range metrics {
		if metric.Status != "" && metric.Status != "normal" {
			flagged = append(flagged, metric.Name)
		}
	}
	if len(flagged) == 0 {
		return fmt.Sprintf("%d indicators, all normal", len(metrics))
	}
	return fmt.Sprintf("%d indicators, needing attention: %s", len(metrics), strings.Join(flagged, ", "))
}

// buildChatPrompt concatenates the system prompt, context block, truncated
// transcript and new message into the single prompt the analyzer receives.
func buildChatPrompt(contextBlock string, history []domain.ChatTurn, message string) string {
	if len(history) > maxTranscriptTurns {
		history = history[len(history)-maxTranscriptTurns:]
	}

	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(contextBlock)

	if len(history) > 0 {
		b.WriteString("\n\nRecent conversation:\n")
		for _, turn := range history {
			role := "User"
			if turn.Role == "assistant" {
				role = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, utils.Truncate(turn.Content, maxTurnLength))
		}
	}

	b.WriteString("\nUser: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}

func chatContextCacheKey(userID string) string {
	return "chat:context:user:" + userID
}
