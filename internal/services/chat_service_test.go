package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthlens-ai/backend/internal/ai"
	"github.com/healthlens-ai/backend/internal/cache"
	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/domain"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
)

func newTestChatService(remote, local ai.Analyzer, store AnalysisStore) *ChatService {
	return NewChatService(remote, local, store, cache.NewMemoryStore())
}

func TestChat_EmptyMessage(t *testing.T) {
	remote := &stubAnalyzer{reply: "hello"}
	svc := newTestChatService(remote, &stubAnalyzer{}, &stubAnalysisStore{})

	_, err := svc.Chat(context.Background(), "user-1", "   ", nil, nil)

	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Zero(t, remote.calls)
}

func TestChat_NoStoredAnalyses(t *testing.T) {
	remote := &stubAnalyzer{reply: "You have no analyses yet."}
	svc := newTestChatService(remote, &stubAnalyzer{}, &stubAnalysisStore{})

	result, err := svc.Chat(context.Background(), "user-1", "How am I doing?", nil, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, remote.lastPrompt, "no stored health data",
		"the context block must state that no data is available")
}

func TestChat_ContextFromStoredRows(t *testing.T) {
	store := &stubAnalysisStore{analyses: []database.Analysis{
		{
			ID:             uuid.New(),
			UserID:         "user-1",
			Type:           database.AnalysisTypeReport,
			StructuredData: []byte(`{"metrics":[{"name":"Hemoglobin","value":"9","unit":"g/dL","status":"low"}]}`),
			CreatedAt:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:             uuid.New(),
			UserID:         "user-1",
			Type:           database.AnalysisTypeRisk,
			RiskAssessment: "Overall Risk Level: moderate",
			CreatedAt:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
	remote := &stubAnalyzer{reply: "Your hemoglobin is low."}
	svc := newTestChatService(remote, &stubAnalyzer{}, store)

	result, err := svc.Chat(context.Background(), "user-1", "What about my blood work?", nil, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, remote.lastPrompt, "Hemoglobin 9 (low)")
	assert.Contains(t, remote.lastPrompt, "Overall Risk Level: moderate")
	assert.Contains(t, remote.lastPrompt, "2025-03-01 to 2025-06-01")
}

func TestChat_ClientViewsTakePrecedence(t *testing.T) {
	store := &stubAnalysisStore{}
	remote := &stubAnalyzer{reply: "ok"}
	svc := newTestChatService(remote, &stubAnalyzer{}, store)

	views := []domain.AnalysisView{{
		Type:      database.AnalysisTypeFace,
		CreatedAt: time.Now(),
		VisualMetrics: []domain.VisualMetric{
			{Name: "Fatigue Signs", Status: "attention"},
		},
	}}

	_, err := svc.Chat(context.Background(), "user-1", "Do I look tired?", views, nil)

	require.NoError(t, err)
	assert.Zero(t, store.listCalls, "client-supplied context must skip the database")
	assert.Contains(t, remote.lastPrompt, "Fatigue Signs")
}

func TestChat_StoredContextIsCached(t *testing.T) {
	store := &stubAnalysisStore{}
	remote := &stubAnalyzer{reply: "ok"}
	svc := newTestChatService(remote, &stubAnalyzer{}, store)

	for i := 0; i < 3; i++ {
		_, err := svc.Chat(context.Background(), "user-1", "hello", nil, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, store.listCalls, "repeat messages must reuse the cached context")
}

func TestChat_TranscriptKeepsRecentTurns(t *testing.T) {
	remote := &stubAnalyzer{reply: "ok"}
	svc := newTestChatService(remote, &stubAnalyzer{}, &stubAnalysisStore{})

	history := make([]domain.ChatTurn, 0, 10)
	for i := 1; i <= 10; i++ {
		history = append(history, domain.ChatTurn{Role: "user", Content: fmt.Sprintf("turn number %d", i)})
	}

	_, err := svc.Chat(context.Background(), "user-1", "latest question", nil, history)

	require.NoError(t, err)
	assert.NotContains(t, remote.lastPrompt, "turn number 4")
	assert.Contains(t, remote.lastPrompt, "turn number 5")
	assert.Contains(t, remote.lastPrompt, "turn number 10")
}

func TestChat_QuotaFallback(t *testing.T) {
	remote := &stubAnalyzer{err: fmt.Errorf("gemini: %w", ai.ErrQuotaExceeded)}
	local := &stubAnalyzer{reply: "general guidance only"}
	svc := newTestChatService(remote, local, &stubAnalysisStore{})

	result, err := svc.Chat(context.Background(), "user-1", "hello", nil, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Fallback)
	assert.Equal(t, "general guidance only", result.Response)
}

func TestRenderContext_EmptyViewsDoNotCrash(t *testing.T) {
	text := renderContext(nil)
	assert.Contains(t, text, "no stored health data")

	text = renderContext([]domain.AnalysisView{})
	assert.Contains(t, text, "no stored health data")
}
