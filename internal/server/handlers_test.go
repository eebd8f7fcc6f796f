package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/healthlens-ai/backend/internal/ai"
	"github.com/healthlens-ai/backend/internal/auth"
	"github.com/healthlens-ai/backend/internal/cache"
	"github.com/healthlens-ai/backend/internal/config"
	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/domain"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/services"
)

type stubVerifier struct {
	identity *auth.Identity
	err      error
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type stubAnalyzer struct {
	report *domain.ReportAnalysis
	face   []domain.VisualMetric
	risk   string
	reply  string
	err    error
	calls  int
}

func (s *stubAnalyzer) AnalyzeReport(ctx context.Context, image []byte, mimeType string) (*domain.ReportAnalysis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubAnalyzer) AnalyzeFace(ctx context.Context, image []byte, mimeType string) ([]domain.VisualMetric, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.face, nil
}

func (s *stubAnalyzer) AssessRisk(ctx context.Context, input domain.RiskInput) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.risk, nil
}

func (s *stubAnalyzer) Reply(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubAnalysisStore struct {
	analyses []database.Analysis
	total    int64
	counts   map[string]int64
	last     *time.Time
}

func (s *stubAnalysisStore) Create(ctx context.Context, analysis *database.Analysis) error {
	analysis.ID = uuid.New()
	s.analyses = append(s.analyses, *analysis)
	return nil
}

func (s *stubAnalysisStore) ListByUser(ctx context.Context, userID, analysisType string, offset, limit int) ([]database.Analysis, error) {
	if offset >= len(s.analyses) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.analyses) {
		end = len(s.analyses)
	}
	return s.analyses[offset:end], nil
}

func (s *stubAnalysisStore) CountByUser(ctx context.Context, userID, analysisType string) (int64, error) {
	return s.total, nil
}

func (s *stubAnalysisStore) GetByID(ctx context.Context, userID string, id uuid.UUID) (*database.Analysis, error) {
	for i := range s.analyses {
		if s.analyses[i].ID == id && s.analyses[i].UserID == userID {
			return &s.analyses[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAnalysisStore) CountGroupedByType(ctx context.Context, userID string) (map[string]int64, error) {
	return s.counts, nil
}

func (s *stubAnalysisStore) LastCreatedAt(ctx context.Context, userID string) (*time.Time, error) {
	return s.last, nil
}

type stubUserStore struct {
	users map[string]*database.User
}

func (s *stubUserStore) GetOrCreate(ctx context.Context, id, email, name string) (*database.User, error) {
	if s.users == nil {
		s.users = map[string]*database.User{}
	}
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	user := &database.User{ID: id, Email: email, Name: name}
	s.users[id] = user
	return user, nil
}

func (s *stubUserStore) GetByID(ctx context.Context, id string) (*database.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) UpdateName(ctx context.Context, id, name string) error {
	if user, ok := s.users[id]; ok {
		user.Name = name
	}
	return nil
}

// testEnv wires real services over stub stores and analyzers so requests
// run the full router path.
type testEnv struct {
	router http.Handler
	remote *stubAnalyzer
	local  *stubAnalyzer
	store  *stubAnalysisStore
	users  *stubUserStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		remote: &stubAnalyzer{
			report: &domain.ReportAnalysis{RawText: "Hemoglobin: 14.1 g/dL"},
			face:   []domain.VisualMetric{{Name: "Eye Clarity", Status: "normal"}},
			risk:   "Overall Risk Level: low",
			reply:  "All good.",
		},
		local: &stubAnalyzer{
			report: &domain.ReportAnalysis{RawText: "local analysis"},
			face:   []domain.VisualMetric{{Name: "Eye Clarity", Status: "normal"}},
			risk:   "Overall Risk Level: low",
			reply:  "local reply",
		},
		store: &stubAnalysisStore{},
		users: &stubUserStore{},
	}

	memCache := cache.NewMemoryStore()
	deps := Deps{
		Analyses: services.NewAnalysisService(env.remote, env.local, env.store, nil, memCache),
		Chat:     services.NewChatService(env.remote, env.local, env.store, memCache),
		Users:    services.NewUserService(env.users, memCache, 5*time.Minute),
		Verifier: &stubVerifier{identity: &auth.Identity{Subject: "auth0|abc", Email: "jane@example.com", Name: "Jane"}},
	}

	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, deps)
	env.router = srv.Routes([]string{"*"})
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request, withToken bool) *httptest.ResponseRecorder {
	t.Helper()
	if withToken {
		req.Header.Set("Authorization", "Bearer token-1")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func multipartUpload(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="upload.bin"`)
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])
}

func TestAPI_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses", nil), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["error"], "bearer token")
}

func TestAPI_RejectedToken(t *testing.T) {
	srv := New(config.ServerConfig{}, Deps{
		Verifier: &stubVerifier{err: apperrors.NewPermissionError("invalid or expired token")},
	})
	router := srv.Routes(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["error"], "invalid or expired")
}

func TestAnalyzeReport_Success(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "image/jpeg", []byte("fake image"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/report", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, "Hemoglobin: 14.1 g/dL", payload["raw_text"])
	assert.Nil(t, payload["fallback"])
	assert.Equal(t, 1, env.remote.calls)
}

func TestAnalyzeReport_UnsupportedType(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "image/gif", []byte("gif"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/report", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.remote.calls, "validation must reject the upload before any AI call")
}

func TestAnalyzeReport_MissingFileField(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/report", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.remote.calls)
}

func TestAnalyzeReport_PDFNotImplemented(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "application/pdf", []byte("%PDF-1.7"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/report", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["error"], "not implemented")
	assert.Zero(t, env.remote.calls)
}

func TestAnalyzeReport_QuotaFallback(t *testing.T) {
	env := newTestEnv(t)
	env.remote.err = fmt.Errorf("gemini: %w", ai.ErrQuotaExceeded)

	body, contentType := multipartUpload(t, "image/jpeg", []byte("fake image"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/report", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, true, payload["fallback"])
	assert.NotEmpty(t, payload["warning"])
	assert.Equal(t, "local analysis", payload["raw_text"])
}

func TestAnalyzeReport_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.remote.err = errors.New("connection reset")

	body, contentType := multipartUpload(t, "image/jpeg", []byte("fake image"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/report", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, env.local.calls, "non-quota failures must not fall back")
}

func TestAnalyzeFace_RejectsPDF(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "application/pdf", []byte("%PDF-1.7"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/face", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.remote.calls)
}

func TestAnalyzeRisk_EmptyInput(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/risk", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.remote.calls)
}

func TestAnalyzeRisk_Success(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/risk",
		bytes.NewBufferString(`{"lab_data":{"hemoglobin":11.2}}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Overall Risk Level: low", decodeJSON(t, rec)["risk_assessment"])
}

func TestCreateAnalysis(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyses",
		bytes.NewBufferString(`{"type":"report","raw_data":{"raw_text":"Hemoglobin: 11.2"}}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, env.store.analyses, 1)
	assert.Equal(t, "auth0|abc", env.store.analyses[0].UserID)
}

func TestCreateAnalysis_UnknownType(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyses",
		bytes.NewBufferString(`{"type":"xray","raw_data":{}}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAnalyses_Pagination(t *testing.T) {
	env := newTestEnv(t)
	env.store.total = 25
	for i := 0; i < 25; i++ {
		env.store.analyses = append(env.store.analyses, database.Analysis{
			ID: uuid.New(), UserID: "auth0|abc", Type: "report", RawData: []byte(`{}`),
		})
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses?page=1&limit=10", nil), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, float64(25), payload["total"])
	assert.Equal(t, float64(3), payload["totalPages"])
	assert.Len(t, payload["analyses"], 10)
}

func TestListAnalyses_LimitTooLarge(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=101", nil), true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAnalyses_BadPageParam(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses?page=abc", nil), true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/"+uuid.NewString(), nil), true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnalysis_OwnedRow(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	env.store.analyses = []database.Analysis{{ID: id, UserID: "auth0|abc", Type: "risk", RawData: []byte(`{}`)}}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/"+id.String(), nil), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.String(), decodeJSON(t, rec)["id"])
}

func TestAnalysisStats(t *testing.T) {
	env := newTestEnv(t)
	last := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env.store.counts = map[string]int64{"report": 2, "face": 1}
	env.store.last = &last

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/stats", nil), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, float64(3), payload["total"])
	assert.NotNil(t, payload["by_type"])
	assert.NotEmpty(t, payload["last_analysis_at"])
}

func TestChatbot_EmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", bytes.NewBufferString(`{"message":"  "}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatbot_Success(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot",
		bytes.NewBufferString(`{"message":"How am I doing?","conversationHistory":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "All good.", payload["response"])
}

func TestProfile_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane@example.com", decodeJSON(t, rec)["email"])

	req := httptest.NewRequest(http.MethodPut, "/api/profile", bytes.NewBufferString(`{"name":"Janet"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(t, req, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Janet", decodeJSON(t, rec)["name"])
}

func TestProfile_UpdateEmptyName(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPut, "/api/profile", bytes.NewBufferString(`{"name":""}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
