package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/logger"
)

type contextKey string

const userContextKey contextKey = "user"

// requestLogger logs every request with its final status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requireAuth verifies the bearer token, upserts the local user row and
// stores it on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := s.deps.Verifier.Verify(r.Context(), token)
		if err != nil {
			s.handleError(r.Context(), w, err)
			return
		}

		user, err := s.deps.Users.EnsureUser(r.Context(), identity)
		if err != nil {
			s.handleError(r.Context(), w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// userFrom returns the authenticated user stored by requireAuth.
func userFrom(ctx context.Context) *database.User {
	user, _ := ctx.Value(userContextKey).(*database.User)
	return user
}
