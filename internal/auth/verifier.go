// Package auth validates bearer tokens against the hosted identity
// provider's userinfo endpoint.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/healthlens-ai/backend/internal/cache"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/logger"
)

// Identity is the subject reported by the identity provider for a token.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// TokenVerifier resolves a bearer token to the identity it belongs to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// ProviderVerifier calls the provider's userinfo endpoint and caches
// successful lookups by token digest so repeated requests with the same
// token skip the round trip.
type ProviderVerifier struct {
	client      *http.Client
	userInfoURL string
	cache       cache.Store
	ttl         time.Duration
}

func NewProviderVerifier(userInfoURL string, ttl time.Duration, store cache.Store) *ProviderVerifier {
	return &ProviderVerifier{
		client:      &http.Client{Timeout: 10 * time.Second},
		userInfoURL: userInfoURL,
		cache:       store,
		ttl:         ttl,
	}
}

func (v *ProviderVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apperrors.NewPermissionError("missing bearer token")
	}

	key := tokenCacheKey(token)
	var cached Identity
	if hit, err := v.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	} else if err != nil {
		logger.Warn("Token cache read failed", "error", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("failed to build userinfo request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "auth provider")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewPermissionError("invalid or expired token")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("userinfo returned status %d", resp.StatusCode), "auth provider")
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("failed to decode userinfo response: %w", err), "auth provider")
	}
	if identity.Subject == "" {
		return nil, apperrors.NewPermissionError("userinfo response carries no subject")
	}

	if err := v.cache.Set(ctx, key, identity, v.ttl); err != nil {
		logger.Warn("Token cache write failed", "error", err)
	}

	return &identity, nil
}

// tokenCacheKey hashes the token so raw credentials never become cache keys.
func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}
