package ai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// wrapProviderErr normalizes provider SDK errors. Quota and rate-limit
// conditions are mapped onto ErrQuotaExceeded so callers can switch on a
// typed error instead of matching message text.
func wrapProviderErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	if isQuotaErr(err) {
		return fmt.Errorf("%s: %w", provider, ErrQuotaExceeded)
	}
	return fmt.Errorf("%s request failed: %w", provider, err)
}

// isQuotaErr inspects the typed errors each provider SDK returns. The
// Gemini SDK surfaces googleapi errors over REST and gRPC status errors
// over its default transport; go-openai returns *openai.APIError.
func isQuotaErr(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	var aerr *openai.APIError
	if errors.As(err, &aerr) && aerr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}
