// Package httpx holds the HTTP plumbing shared by the provider API clients.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// maxSnippet bounds how much of an unparseable error body ends up in a message.
const maxSnippet = 512

// RetryAfter parses a Retry-After header given either as delta-seconds or as
// an HTTP date. It returns 0 when the header is absent or unusable.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return 0
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// ErrorFromResponse builds the canonical error for a non-2xx response.
// parsed is the provider's own decoded error, or nil when the body did not
// decode. Throttling and overload statuses win over the body's error type so
// that retry classification does not depend on provider wording.
func ErrorFromResponse(resp *http.Response, body []byte, parsed *domain.APIError, provider string) *domain.APIError {
	var apiErr *domain.APIError
	switch {
	case parsed == nil:
		apiErr = domain.ErrorFromStatus(resp.StatusCode,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, Snippet(body)))
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == 529:
		apiErr = domain.ErrorFromStatus(resp.StatusCode, parsed.Message)
	default:
		apiErr = parsed.WithStatusCode(resp.StatusCode)
	}

	if d := RetryAfter(resp.Header, time.Now()); d > 0 {
		apiErr.WithRetryAfter(d)
	}
	return apiErr.WithProvider(provider)
}

// TransportError classifies a failure from http.Client.Do. Cancellation is
// passed through untouched; anything else is a network error.
func TransportError(ctx context.Context, err error, provider string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ErrNetwork(fmt.Sprintf("request failed: %v", err)).WithProvider(provider)
}

// Snippet returns a printable prefix of an error body.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippet {
		return s[:maxSnippet] + "..."
	}
	return s
}
