package gateway

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// Backoff bases. The delay before retry n (1-based) is base*n unless the
// provider suggested a wait.
const (
	RateLimitBackoff  = 10 * time.Second
	OverloadedBackoff = 15 * time.Second
	NetworkBackoff    = 5 * time.Second
)

// classify turns any provider error into a canonical one. Errors that are
// neither canonical nor recognisably transport failures become server errors
// and are not retried.
func classify(err error) *domain.APIError {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.ErrNetwork(err.Error())
	}
	return domain.ErrServer(err.Error())
}

// Backoff returns the wait after the given failed attempt (1-based).
func Backoff(e *domain.APIError, attempt int) time.Duration {
	n := time.Duration(attempt)
	switch e.Type {
	case domain.ErrorTypeRateLimit:
		if e.RetryAfter > 0 {
			return e.RetryAfter
		}
		return RateLimitBackoff * n
	case domain.ErrorTypeOverloaded:
		return OverloadedBackoff * n
	case domain.ErrorTypeNetwork:
		return NetworkBackoff * n
	}
	return 0
}
