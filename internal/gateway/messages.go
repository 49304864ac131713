package gateway

import (
	"errors"
	"fmt"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// Texts returned in place of an artifact when a call does not produce one.
const (
	MsgExhausted  = "AI request failed after multiple retries. The provider is busy; please try again in a few minutes."
	MsgNoResponse = "The AI returned no response. Try again, or adjust the grant details and retry."
	MsgCancelled  = "AI request was cancelled."
)

// Errors carried in Result.Err alongside the texts above.
var (
	ErrExhausted = errors.New("gateway: retries exhausted")
	ErrCeiling   = errors.New("gateway: request time ceiling exceeded")
	ErrEmpty     = errors.New("gateway: empty response")
)

// userMessage renders a non-retryable provider error for display.
func userMessage(e *domain.APIError) string {
	switch e.Type {
	case domain.ErrorTypeAuthentication:
		return "AI request failed: the provider rejected the API key. Check the AI configuration."
	case domain.ErrorTypePermission:
		return "AI request failed: the provider denied access to this model or feature."
	case domain.ErrorTypeNotFound:
		return "AI request failed: the configured model was not found."
	case domain.ErrorTypeContextLength:
		return "AI request failed: the request is too large for the model. Remove some uploaded documents and try again."
	case domain.ErrorTypeUnsupported:
		return "AI request failed: the provider cannot process this content."
	case domain.ErrorTypeInvalidRequest:
		return fmt.Sprintf("AI request failed: the provider rejected the request (%s).", e.Message)
	}
	return fmt.Sprintf("AI request failed: %s", e.Message)
}
