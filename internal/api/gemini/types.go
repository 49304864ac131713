// Package gemini provides the wire types and HTTP client for the Google
// Gemini generateContent API.
package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// ProviderName identifies Gemini in errors and configuration.
const ProviderName = "gemini"

// Gemini role names. Assistant turns are called "model".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// GenerateContentRequest is the body of models/{model}:generateContent.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a single turn made of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a content fragment. Only text is used here.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Tool enables a built-in capability.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"google_search,omitempty"`
}

// GoogleSearch enables search grounding. It carries no options.
type GoogleSearch struct{}

// GenerationConfig bounds the reply.
type GenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

// GenerateContentResponse is the reply to generateContent.
type GenerateContentResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion,omitempty"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FinishReason returns the first candidate's finish reason, or "".
func (r *GenerateContentResponse) FinishReason() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].FinishReason
}

// Candidate is one generated reply.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// UsageMetadata reports token counts.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// ErrorResponse wraps a Google API error.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError contains error details.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Status, e.Code, e.Message)
}

// ToCanonical converts the Gemini error to a canonical domain error. A nil
// receiver yields nil.
func (e *APIError) ToCanonical() *domain.APIError {
	if e == nil {
		return nil
	}
	var apiErr *domain.APIError
	switch e.Status {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "OUT_OF_RANGE":
		apiErr = domain.ErrInvalidRequest(e.Message)
	case "UNAUTHENTICATED":
		apiErr = domain.ErrAuthentication(e.Message)
	case "PERMISSION_DENIED":
		apiErr = domain.ErrPermission(e.Message)
	case "NOT_FOUND":
		apiErr = domain.NewAPIError(domain.ErrorTypeNotFound, e.Message).WithCode(domain.ErrorCodeModelNotFound)
	case "RESOURCE_EXHAUSTED":
		apiErr = domain.ErrRateLimit(e.Message)
	case "UNAVAILABLE":
		apiErr = domain.ErrOverloaded(e.Message)
	default:
		apiErr = domain.ErrServer(e.Message)
	}
	return apiErr.WithProvider(ProviderName)
}

// ParseErrorResponse attempts to parse an error response from JSON.
func ParseErrorResponse(data []byte) (*APIError, error) {
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return nil, err
	}
	if errResp.Error == nil {
		return nil, nil
	}
	return errResp.Error, nil
}
