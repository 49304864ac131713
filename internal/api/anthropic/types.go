// Package anthropic provides the wire types and HTTP client for the Anthropic
// Messages API.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// ProviderName identifies Anthropic in errors and configuration.
const ProviderName = "anthropic"

// WebSearchToolType is the server-side web search tool version.
const WebSearchToolType = "web_search_20250305"

// MessagesRequest represents an Anthropic Messages API request.
type MessagesRequest struct {
	Model     string        `json:"model"`
	Messages  []Message     `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	System    []SystemBlock `json:"system,omitempty"`
	Tools     []Tool        `json:"tools,omitempty"`
}

// Message represents a message in the conversation.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is a single content block in a request message.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextContent builds a single text block.
func TextContent(text string) []ContentPart {
	return []ContentPart{{Type: "text", Text: text}}
}

// SystemBlock represents a system prompt block.
type SystemBlock struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	CacheControl *Cache `json:"cache_control,omitempty"`
}

// Cache represents cache control settings.
type Cache struct {
	Type string `json:"type"` // "ephemeral"
}

// Tool is a server tool the model may invoke.
type Tool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// MessagesResponse represents an Anthropic Messages API response.
type MessagesResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []ResponseContent `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
	Usage      MessagesUsage     `json:"usage"`
}

// Text concatenates the text blocks of the response. Tool use and search
// result blocks are skipped.
func (r *MessagesResponse) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// ResponseContent represents a content block in a response.
type ResponseContent struct {
	Type  string          `json:"type"` // "text", "server_tool_use", "web_search_tool_result"
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// MessagesUsage represents token usage in the response.
type MessagesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ErrorResponse represents an Anthropic API error.
type ErrorResponse struct {
	Type  string    `json:"type"`
	Error *APIError `json:"error"`
}

// APIError contains error details.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ToCanonical converts the Anthropic error to a canonical domain error. A nil
// receiver yields nil.
func (e *APIError) ToCanonical() *domain.APIError {
	if e == nil {
		return nil
	}
	var apiErr *domain.APIError
	switch e.Type {
	case "invalid_request_error":
		apiErr = domain.ErrInvalidRequest(e.Message)
		if strings.Contains(strings.ToLower(e.Message), "prompt is too long") {
			apiErr.Type = domain.ErrorTypeContextLength
			apiErr.Code = domain.ErrorCodeContextLengthExceeded
		}
	case "authentication_error":
		apiErr = domain.ErrAuthentication(e.Message)
	case "permission_error":
		apiErr = domain.ErrPermission(e.Message)
	case "not_found_error":
		apiErr = domain.NewAPIError(domain.ErrorTypeNotFound, e.Message).WithCode(domain.ErrorCodeModelNotFound)
	case "request_too_large":
		apiErr = domain.NewAPIError(domain.ErrorTypeContextLength, e.Message).WithCode(domain.ErrorCodeContextLengthExceeded)
	case "rate_limit_error":
		apiErr = domain.ErrRateLimit(e.Message)
	case "overloaded_error":
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
