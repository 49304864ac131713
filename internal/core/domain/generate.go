package domain

import "fmt"

// Action is an AI action that produces a grant artifact.
type Action string

const (
	ActionDraft    Action = "draft"
	ActionResearch Action = "research"
	ActionFitScore Action = "fitscore"
	ActionFollowUp Action = "followup"
	ActionWinLoss  Action = "winloss"

	// ActionScout searches for new opportunities. It produces no artifact on
	// an existing grant.
	ActionScout Action = "scout"
)

// Actions lists the AI actions that write a grant artifact.
var Actions = []Action{ActionDraft, ActionResearch, ActionFitScore, ActionFollowUp, ActionWinLoss}

// ParseAction validates an action name.
func ParseAction(v string) (Action, error) {
	for _, a := range Actions {
		if string(a) == v {
			return a, nil
		}
	}
	return "", ErrInvalidRequest(fmt.Sprintf("unknown AI action %q", v)).WithParam("action")
}

// GenerateRequest is the provider-agnostic text generation request. It is
// built per invocation and never stored.
type GenerateRequest struct {
	SystemPrompt    string `json:"system_prompt"`
	UserPrompt      string `json:"user_prompt"`
	SearchEnabled   bool   `json:"search_enabled"`
	MaxOutputTokens int    `json:"max_output_tokens"`
}

// Usage reports token consumption for a single provider call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// GenerateResponse is a provider reply normalised to plain text.
type GenerateResponse struct {
	Text       string `json:"text"`
	Model      string `json:"model,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage"`
}
