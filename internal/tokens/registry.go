// Package tokens estimates prompt sizes for the activity log.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens for the models it supports.
type Counter interface {
	SupportsModel(model string) bool
	CountText(model, text string) (int, error)
}

// Count is a token count and whether it came from an approximation.
type Count struct {
	Tokens    int  `json:"tokens"`
	Estimated bool `json:"estimated"`
}

// Registry picks the counter for a model, falling back to an Estimator.
type Registry struct {
	counters []Counter
	fallback *Estimator
}

// NewRegistry returns a registry with the tiktoken counter for OpenAI models.
func NewRegistry() *Registry {
	r := &Registry{fallback: NewEstimator()}
	r.Register(NewOpenAICounter())
	return r
}

// Register adds a counter. Earlier registrations win.
func (r *Registry) Register(c Counter) {
	r.counters = append(r.counters, c)
}

// Count counts text for model. It never fails: counter errors fall through to
// the estimator.
func (r *Registry) Count(model, text string) Count {
	for _, c := range r.counters {
		if !c.SupportsModel(model) {
			continue
		}
		if n, err := c.CountText(model, text); err == nil {
			return Count{Tokens: n}
		}
		break
	}
	return Count{Tokens: r.fallback.Estimate(text), Estimated: true}
}

// Estimator approximates counts for models without a local tokenizer
// (Claude, Gemini) using the o200k encoding, or CharsPerToken when the
// encoding is unavailable.
type Estimator struct {
	CharsPerToken float64

	once  sync.Once
	codec tokenizer.Codec
}

// NewEstimator creates an Estimator.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Estimate returns the approximate token count of text.
func (e *Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	e.once.Do(func() {
		if codec, err := tokenizer.Get(tokenizer.O200kBase); err == nil {
			e.codec = codec
		}
	})
	if e.codec != nil {
		if ids, _, err := e.codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return int(float64(len([]rune(text))) / e.CharsPerToken)
}

// ModelMatcher matches model names by prefix or exact name.
type ModelMatcher struct {
	prefixes []string
	exact    []string
}

// NewModelMatcher creates a new model matcher.
func NewModelMatcher(prefixes, exact []string) *ModelMatcher {
	return &ModelMatcher{
		prefixes: prefixes,
		exact:    exact,
	}
}

// Matches returns true if the model matches any pattern.
func (m *ModelMatcher) Matches(model string) bool {
	model = strings.ToLower(model)
	for _, e := range m.exact {
		if model == e {
			return true
		}
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
