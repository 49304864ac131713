package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// PromptSpec declares the prompts and call options for one AI action.
// System and User are text/template sources rendered with PromptData.
type PromptSpec struct {
	Action          domain.Action
	System          string
	User            string
	Search          bool
	MaxOutputTokens int
}

// PromptData is the input to prompt templates.
type PromptData struct {
	Grant   *domain.Grant
	OrgName string
	Context string
	Brief   string
	Today   string
}

// Ask returns the grant's ask for display.
func (d PromptData) Ask() string {
	if d.Grant == nil || d.Grant.EffectiveAsk() <= 0 {
		return "not decided"
	}
	return "R" + formatRand(d.Grant.EffectiveAsk())
}

// Deadline returns the grant's deadline for display.
func (d PromptData) Deadline() string {
	if d.Grant == nil || d.Grant.Deadline == nil {
		return "not set"
	}
	return d.Grant.Deadline.Format("2 January 2006")
}

type prompt struct {
	spec   PromptSpec
	system *template.Template
	user   *template.Template
}

// Prompts holds compiled prompt templates by action.
type Prompts struct {
	byAction map[domain.Action]prompt
}

// NewPrompts compiles prompt specs. Later specs replace earlier ones for the
// same action.
func NewPrompts(specs ...PromptSpec) (*Prompts, error) {
	p := &Prompts{byAction: make(map[domain.Action]prompt, len(specs))}
	for _, s := range specs {
		sys, err := template.New(string(s.Action) + ".system").Option("missingkey=zero").Funcs(templateFuncs).Parse(s.System)
		if err != nil {
			return nil, fmt.Errorf("%s system template parse: %w", s.Action, err)
		}
		user, err := template.New(string(s.Action) + ".user").Option("missingkey=zero").Funcs(templateFuncs).Parse(s.User)
		if err != nil {
			return nil, fmt.Errorf("%s user template parse: %w", s.Action, err)
		}
		p.byAction[s.Action] = prompt{spec: s, system: sys, user: user}
	}
	return p, nil
}

// DefaultPrompts returns the built-in prompts. It panics if they fail to
// compile.
func DefaultPrompts() *Prompts {
	p, err := NewPrompts(DefaultPromptSpecs()...)
	if err != nil {
		panic(err)
	}
	return p
}

// Request renders the generation request for an action.
func (p *Prompts) Request(action domain.Action, data PromptData) (domain.GenerateRequest, error) {
	pr, ok := p.byAction[action]
	if !ok {
		return domain.GenerateRequest{}, domain.ErrInvalidRequest(fmt.Sprintf("no prompt for action %q", action)).WithParam("action")
	}
	if data.Today == "" {
		data.Today = time.Now().Format("2 January 2006")
	}

	system, err := render(pr.system, data)
	if err != nil {
		return domain.GenerateRequest{}, err
	}
	user, err := render(pr.user, data)
	if err != nil {
		return domain.GenerateRequest{}, err
	}
	return domain.GenerateRequest{
		SystemPrompt:    system,
		UserPrompt:      user,
		SearchEnabled:   pr.spec.Search,
		MaxOutputTokens: pr.spec.MaxOutputTokens,
	}, nil
}

func render(t *template.Template, data PromptData) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}

const grantFacts = `Grant: {{.Grant.Name}}
Funder: {{.Grant.Funder}} ({{.Grant.FunderType}})
{{- if .Grant.FocusAreas}}
Focus areas: {{join .Grant.FocusAreas}}{{end}}
{{- if .Grant.Geography}}
Geography: {{join .Grant.Geography}}{{end}}
Ask: {{.Ask}}
Deadline: {{.Deadline}}
Relationship: {{if .Grant.Relationship}}{{.Grant.Relationship}}{{else}}unknown{{end}}
{{- if .Grant.Notes}}
Notes: {{.Grant.Notes}}{{end}}`

// DefaultPromptSpecs returns the built-in prompt specs.
func DefaultPromptSpecs() []PromptSpec {
	return []PromptSpec{
		{
			Action: domain.ActionDraft,
			System: `You are a senior grant writer for {{.OrgName}}. Write persuasive, specific proposals grounded only in the organisation context you are given.

{{.Context}}`,
			User: grantFacts + `

Today is {{.Today}}. Write a complete proposal for this grant: executive summary, need, programme design, budget and impact. Use the programme costs as given.

End with one line of the form:
ASK_RECOMMENDATION: <amount in rand, digits only>`,
			MaxOutputTokens: 8192,
		},
		{
			Action: domain.ActionResearch,
			System: `You research funders for {{.OrgName}}. Report only what you can source.

{{.Context}}`,
			User: grantFacts + `

Today is {{.Today}}. Research this funder: priorities, typical grant size, recent grantees, application process and contacts. Note how our past funders relate.`,
			Search:          true,
			MaxOutputTokens: 4096,
		},
		{
			Action: domain.ActionFitScore,
			System: `You assess funder fit for {{.OrgName}}.

{{.Context}}`,
			User: grantFacts + `

Score the fit between this funder and our work from 1 to 10. Give the score on the first line as "FIT: <n>/10", then the strongest alignment points and the main risks.`,
			Search:          true,
			MaxOutputTokens: 2048,
		},
		{
			Action: domain.ActionFollowUp,
			System: `You write funder correspondence for {{.OrgName}}.

{{.Context}}`,
			User: grantFacts + `

Today is {{.Today}}. Draft a short, warm follow-up email to the funder about this application.`,
			MaxOutputTokens: 1024,
		},
		{
			Action: domain.ActionWinLoss,
			System: `You review grant outcomes for {{.OrgName}}.

{{.Context}}`,
			User: grantFacts + `
Outcome: {{.Grant.Stage}}

Analyse why this application was {{.Grant.Stage}} and list concrete lessons for the next application to this funder.`,
			MaxOutputTokens: 2048,
		},
		{
			Action: domain.ActionScout,
			System: `You scout funding opportunities for {{.OrgName}}.

{{.Context}}`,
			User: `Today is {{.Today}}. Find open grant opportunities that fit our work{{if .Brief}}, focusing on: {{.Brief}}{{end}}.
For each give the funder, funder type, programme, typical amount, deadline and a link.`,
			Search:          true,
			MaxOutputTokens: 4096,
		},
	}
}

var templateFuncs = template.FuncMap{
	"join": func(v []string) string { return strings.Join(v, ", ") },
}
