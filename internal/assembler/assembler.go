// Package assembler builds the character-budgeted organisation context that
// accompanies every AI request. Assembly is pure: uploads are fetched by the
// caller, usually through an UploadCache.
package assembler

import (
	"strings"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// TrimMarker is appended when the context was cut to its cap.
const TrimMarker = "\n[...context trimmed for length]"

// AntiFabrication closes every context.
const AntiFabrication = `

RULES FOR FACTS:
- Use only the figures, names, dates and outcomes given above.
- Where a fact is needed but not given, write [TO BE CONFIRMED] instead of guessing.
- Never invent statistics, funder history, partnerships or programme details.`

// Input is everything Assemble reads. None of it is mutated.
type Input struct {
	Action  domain.Action
	Grant   *domain.Grant
	Profile *domain.OrgProfile
	Team    []domain.Member
	Uploads *domain.UploadContext
}

// Result is an assembled context.
type Result struct {
	Text string

	// Trimmed is set when the data portion exceeded the action's cap.
	Trimmed bool

	// DataLen is the character count of the data portion, which never
	// exceeds the cap.
	DataLen int
}

// Assembler builds contexts with a fixed budget table.
type Assembler struct {
	budgets Budgets
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithBudgets overrides budgets per action. Zero fields keep the default.
func WithBudgets(b Budgets) Option {
	return func(a *Assembler) {
		a.budgets = a.budgets.Merge(b)
	}
}

// New creates an Assembler with the default budgets.
func New(opts ...Option) *Assembler {
	a := &Assembler{budgets: DefaultBudgets()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Budget returns the budget used for an action.
func (a *Assembler) Budget(action domain.Action) Budget {
	return a.budgets.For(action)
}

// Assemble builds the context for one AI action.
func (a *Assembler) Assemble(in Input) Result {
	budget := a.budgets.For(in.Action)

	sections := []string{baseContext(in.Action, in.Profile)}

	switch in.Action {
	case domain.ActionDraft:
		sections = append(sections,
			programmeCosts(in.Profile),
			impactStats(in.Profile),
			voice(in.Profile),
			roster(in.Team),
		)
	case domain.ActionResearch, domain.ActionFitScore, domain.ActionScout:
		sections = append(sections, pastFunders(in.Profile))
	case domain.ActionFollowUp:
		sections = append(sections, voice(in.Profile))
	}

	if in.Uploads != nil {
		if in.Grant != nil {
			sections = append(sections, uploadSection("Grant documents", in.Uploads.GrantUploads, budget.GrantUploads))
		}
		sections = append(sections, uploadSection("Knowledge base", in.Uploads.OrgUploads, budget.OrgUploads))
	}

	data := join(sections)

	res := Result{}
	if budget.Max > 0 && length(data) > budget.Max {
		data = truncate(data, budget.Max)
		res.Trimmed = true
	}
	res.DataLen = length(data)

	var b strings.Builder
	b.WriteString(data)
	if res.Trimmed {
		b.WriteString(TrimMarker)
	}
	b.WriteString(AntiFabrication)
	res.Text = b.String()
	return res
}

// Assemble builds a context with the default budgets.
func Assemble(in Input) Result {
	return New().Assemble(in)
}

func join(sections []string) string {
	parts := sections[:0:0]
	for _, s := range sections {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
