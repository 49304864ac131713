package assembler

import (
	"unicode/utf8"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// Budget holds the character budgets for one action.
type Budget struct {
	GrantUploads int `koanf:"grant_uploads" json:"grant_uploads"`
	OrgUploads   int `koanf:"org_uploads" json:"org_uploads"`
	// Max caps the data portion only. A trimmed Result.Text can exceed it by
	// the trim marker plus the anti-fabrication block.
	Max int `koanf:"max" json:"max"`
}

// Budgets maps an action to its budget.
type Budgets map[domain.Action]Budget

// fallbackBudget applies to actions without an entry.
var fallbackBudget = Budget{GrantUploads: 3000, OrgUploads: 2000, Max: 8000}

// DefaultBudgets returns the built-in budgets. Drafts get the most room;
// research and fit scoring only need excerpts.
func DefaultBudgets() Budgets {
	return Budgets{
		domain.ActionDraft:    {GrantUploads: 12000, OrgUploads: 8000, Max: 40000},
		domain.ActionResearch: {GrantUploads: 3000, OrgUploads: 2000, Max: 8000},
		domain.ActionFitScore: {GrantUploads: 3000, OrgUploads: 2000, Max: 8000},
		domain.ActionFollowUp: {GrantUploads: 2000, OrgUploads: 1000, Max: 6000},
		domain.ActionWinLoss:  {GrantUploads: 3000, OrgUploads: 2000, Max: 10000},
		domain.ActionScout:    {GrantUploads: 0, OrgUploads: 2000, Max: 8000},
	}
}

// For returns the budget for an action.
func (b Budgets) For(action domain.Action) Budget {
	if v, ok := b[action]; ok {
		return v
	}
	return fallbackBudget
}

// Merge returns a copy of b with the non-zero fields of overrides applied.
func (b Budgets) Merge(overrides Budgets) Budgets {
	out := make(Budgets, len(b))
	for k, v := range b {
		out[k] = v
	}
	for k, o := range overrides {
		v := out.For(k)
		if o.GrantUploads > 0 {
			v.GrantUploads = o.GrantUploads
		}
		if o.OrgUploads > 0 {
			v.OrgUploads = o.OrgUploads
		}
		if o.Max > 0 {
			v.Max = o.Max
		}
		out[k] = v
	}
	return out
}

// truncate returns at most n characters of s, never splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// length counts characters, not bytes.
func length(s string) int {
	return utf8.RuneCountInString(s)
}
