package assembler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// baseContext picks the pre-authored organisation summary for the action,
// generating one from the profile when none was written.
func baseContext(action domain.Action, p *domain.OrgProfile) string {
	if p == nil {
		return ""
	}

	primary, secondary := p.ContextSlim, p.ContextFull
	if action == domain.ActionDraft {
		primary, secondary = p.ContextFull, p.ContextSlim
	}
	if s := strings.TrimSpace(primary); s != "" {
		return s
	}
	if s := strings.TrimSpace(secondary); s != "" {
		return s
	}
	return summarizeProfile(p)
}

func summarizeProfile(p *domain.OrgProfile) string {
	var b strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&b, "Organisation: %s\n", p.Name)
	}
	if p.Mission != "" {
		fmt.Fprintf(&b, "Mission: %s\n", p.Mission)
	}
	if len(p.Programmes) > 0 {
		names := make([]string, len(p.Programmes))
		for i, prog := range p.Programmes {
			names[i] = prog.Name
		}
		fmt.Fprintf(&b, "Programmes: %s\n", strings.Join(names, ", "))
	}
	return strings.TrimSpace(b.String())
}

func programmeCosts(p *domain.OrgProfile) string {
	if p == nil || len(p.Programmes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Programme costs (use these exact figures)\n")
	b.WriteString("| Programme | Cost per learner | Duration | Cohort |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, prog := range p.Programmes {
		fmt.Fprintf(&b, "| %s | R%s | %d months | %d |\n",
			prog.Name, formatAmount(prog.CostPerLearner), prog.DurationMonths, prog.CohortSize)
	}
	return strings.TrimRight(b.String(), "\n")
}

func impactStats(p *domain.OrgProfile) string {
	if p == nil || len(p.ImpactStats) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Verified impact\n")
	for _, s := range p.ImpactStats {
		if s.Source != "" {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", s.Label, s.Value, s.Source)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", s.Label, s.Value)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func voice(p *domain.OrgProfile) string {
	if p == nil || (p.Tone == "" && len(p.AntiPatterns) == 0) {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Voice\n")
	if p.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	}
	for _, ap := range p.AntiPatterns {
		fmt.Fprintf(&b, "Avoid: %s\n", ap)
	}
	return strings.TrimRight(b.String(), "\n")
}

func roster(team []domain.Member) string {
	if len(team) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Team\n")
	for _, m := range team {
		fmt.Fprintf(&b, "- %s (%s)\n", m.Name, m.Role)
	}
	return strings.TrimRight(b.String(), "\n")
}

func pastFunders(p *domain.OrgProfile) string {
	if p == nil || len(p.PastFunders) == 0 {
		return ""
	}
	return "## Past funders\n" + strings.Join(p.PastFunders, ", ")
}

// uploadSection renders documents newest first within budget. A document is
// started only while budget remains; the last one started may be cut short
// and everything after it is skipped.
func uploadSection(title string, uploads []domain.Upload, budget int) string {
	if budget <= 0 || len(uploads) == 0 {
		return ""
	}

	docs := make([]domain.Upload, len(uploads))
	copy(docs, uploads)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	var b strings.Builder
	remaining := budget
	for _, d := range docs {
		if remaining <= 0 {
			break
		}
		text := strings.TrimSpace(d.ExtractedText)
		if text == "" {
			continue
		}
		chunk := fmt.Sprintf("### %s\n%s\n", d.OriginalName, text)
		if length(chunk) > remaining {
			chunk = truncate(chunk, remaining)
		}
		b.WriteString(chunk)
		remaining -= length(chunk)
	}
	if b.Len() == 0 {
		return ""
	}
	return "## " + title + "\n" + strings.TrimRight(b.String(), "\n")
}

// formatAmount renders 12500 as "12,500".
func formatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
