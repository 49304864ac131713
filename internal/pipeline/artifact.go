package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/assembler"
	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// AIResult is the outcome of an AI action. Text is always displayable.
type AIResult struct {
	Action   domain.Action `json:"action"`
	Text     string        `json:"text"`
	Failed   bool          `json:"failed"`
	Attempts int           `json:"attempts"`
	Trimmed  bool          `json:"context_trimmed"`
	Usage    domain.Usage  `json:"usage"`
	Duration time.Duration `json:"duration"`

	// Err is the underlying gateway error when Failed.
	Err error `json:"-"`
}

// RequestAIArtifact assembles context for action and calls the AI gateway.
// The raw reply is returned unparsed and nothing is persisted. Only store
// failures are errors.
func (o *Orchestrator) RequestAIArtifact(ctx context.Context, g *domain.Grant, action domain.Action) (*AIResult, error) {
	if action == domain.ActionScout {
		return nil, domain.ErrInvalidRequest("scout runs per organisation, not per grant").WithParam("action")
	}
	return o.generate(ctx, g.OrgID, g, action, "")
}

// Scout asks the AI for new opportunities matching the organisation's
// profile, optionally focused by brief.
func (o *Orchestrator) Scout(ctx context.Context, orgID, brief string) (*AIResult, error) {
	return o.generate(ctx, orgID, nil, domain.ActionScout, brief)
}

func (o *Orchestrator) generate(ctx context.Context, orgID string, g *domain.Grant, action domain.Action, brief string) (*AIResult, error) {
	profile, err := o.profile(ctx, orgID)
	if err != nil {
		return nil, err
	}

	in := assembler.Input{Action: action, Grant: g, Profile: profile}
	if action == domain.ActionDraft {
		team, err := o.store.ListMembers(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		in.Team = team
	}
	grantID := ""
	if g != nil {
		grantID = g.ID
	}
	uploads, err := o.uploads.Get(ctx, orgID, grantID)
	if err != nil {
		return nil, fmt.Errorf("get uploads: %w", err)
	}
	in.Uploads = uploads

	assembled := o.assembler.Assemble(in)

	req, err := o.prompts.Request(action, PromptData{
		Grant:   g,
		OrgName: orgName(profile),
		Context: assembled.Text,
		Brief:   brief,
		Today:   o.now().Format("2 January 2006"),
	})
	if err != nil {
		return nil, err
	}

	start := o.now()
	res := o.gateway.Generate(ctx, req)
	elapsed := o.now().Sub(start)

	out := &AIResult{
		Action:   action,
		Text:     res.Text,
		Failed:   res.Failed(),
		Attempts: res.Attempts,
		Trimmed:  assembled.Trimmed,
		Usage:    res.Usage,
		Duration: elapsed,
		Err:      res.Err,
	}

	estimate := o.tokens.Count(o.model, req.SystemPrompt+"\n"+req.UserPrompt)
	meta := map[string]any{
		"action":           string(action),
		"provider":         o.gateway.Provider(),
		"prompt_summary":   promptSummary(action, g, brief),
		"estimated_tokens": estimate.Tokens,
		"input_tokens":     res.Usage.InputTokens,
		"output_tokens":    res.Usage.OutputTokens,
		"attempts":         res.Attempts,
		"duration_ms":      elapsed.Milliseconds(),
		"context_chars":    assembled.DataLen,
		"context_trimmed":  assembled.Trimmed,
		"failed":           out.Failed,
	}
	if g != nil {
		meta["grant_id"] = g.ID
	}
	if res.Err != nil {
		meta["error"] = res.Err.Error()
	}
	o.log(ctx, orgID, domain.EventAICall, meta)

	o.logger.Info("ai action completed",
		slog.String("action", string(action)),
		slog.String("grant_id", grantID),
		slog.Int("attempts", res.Attempts),
		slog.Bool("failed", out.Failed),
		slog.Duration("duration", elapsed))
	return out, nil
}

// ApplyResult reports what ApplyArtifact changed.
type ApplyResult struct {
	Stored bool  `json:"stored"`
	Ask    int64 `json:"ask_recommendation,omitempty"`

	// AskApplied is set when the recommendation replaced the grant's ask.
	AskApplied bool `json:"ask_applied"`
}

var askLine = regexp.MustCompile(`(?mi)^[ \t*]*ASK_RECOMMENDATION:[ \t*]*(?:R|ZAR)?[ \t]*([0-9][0-9, \t]*)[^\n]*$`)

// ParseAskRecommendation extracts a trailing ASK_RECOMMENDATION line. It
// returns the text without that line and the amount, or 0 when absent.
func ParseAskRecommendation(text string) (string, int64) {
	locs := askLine.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, 0
	}
	last := locs[len(locs)-1]
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text[last[2]:last[3]])
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || amount <= 0 {
		return text, 0
	}
	stripped := strings.TrimRight(text[:last[0]]+text[last[1]:], " \t\n")
	return stripped, amount
}

// ApplyArtifact stores text as the grant's artifact for action, keeping the
// previous version in bounded history. Drafts are scanned for an ask
// recommendation, which sets the ask unless the ask was entered manually.
// The grant is modified in place and not saved.
func (o *Orchestrator) ApplyArtifact(g *domain.Grant, action domain.Action, text string) ApplyResult {
	var out ApplyResult
	now := o.now()

	if action == domain.ActionDraft {
		text, out.Ask = ParseAskRecommendation(text)
		if out.Ask > 0 && g.AskSource != domain.AskSourceManual {
			g.Ask = out.Ask
			g.AskSource = domain.AskSourceAIRecommended
			out.AskApplied = true
		}
	}

	out.Stored = g.SetArtifact(action, domain.Artifact{Text: text, GeneratedAt: now})
	if out.Stored {
		g.AppendLog(now, artifactLogText(action))
		g.UpdatedAt = now
	}
	return out
}

// ActionResult is the outcome of RunAIAction.
type ActionResult struct {
	AIResult
	Applied *ApplyResult  `json:"applied,omitempty"`
	Grant   *domain.Grant `json:"grant"`
}

// RunAIAction generates an artifact for a stored grant and saves it. Failed
// AI calls leave the grant untouched. The artifact is applied to the grant
// as stored when the reply arrives, so changes made during the call survive.
func (o *Orchestrator) RunAIAction(ctx context.Context, grantID string, action domain.Action) (*ActionResult, error) {
	g, err := o.Grant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	res, err := o.RequestAIArtifact(ctx, g, action)
	if err != nil {
		return nil, err
	}
	if res.Failed {
		return &ActionResult{AIResult: *res, Grant: g}, nil
	}

	g, err = o.Grant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	out := &ActionResult{AIResult: *res, Grant: g}
	applied := o.ApplyArtifact(g, action, res.Text)
	out.Applied = &applied
	if err := o.store.SaveGrant(ctx, g); err != nil {
		return nil, fmt.Errorf("save grant: %w", err)
	}

	meta := map[string]any{
		"grant_id": g.ID,
		"action":   string(action),
	}
	if applied.AskApplied {
		meta["ask"] = applied.Ask
	}
	o.log(ctx, g.OrgID, domain.EventArtifact, meta)
	return out, nil
}

func artifactLogText(action domain.Action) string {
	switch action {
	case domain.ActionDraft:
		return "AI draft generated"
	case domain.ActionResearch:
		return "AI funder research generated"
	case domain.ActionFitScore:
		return "AI fit score generated"
	case domain.ActionFollowUp:
		return "AI follow-up drafted"
	case domain.ActionWinLoss:
		return "AI win/loss analysis generated"
	}
	return "AI " + string(action) + " generated"
}

func promptSummary(action domain.Action, g *domain.Grant, brief string) string {
	if g == nil {
		if brief == "" {
			return string(action)
		}
		return fmt.Sprintf("%s: %s", action, brief)
	}
	return fmt.Sprintf("%s for %s (%s)", action, g.Name, g.Funder)
}

func orgName(p *domain.OrgProfile) string {
	if p.Name != "" {
		return p.Name
	}
	return "the organisation"
}

func formatRand(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
