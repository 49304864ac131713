package domain

import (
	"strings"
	"time"
)

// FunderType categorises funders and drives checklist and narrative choices.
type FunderType string

const (
	FunderCorporateCSI   FunderType = "CorporateCSI"
	FunderGovernmentSETA FunderType = "GovernmentSETA"
	FunderInternational  FunderType = "International"
	FunderFoundation     FunderType = "Foundation"
	FunderTechCompany    FunderType = "TechCompany"
)

// FunderTypes lists every funder type.
var FunderTypes = []FunderType{
	FunderCorporateCSI, FunderGovernmentSETA, FunderInternational, FunderFoundation, FunderTechCompany,
}

// Valid reports whether t is a known funder type.
func (t FunderType) Valid() bool {
	for _, ft := range FunderTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// AskSource records where the committed ask amount came from.
type AskSource string

const (
	AskSourceNone          AskSource = ""
	AskSourceManual        AskSource = "manual"
	AskSourceScoutAligned  AskSource = "scout-aligned"
	AskSourceAIRecommended AskSource = "ai-recommended"
)

// Relationship is the organisation's warmth with a funder.
type Relationship string

const (
	RelationshipCold           Relationship = "Cold"
	RelationshipWarm           Relationship = "Warm"
	RelationshipHot            Relationship = "Hot"
	RelationshipPreviousFunder Relationship = "PreviousFunder"
)

// Unassigned is the owner sentinel for grants nobody has picked up.
const Unassigned = "unassigned"

// MaxArtifactHistory bounds the prior versions kept per AI artifact.
const MaxArtifactHistory = 5

// LogEntry is one line of a grant's append-only activity log.
type LogEntry struct {
	Date time.Time `json:"date"`
	Text string    `json:"text"`
}

// FollowUp is a scheduled follow-up with a funder.
type FollowUp struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Done  bool      `json:"done"`
}

// BudgetLine is a single line of a structured proposal budget.
type BudgetLine struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// BudgetTable is the structured budget attached to a proposal.
type BudgetTable struct {
	Items []BudgetLine `json:"items,omitempty"`
	Total int64        `json:"total"`
}

// ProposalSection is one titled section of a structured draft.
type ProposalSection struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Artifact is a piece of AI-generated text with its generation time.
type Artifact struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Present reports whether the artifact holds non-blank text.
func (a *Artifact) Present() bool {
	return a != nil && strings.TrimSpace(a.Text) != ""
}

// ArtifactHistory holds prior versions of each AI artifact, newest first.
type ArtifactHistory struct {
	Draft    []Artifact `json:"draft,omitempty"`
	Research []Artifact `json:"research,omitempty"`
	FitScore []Artifact `json:"fit_score,omitempty"`
	FollowUp []Artifact `json:"follow_up,omitempty"`
	WinLoss  []Artifact `json:"win_loss,omitempty"`
}

// Grant is a funding opportunity tracked through the pipeline.
type Grant struct {
	ID    string `json:"id"`
	OrgID string `json:"org_id"`

	Name       string     `json:"name"`
	Funder     string     `json:"funder"`
	FunderType FunderType `json:"funder_type"`
	Geography  []string   `json:"geography,omitempty"`
	FocusAreas []string   `json:"focus_areas,omitempty"`
	URL        string     `json:"url,omitempty"`

	Ask          int64     `json:"ask"`
	FunderBudget int64     `json:"funder_budget"`
	AskSource    AskSource `json:"ask_source,omitempty"`

	Stage        Stage        `json:"stage"`
	Priority     int          `json:"priority"`
	Owner        string       `json:"owner"`
	Relationship Relationship `json:"relationship,omitempty"`
	Deadline     *time.Time   `json:"deadline,omitempty"`

	Notes     string          `json:"notes,omitempty"`
	Log       []LogEntry      `json:"log,omitempty"`
	Documents map[string]bool `json:"documents,omitempty"`
	FollowUps []FollowUp      `json:"follow_ups,omitempty"`

	Budget   *BudgetTable      `json:"budget,omitempty"`
	Sections []ProposalSection `json:"sections,omitempty"`

	Draft         *Artifact       `json:"draft,omitempty"`
	Research      *Artifact       `json:"research,omitempty"`
	FitScore      *Artifact       `json:"fit_score,omitempty"`
	FollowUpDraft *Artifact       `json:"follow_up_draft,omitempty"`
	WinLoss       *Artifact       `json:"win_loss,omitempty"`
	History       ArtifactHistory `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDraft reports whether the single draft field or any structured section
// has non-empty text.
func (g *Grant) HasDraft() bool {
	if g.Draft.Present() {
		return true
	}
	for _, s := range g.Sections {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}

// HasOwner reports whether the grant is assigned to a real team member.
func (g *Grant) HasOwner() bool {
	owner := strings.TrimSpace(g.Owner)
	return owner != "" && owner != Unassigned
}

// HasBudgetSignal reports whether any amount hints at the request size.
func (g *Grant) HasBudgetSignal() bool {
	if g.Ask > 0 || g.FunderBudget > 0 {
		return true
	}
	return g.Budget != nil && g.Budget.Total > 0
}

// EffectiveAsk is the committed ask, or the funder's ceiling when undecided.
func (g *Grant) EffectiveAsk() int64 {
	if g.Ask > 0 {
		return g.Ask
	}
	return g.FunderBudget
}

// AppendLog adds an entry to the activity log.
func (g *Grant) AppendLog(at time.Time, text string) {
	g.Log = append(g.Log, LogEntry{Date: at, Text: text})
}

// OpenFollowUps returns the follow-ups not yet marked done.
func (g *Grant) OpenFollowUps() []FollowUp {
	var open []FollowUp
	for _, f := range g.FollowUps {
		if !f.Done {
			open = append(open, f)
		}
	}
	return open
}

// Artifact returns the current artifact for an action, or nil.
func (g *Grant) Artifact(action Action) *Artifact {
	switch action {
	case ActionDraft:
		return g.Draft
	case ActionResearch:
		return g.Research
	case ActionFitScore:
		return g.FitScore
	case ActionFollowUp:
		return g.FollowUpDraft
	case ActionWinLoss:
		return g.WinLoss
	}
	return nil
}

// SetArtifact stores a new artifact version for an action, pushing the
// previous version onto the bounded history.
func (g *Grant) SetArtifact(action Action, a Artifact) bool {
	var current **Artifact
	var history *[]Artifact
	switch action {
	case ActionDraft:
		current, history = &g.Draft, &g.History.Draft
	case ActionResearch:
		current, history = &g.Research, &g.History.Research
	case ActionFitScore:
		current, history = &g.FitScore, &g.History.FitScore
	case ActionFollowUp:
		current, history = &g.FollowUpDraft, &g.History.FollowUp
	case ActionWinLoss:
		current, history = &g.WinLoss, &g.History.WinLoss
	default:
		return false
	}

	if prev := *current; prev.Present() {
		h := append([]Artifact{*prev}, *history...)
		if len(h) > MaxArtifactHistory {
			h = h[:MaxArtifactHistory]
		}
		*history = h
	}
	*current = &a
	return true
}
