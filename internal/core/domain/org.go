package domain

import "time"

// Programme is a delivery programme with its unit costs.
type Programme struct {
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description,omitempty" yaml:"description"`
	CostPerLearner int64  `json:"cost_per_learner" yaml:"cost_per_learner"`
	DurationMonths int    `json:"duration_months" yaml:"duration_months"`
	CohortSize     int    `json:"cohort_size" yaml:"cohort_size"`
}

// ImpactStat is a verified impact figure the organisation may quote.
type ImpactStat struct {
	Label  string `json:"label" yaml:"label"`
	Value  string `json:"value" yaml:"value"`
	Source string `json:"source,omitempty" yaml:"source"`
}

// OrgProfile is the organisational context fed to AI actions.
type OrgProfile struct {
	OrgID        string       `json:"org_id"`
	Name         string       `json:"name"`
	Mission      string       `json:"mission"`
	Programmes   []Programme  `json:"programmes,omitempty"`
	ImpactStats  []ImpactStat `json:"impact_stats,omitempty"`
	Tone         string       `json:"tone,omitempty"`
	AntiPatterns []string     `json:"anti_patterns,omitempty"`
	PastFunders  []string     `json:"past_funders,omitempty"`
	ContextSlim  string       `json:"context_slim,omitempty"`
	ContextFull  string       `json:"context_full,omitempty"`
}

// DocStatus is the state of a compliance document.
type DocStatus string

const (
	DocValid    DocStatus = "valid"
	DocUploaded DocStatus = "uploaded"
	DocExpired  DocStatus = "expired"
	DocMissing  DocStatus = "missing"
)

// Ready reports whether the status satisfies a checklist requirement.
func (s DocStatus) Ready() bool {
	return s == DocValid || s == DocUploaded
}

// ComplianceDoc is an organisation-level compliance document record.
type ComplianceDoc struct {
	OrgID  string     `json:"org_id"`
	DocID  string     `json:"doc_id"`
	Status DocStatus  `json:"status"`
	Expiry *time.Time `json:"expiry,omitempty"`
}

// Upload is an uploaded document with its extracted text.
type Upload struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"org_id"`
	GrantID       string    `json:"grant_id,omitempty"`
	OriginalName  string    `json:"original_name"`
	ExtractedText string    `json:"extracted_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// UploadContext is the set of uploads relevant to one grant.
type UploadContext struct {
	OrgUploads   []Upload `json:"org_uploads"`
	GrantUploads []Upload `json:"grant_uploads"`
}
