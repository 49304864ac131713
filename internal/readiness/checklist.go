package readiness

import "github.com/tjfontaine/grant-pipeline/internal/core/domain"

// Compliance document ids referenced by the default checklists.
const (
	DocNPOCertificate    = "npo_certificate"
	DocPBOCertificate    = "pbo_section18a"
	DocBBBEECertificate  = "bbbee_certificate"
	DocAuditedFinancials = "audited_financials"
	DocTaxClearance      = "tax_clearance"
	DocBoardResolution   = "board_resolution"
	DocAccreditation     = "seta_accreditation"
	DocAnnualReport      = "annual_report"
	DocBankLetter        = "bank_confirmation"
)

// Checklists maps a funder type to the compliance documents it expects.
// A funder type without an entry has no requirements.
type Checklists map[domain.FunderType][]string

// DefaultChecklists returns the standard document requirements per funder type.
func DefaultChecklists() Checklists {
	return Checklists{
		domain.FunderCorporateCSI: {
			DocNPOCertificate, DocPBOCertificate, DocBBBEECertificate, DocAuditedFinancials, DocTaxClearance,
		},
		domain.FunderGovernmentSETA: {
			DocNPOCertificate, DocAccreditation, DocTaxClearance, DocBBBEECertificate, DocAuditedFinancials, DocBankLetter,
		},
		domain.FunderInternational: {
			DocNPOCertificate, DocAuditedFinancials, DocBoardResolution, DocAnnualReport,
		},
		domain.FunderFoundation: {
			DocNPOCertificate, DocPBOCertificate, DocAuditedFinancials,
		},
	}
}

// For returns the required documents for a funder type.
func (c Checklists) For(t domain.FunderType) []string {
	return c[t]
}
