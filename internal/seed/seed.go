// Package seed loads organisation reference data (profiles, team members,
// compliance records and uploads) from a YAML file into a store.
package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
)

// Data is the decoded seed file.
type Data struct {
	Profiles   []domain.OrgProfile `json:"profiles"`
	Members    []domain.Member     `json:"members"`
	Compliance []ComplianceDoc     `json:"compliance"`
	Uploads    []Upload            `json:"uploads"`
}

// ComplianceDoc is a compliance record as written in the seed file. Expiry
// accepts RFC 3339 or a plain date.
type ComplianceDoc struct {
	OrgID  string `json:"org_id"`
	DocID  string `json:"doc_id"`
	Status string `json:"status"`
	Expiry string `json:"expiry"`
}

// Upload is an upload as written in the seed file. Text is taken from Text,
// or read from File relative to the seed file.
type Upload struct {
	ID      string `json:"id"`
	OrgID   string `json:"org_id"`
	GrantID string `json:"grant_id"`
	Name    string `json:"name"`
	Text    string `json:"text"`
	File    string `json:"file"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Load reads and validates a seed file.
func Load(path string) (*Data, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}

	var d Data
	if err := k.UnmarshalWithConf("", &d, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range d.Uploads {
		u := &d.Uploads[i]
		if u.Text != "" || u.File == "" {
			continue
		}
		p := u.File
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", u.ID, err)
		}
		u.Text = string(data)
		if u.Name == "" {
			u.Name = filepath.Base(u.File)
		}
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return &d, nil
}

// Validate checks ids, roles and statuses.
func (d *Data) Validate() error {
	for _, p := range d.Profiles {
		if p.OrgID == "" {
			return fmt.Errorf("profiles: org_id is required")
		}
	}
	roles := domain.DefaultRoles()
	for _, m := range d.Members {
		if m.ID == "" || m.OrgID == "" {
			return fmt.Errorf("members: id and org_id are required")
		}
		if _, ok := roles[m.Role]; !ok {
			return fmt.Errorf("member %s: unknown role %q", m.ID, m.Role)
		}
	}
	for _, c := range d.Compliance {
		switch domain.DocStatus(c.Status) {
		case domain.DocValid, domain.DocUploaded, domain.DocExpired, domain.DocMissing:
		default:
			return fmt.Errorf("compliance %s: unknown status %q", c.DocID, c.Status)
		}
		if _, err := parseDate(c.Expiry); err != nil {
			return fmt.Errorf("compliance %s: %w", c.DocID, err)
		}
	}
	for _, u := range d.Uploads {
		if u.ID == "" || u.OrgID == "" {
			return fmt.Errorf("uploads: id and org_id are required")
		}
	}
	return nil
}

// Apply writes the data through s.
func (d *Data) Apply(ctx context.Context, s ports.Seeder) error {
	for i := range d.Profiles {
		if err := s.PutProfile(ctx, &d.Profiles[i]); err != nil {
			return fmt.Errorf("put profile %s: %w", d.Profiles[i].OrgID, err)
		}
	}
	for _, m := range d.Members {
		if err := s.PutMember(ctx, m); err != nil {
			return fmt.Errorf("put member %s: %w", m.ID, err)
		}
	}
	for _, c := range d.Compliance {
		expiry, _ := parseDate(c.Expiry)
		doc := domain.ComplianceDoc{OrgID: c.OrgID, DocID: c.DocID, Status: domain.DocStatus(c.Status), Expiry: expiry}
		if err := s.PutComplianceDoc(ctx, doc); err != nil {
			return fmt.Errorf("put compliance doc %s: %w", c.DocID, err)
		}
	}
	for _, u := range d.Uploads {
		up := domain.Upload{ID: u.ID, OrgID: u.OrgID, GrantID: u.GrantID, OriginalName: u.Name, ExtractedText: u.Text}
		if err := s.PutUpload(ctx, up); err != nil {
			return fmt.Errorf("put upload %s: %w", u.ID, err)
		}
	}
	return nil
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", v)
}
