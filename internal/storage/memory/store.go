// Package memory provides an in-memory implementation of every storage port.
// Records are deep-copied on the way in and out so callers never share state
// with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
)

// Store is an in-memory implementation of ports.Store.
type Store struct {
	mu         sync.RWMutex
	grants     map[string]*domain.Grant
	compliance map[string][]domain.ComplianceDoc
	uploads    map[string][]domain.Upload
	profiles   map[string]*domain.OrgProfile
	members    map[string]domain.Member
	approvals  map[string]*domain.Approval
	activity   []*domain.ActivityEvent
}

var _ ports.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		grants:     make(map[string]*domain.Grant),
		compliance: make(map[string][]domain.ComplianceDoc),
		uploads:    make(map[string][]domain.Upload),
		profiles:   make(map[string]*domain.OrgProfile),
		members:    make(map[string]domain.Member),
		approvals:  make(map[string]*domain.Approval),
	}
}

func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("memory store: marshal %T: %v", v, err))
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("memory store: unmarshal %T: %v", v, err))
	}
	return out
}

func (s *Store) GetGrant(ctx context.Context, id string) (*domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[id]
	if !ok {
		return nil, fmt.Errorf("grant %s: %w", id, domain.ErrNotFound)
	}
	return clone(g), nil
}

func (s *Store) SaveGrant(ctx context.Context, grant *domain.Grant) error {
	if grant.ID == "" {
		return fmt.Errorf("grant id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.grants[grant.ID]; ok {
		grant.CreatedAt = existing.CreatedAt
	} else if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now
	s.grants[grant.ID] = clone(grant)
	return nil
}

func (s *Store) ListGrants(ctx context.Context, orgID string) ([]*domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Grant
	for _, g := range s.grants {
		if g.OrgID == orgID {
			result = append(result, clone(g))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// PutComplianceDoc adds or replaces a compliance document.
func (s *Store) PutComplianceDoc(ctx context.Context, doc domain.ComplianceDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.compliance[doc.OrgID]
	for i := range docs {
		if docs[i].DocID == doc.DocID {
			docs[i] = doc
			return nil
		}
	}
	s.compliance[doc.OrgID] = append(docs, doc)
	return nil
}

func (s *Store) ListComplianceDocs(ctx context.Context, orgID string) ([]domain.ComplianceDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := append([]domain.ComplianceDoc(nil), s.compliance[orgID]...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocID < docs[j].DocID })
	return docs, nil
}

// PutUpload stores an upload. Uploads without a grant id are organisation-wide.
func (s *Store) PutUpload(ctx context.Context, u domain.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.uploads[u.OrgID] = append(s.uploads[u.OrgID], u)
	return nil
}

func (s *Store) GetUploadContext(ctx context.Context, orgID, grantID string) (*domain.UploadContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uc := &domain.UploadContext{}
	for _, u := range s.uploads[orgID] {
		switch {
		case u.GrantID == "":
			uc.OrgUploads = append(uc.OrgUploads, u)
		case grantID != "" && u.GrantID == grantID:
			uc.GrantUploads = append(uc.GrantUploads, u)
		}
	}
	return uc, nil
}

// PutProfile stores an organisation profile.
func (s *Store) PutProfile(ctx context.Context, p *domain.OrgProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.OrgID] = clone(p)
	return nil
}

func (s *Store) GetProfile(ctx context.Context, orgID string) (*domain.OrgProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[orgID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", orgID, domain.ErrNotFound)
	}
	return clone(p), nil
}

// PutMember stores a team member.
func (s *Store) PutMember(ctx context.Context, m domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
	return nil
}

func (s *Store) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	return &m, nil
}

func (s *Store) ListMembers(ctx context.Context, orgID string) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Member
	for _, m := range s.members {
		if m.OrgID == orgID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) CreateApproval(ctx context.Context, a *domain.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.approvals[a.ID]; exists {
		return fmt.Errorf("approval %s already exists", a.ID)
	}
	s.approvals[a.ID] = clone(a)
	return nil
}

func (s *Store) GetApproval(ctx context.Context, id string) (*domain.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.approvals[id]
	if !ok {
		return nil, fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
	}
	return clone(a), nil
}

func (s *Store) UpdateApproval(ctx context.Context, a *domain.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.approvals[a.ID]; !ok {
		return fmt.Errorf("approval %s: %w", a.ID, domain.ErrNotFound)
	}
	s.approvals[a.ID] = clone(a)
	return nil
}

func (s *Store) FindOpenApproval(ctx context.Context, grantID, gateKey string) (*domain.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Approval
	for _, a := range s.approvals {
		if a.GrantID != grantID || a.GateKey != gateKey || !a.Open() {
			continue
		}
		if found == nil || a.RequestedAt.After(found.RequestedAt) {
			found = a
		}
	}
	if found == nil {
		return nil, nil
	}
	return clone(found), nil
}

func (s *Store) ListApprovals(ctx context.Context, grantID string) ([]*domain.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Approval
	for _, a := range s.approvals {
		if a.GrantID == grantID {
			result = append(result, clone(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.Before(result[j].RequestedAt) })
	return result, nil
}

func (s *Store) AppendActivity(ctx context.Context, event *domain.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, clone(event))
	return nil
}

func (s *Store) ListActivity(ctx context.Context, orgID string, limit int) ([]*domain.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ActivityEvent
	for i := len(s.activity) - 1; i >= 0; i-- {
		if s.activity[i].OrgID != orgID {
			continue
		}
		result = append(result, clone(s.activity[i]))
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) Close() error {
	return nil
}
