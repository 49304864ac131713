// Package sqldb is a SQL implementation of every storage port. It runs on
// SQLite (modernc), PostgreSQL (pgx) and MySQL through the dialect layer.
// Grants, profiles and approvals are stored as JSON documents next to the
// columns used for lookup and ordering.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
	"github.com/tjfontaine/grant-pipeline/internal/storage/dialect"
)

// Store is a SQL implementation of ports.Store that supports multiple
// database dialects.
type Store struct {
	db      *sqlx.DB
	dialect *dialect.Dialect
	now     func() time.Time
}

var _ ports.Store = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres, mysql
	DSN    string // Data source name / connection string
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run dialect-specific initialization (e.g., PRAGMA for SQLite)
	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d, now: func() time.Time { return time.Now().UTC() }}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite creates a new SQLite store.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	key, text, ts, boolean := s.dialect.KeyType(), s.dialect.TextType(), s.dialect.TimestampType(), s.dialect.BooleanType()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS grants (
	id %[1]s PRIMARY KEY,
	org_id %[1]s NOT NULL,
	stage %[1]s NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	data %[2]s NOT NULL,
	created_at %[3]s NOT NULL,
	updated_at %[3]s NOT NULL
)`, key, text, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS compliance_docs (
	org_id %[1]s NOT NULL,
	doc_id %[1]s NOT NULL,
	status %[1]s NOT NULL,
	expiry %[2]s NULL,
	PRIMARY KEY (org_id, doc_id)
)`, key, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS uploads (
	id %[1]s PRIMARY KEY,
	org_id %[1]s NOT NULL,
	grant_id %[1]s NOT NULL DEFAULT '',
	original_name %[2]s NOT NULL,
	extracted_text %[2]s NOT NULL,
	created_at %[3]s NOT NULL
)`, key, text, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS profiles (
	org_id %[1]s PRIMARY KEY,
	data %[2]s NOT NULL,
	updated_at %[3]s NOT NULL
)`, key, text, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS members (
	id %[1]s PRIMARY KEY,
	org_id %[1]s NOT NULL,
	name %[2]s NOT NULL,
	role %[1]s NOT NULL
)`, key, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS approvals (
	id %[1]s PRIMARY KEY,
	org_id %[1]s NOT NULL,
	grant_id %[1]s NOT NULL,
	gate_key %[1]s NOT NULL,
	status %[1]s NOT NULL,
	consumed %[4]s NOT NULL,
	data %[2]s NOT NULL,
	requested_at %[3]s NOT NULL
)`, key, text, ts, boolean),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS activity (
	id %[1]s PRIMARY KEY,
	org_id %[1]s NOT NULL,
	type %[1]s NOT NULL,
	meta %[2]s,
	created_at %[3]s NOT NULL
)`, key, text, ts),
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	indexes := []struct {
		table, name, columns string
	}{
		{"grants", "idx_grants_org", "org_id"},
		{"uploads", "idx_uploads_org", "org_id, grant_id"},
		{"members", "idx_members_org", "org_id"},
		{"approvals", "idx_approvals_grant_gate", "grant_id, gate_key"},
		{"activity", "idx_activity_org", "org_id, created_at"},
	}
	for _, idx := range indexes {
		if err := s.ensureIndex(idx.table, idx.name, idx.columns); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureIndex(table, name, columns string) error {
	var count int
	if err := s.db.QueryRow(s.dialect.Rebind(s.dialect.IndexExistsQuery()), table, name).Scan(&count); err != nil {
		return fmt.Errorf("failed to check index %s: %w", name, err)
	}
	if count > 0 {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (%s)", name, table, columns)); err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
	return err
}

// Grants

func (s *Store) GetGrant(ctx context.Context, id string) (*domain.Grant, error) {
	var data string
	err := s.db.GetContext(ctx, &data, s.dialect.Rebind(`SELECT data FROM grants WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grant %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}

	var g domain.Grant
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grant %s: %w", id, err)
	}
	return &g, nil
}

func (s *Store) SaveGrant(ctx context.Context, grant *domain.Grant) error {
	if grant.ID == "" {
		return fmt.Errorf("grant id is required")
	}

	now := s.now()
	var created time.Time
	err := s.db.GetContext(ctx, &created, s.dialect.Rebind(`SELECT created_at FROM grants WHERE id = ?`), grant.ID)
	switch {
	case err == nil:
		grant.CreatedAt = created.UTC()
	case errors.Is(err, sql.ErrNoRows):
		if grant.CreatedAt.IsZero() {
			grant.CreatedAt = now
		}
	default:
		return fmt.Errorf("failed to check grant: %w", err)
	}
	grant.UpdatedAt = now

	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal grant: %w", err)
	}

	query := `INSERT INTO grants (id, org_id, stage, priority, data, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?) ` +
		s.dialect.UpsertClause("id", []string{"org_id", "stage", "priority", "data", "updated_at"})
	if err := s.exec(ctx, query,
		grant.ID, grant.OrgID, string(grant.Stage), grant.Priority, string(data), grant.CreatedAt.UTC(), grant.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save grant: %w", err)
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context, orgID string) ([]*domain.Grant, error) {
	var rows []string
	query := s.dialect.Rebind(`SELECT data FROM grants WHERE org_id = ? ORDER BY priority DESC, created_at ASC, id ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}

	grants := make([]*domain.Grant, 0, len(rows))
	for _, data := range rows {
		var g domain.Grant
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("failed to unmarshal grant: %w", err)
		}
		grants = append(grants, &g)
	}
	return grants, nil
}

// Compliance documents

type complianceRow struct {
	OrgID  string       `db:"org_id"`
	DocID  string       `db:"doc_id"`
	Status string       `db:"status"`
	Expiry sql.NullTime `db:"expiry"`
}

// PutComplianceDoc adds or replaces a compliance document.
func (s *Store) PutComplianceDoc(ctx context.Context, doc domain.ComplianceDoc) error {
	var expiry sql.NullTime
	if doc.Expiry != nil {
		expiry = sql.NullTime{Time: doc.Expiry.UTC(), Valid: true}
	}
	query := `INSERT INTO compliance_docs (org_id, doc_id, status, expiry) VALUES (?, ?, ?, ?) ` +
		s.dialect.UpsertClause("org_id, doc_id", []string{"status", "expiry"})
	if err := s.exec(ctx, query, doc.OrgID, doc.DocID, string(doc.Status), expiry); err != nil {
		return fmt.Errorf("failed to put compliance doc: %w", err)
	}
	return nil
}

func (s *Store) ListComplianceDocs(ctx context.Context, orgID string) ([]domain.ComplianceDoc, error) {
	var rows []complianceRow
	query := s.dialect.Rebind(`SELECT org_id, doc_id, status, expiry FROM compliance_docs WHERE org_id = ? ORDER BY doc_id`)
	if err := s.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list compliance docs: %w", err)
	}

	docs := make([]domain.ComplianceDoc, 0, len(rows))
	for _, r := range rows {
		doc := domain.ComplianceDoc{OrgID: r.OrgID, DocID: r.DocID, Status: domain.DocStatus(r.Status)}
		if r.Expiry.Valid {
			t := r.Expiry.Time.UTC()
			doc.Expiry = &t
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Uploads

type uploadRow struct {
	ID            string    `db:"id"`
	OrgID         string    `db:"org_id"`
	GrantID       string    `db:"grant_id"`
	OriginalName  string    `db:"original_name"`
	ExtractedText string    `db:"extracted_text"`
	CreatedAt     time.Time `db:"created_at"`
}

// PutUpload stores an upload. Uploads without a grant id are organisation-wide.
func (s *Store) PutUpload(ctx context.Context, u domain.Upload) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	query := `INSERT INTO uploads (id, org_id, grant_id, original_name, extracted_text, created_at)
	          VALUES (?, ?, ?, ?, ?, ?) ` +
		s.dialect.UpsertClause("id", []string{"original_name", "extracted_text"})
	if err := s.exec(ctx, query, u.ID, u.OrgID, u.GrantID, u.OriginalName, u.ExtractedText, u.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to put upload: %w", err)
	}
	return nil
}

func (s *Store) GetUploadContext(ctx context.Context, orgID, grantID string) (*domain.UploadContext, error) {
	var rows []uploadRow
	query := s.dialect.Rebind(`SELECT id, org_id, grant_id, original_name, extracted_text, created_at
	          FROM uploads WHERE org_id = ? AND (grant_id = '' OR grant_id = ?)
	          ORDER BY created_at ASC, id ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, orgID, grantID); err != nil {
		return nil, fmt.Errorf("failed to get uploads: %w", err)
	}

	uc := &domain.UploadContext{}
	for _, r := range rows {
		u := domain.Upload{
			ID:            r.ID,
			OrgID:         r.OrgID,
			GrantID:       r.GrantID,
			OriginalName:  r.OriginalName,
			ExtractedText: r.ExtractedText,
			CreatedAt:     r.CreatedAt.UTC(),
		}
		if u.GrantID == "" {
			uc.OrgUploads = append(uc.OrgUploads, u)
		} else {
			uc.GrantUploads = append(uc.GrantUploads, u)
		}
	}
	return uc, nil
}

// Profiles

// PutProfile stores an organisation profile.
func (s *Store) PutProfile(ctx context.Context, p *domain.OrgProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	query := `INSERT INTO profiles (org_id, data, updated_at) VALUES (?, ?, ?) ` +
		s.dialect.UpsertClause("org_id", []string{"data", "updated_at"})
	if err := s.exec(ctx, query, p.OrgID, string(data), s.now()); err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, orgID string) (*domain.OrgProfile, error) {
	var data string
	err := s.db.GetContext(ctx, &data, s.dialect.Rebind(`SELECT data FROM profiles WHERE org_id = ?`), orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", orgID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var p domain.OrgProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, nil
}

// Members

type memberRow struct {
	ID    string `db:"id"`
	OrgID string `db:"org_id"`
	Name  string `db:"name"`
	Role  string `db:"role"`
}

func (r memberRow) member() domain.Member {
	return domain.Member{ID: r.ID, OrgID: r.OrgID, Name: r.Name, Role: domain.Role(r.Role)}
}

// PutMember stores a team member.
func (s *Store) PutMember(ctx context.Context, m domain.Member) error {
	query := `INSERT INTO members (id, org_id, name, role) VALUES (?, ?, ?, ?) ` +
		s.dialect.UpsertClause("id", []string{"org_id", "name", "role"})
	if err := s.exec(ctx, query, m.ID, m.OrgID, m.Name, string(m.Role)); err != nil {
		return fmt.Errorf("failed to put member: %w", err)
	}
	return nil
}

func (s *Store) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	var row memberRow
	err := s.db.GetContext(ctx, &row, s.dialect.Rebind(`SELECT id, org_id, name, role FROM members WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	m := row.member()
	return &m, nil
}

func (s *Store) ListMembers(ctx context.Context, orgID string) ([]domain.Member, error) {
	var rows []memberRow
	query := s.dialect.Rebind(`SELECT id, org_id, name, role FROM members WHERE org_id = ? ORDER BY id`)
	if err := s.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	members := make([]domain.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.member())
	}
	return members, nil
}

// Approvals

func (s *Store) CreateApproval(ctx context.Context, a *domain.Approval) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}
	query := `INSERT INTO approvals (id, org_id, grant_id, gate_key, status, consumed, data, requested_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if err := s.exec(ctx, query,
		a.ID, a.OrgID, a.GrantID, a.GateKey, string(a.Status), a.Consumed, string(data), a.RequestedAt.UTC()); err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

func (s *Store) GetApproval(ctx context.Context, id string) (*domain.Approval, error) {
	var data string
	err := s.db.GetContext(ctx, &data, s.dialect.Rebind(`SELECT data FROM approvals WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return decodeApproval(data)
}

func (s *Store) UpdateApproval(ctx context.Context, a *domain.Approval) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`UPDATE approvals SET status = ?, consumed = ?, data = ? WHERE id = ?`),
		string(a.Status), a.Consumed, string(data), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("approval %s: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) FindOpenApproval(ctx context.Context, grantID, gateKey string) (*domain.Approval, error) {
	var rows []string
	query := s.dialect.Rebind(`SELECT data FROM approvals
	          WHERE grant_id = ? AND gate_key = ? AND (status = ? OR (status = ? AND consumed = ?))
	          ORDER BY requested_at DESC LIMIT 1`)
	if err := s.db.SelectContext(ctx, &rows, query,
		grantID, gateKey, string(domain.ApprovalPending), string(domain.ApprovalApproved), false); err != nil {
		return nil, fmt.Errorf("failed to find approval: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeApproval(rows[0])
}

func (s *Store) ListApprovals(ctx context.Context, grantID string) ([]*domain.Approval, error) {
	var rows []string
	query := s.dialect.Rebind(`SELECT data FROM approvals WHERE grant_id = ? ORDER BY requested_at ASC, id ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, grantID); err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	out := make([]*domain.Approval, 0, len(rows))
	for _, data := range rows {
		a, err := decodeApproval(data)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeApproval(data string) (*domain.Approval, error) {
	var a domain.Approval
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval: %w", err)
	}
	return &a, nil
}

// Activity

type activityRow struct {
	ID        string         `db:"id"`
	OrgID     string         `db:"org_id"`
	Type      string         `db:"type"`
	Meta      sql.NullString `db:"meta"`
	CreatedAt time.Time      `db:"created_at"`
}

func (s *Store) AppendActivity(ctx context.Context, event *domain.ActivityEvent) error {
	var meta sql.NullString
	if len(event.Meta) > 0 {
		data, err := json.Marshal(event.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal activity meta: %w", err)
		}
		meta = sql.NullString{String: string(data), Valid: true}
	}
	if event.At.IsZero() {
		event.At = s.now()
	}
	query := `INSERT INTO activity (id, org_id, type, meta, created_at) VALUES (?, ?, ?, ?, ?)`
	if err := s.exec(ctx, query, event.ID, event.OrgID, event.Type, meta, event.At.UTC()); err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, orgID string, limit int) ([]*domain.ActivityEvent, error) {
	query := `SELECT id, org_id, type, meta, created_at FROM activity WHERE org_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{orgID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, s.dialect.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	events := make([]*domain.ActivityEvent, 0, len(rows))
	for _, r := range rows {
		ev := &domain.ActivityEvent{ID: r.ID, OrgID: r.OrgID, Type: r.Type, At: r.CreatedAt.UTC()}
		if r.Meta.Valid && r.Meta.String != "" {
			if err := json.Unmarshal([]byte(r.Meta.String), &ev.Meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal activity meta: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}
