package dialect

import (
	"strings"
	"testing"
)

func mustDialect(t *testing.T, driver string) *Dialect {
	t.Helper()
	d, err := FromDriverName(driver)
	if err != nil {
		t.Fatalf("FromDriverName(%q): %v", driver, err)
	}
	return d
}

func TestFromDriverName(t *testing.T) {
	tests := []struct {
		driver     string
		wantName   string
		wantDriver string
	}{
		{"sqlite", "sqlite", "sqlite"},
		{"SQLite3", "sqlite", "sqlite"},
		{"postgres", "postgres", "pgx"},
		{"postgresql", "postgres", "pgx"},
		{"pgx", "postgres", "pgx"},
		{"mysql", "mysql", "mysql"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d := mustDialect(t, tt.driver)
			if d.Name() != tt.wantName || d.DriverName() != tt.wantDriver {
				t.Errorf("got (%s, %s), want (%s, %s)", d.Name(), d.DriverName(), tt.wantName, tt.wantDriver)
			}
		})
	}

	if _, err := FromDriverName("oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	query := `SELECT data FROM grants WHERE org_id = ? AND stage = ? ORDER BY priority DESC`
	tests := []struct {
		driver string
		want   string
	}{
		{"sqlite", query},
		{"mysql", query},
		{"pgx", `SELECT data FROM grants WHERE org_id = $1 AND stage = $2 ORDER BY priority DESC`},
	}
	for _, tt := range tests {
		if got := mustDialect(t, tt.driver).Rebind(query); got != tt.want {
			t.Errorf("%s Rebind() = %q, want %q", tt.driver, got, tt.want)
		}
	}
}

func TestUpsertClause(t *testing.T) {
	tests := []struct {
		driver   string
		conflict string
		update   []string
		want     string
	}{
		{"sqlite", "id", []string{"stage", "data"}, "ON CONFLICT (id) DO UPDATE SET stage = excluded.stage, data = excluded.data"},
		{"pgx", "org_id, doc_id", []string{"status"}, "ON CONFLICT (org_id, doc_id) DO UPDATE SET status = excluded.status"},
		{"mysql", "org_id, doc_id", []string{"status", "expiry"}, "ON DUPLICATE KEY UPDATE status = VALUES(status), expiry = VALUES(expiry)"},
		{"sqlite", "id", nil, "ON CONFLICT (id) DO NOTHING"},
		{"mysql", "org_id, doc_id", nil, "ON DUPLICATE KEY UPDATE org_id = org_id"},
	}
	for _, tt := range tests {
		t.Run(tt.driver+"/"+tt.conflict, func(t *testing.T) {
			if got := mustDialect(t, tt.driver).UpsertClause(tt.conflict, tt.update); got != tt.want {
				t.Errorf("UpsertClause() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumnTypes(t *testing.T) {
	tests := []struct {
		driver                 string
		key, text, ts, boolean string
	}{
		{"sqlite", "TEXT", "TEXT", "TIMESTAMP", "INTEGER"},
		{"pgx", "TEXT", "TEXT", "TIMESTAMPTZ", "BOOLEAN"},
		{"mysql", "VARCHAR(191)", "LONGTEXT", "DATETIME(6)", "TINYINT(1)"},
	}
	for _, tt := range tests {
		d := mustDialect(t, tt.driver)
		got := []string{d.KeyType(), d.TextType(), d.TimestampType(), d.BooleanType()}
		want := []string{tt.key, tt.text, tt.ts, tt.boolean}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("%s column types = %v, want %v", tt.driver, got, want)
				break
			}
		}
	}
}

func TestIndexExistsQuery(t *testing.T) {
	for _, driver := range []string{"sqlite", "pgx", "mysql"} {
		d := mustDialect(t, driver)
		q := d.IndexExistsQuery()
		if strings.Count(q, "?") != 2 {
			t.Errorf("%s IndexExistsQuery = %q, want two placeholders", driver, q)
		}
		if driver == "pgx" && !strings.Contains(d.Rebind(q), "$2") {
			t.Errorf("postgres index query not rebound: %q", d.Rebind(q))
		}
	}
}

func TestPragmaStatements(t *testing.T) {
	if len(mustDialect(t, "sqlite").PragmaStatements()) == 0 {
		t.Error("sqlite should set pragmas")
	}
	for _, driver := range []string{"pgx", "mysql"} {
		if p := mustDialect(t, driver).PragmaStatements(); len(p) != 0 {
			t.Errorf("%s pragmas = %v", driver, p)
		}
	}
}
