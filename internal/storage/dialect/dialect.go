// Package dialect describes the SQL differences between the databases the
// sqldb store runs on.
package dialect

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect holds the column types, bind style and statements for one database.
type Dialect struct {
	name    string
	driver  string
	bind    int
	key     string
	text    string
	ts      string
	boolean string
	pragmas []string
	indexes string

	// duplicateKey selects MySQL's ON DUPLICATE KEY form over ON CONFLICT.
	duplicateKey bool
}

var (
	sqlite = &Dialect{
		name:    "sqlite",
		driver:  "sqlite",
		bind:    sqlx.QUESTION,
		key:     "TEXT",
		text:    "TEXT",
		ts:      "TIMESTAMP",
		boolean: "INTEGER",
		pragmas: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		},
		indexes: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?`,
	}

	postgres = &Dialect{
		name:    "postgres",
		driver:  "pgx",
		bind:    sqlx.DOLLAR,
		key:     "TEXT",
		text:    "TEXT",
		ts:      "TIMESTAMPTZ",
		boolean: "BOOLEAN",
		indexes: `SELECT COUNT(*) FROM pg_indexes WHERE tablename = ? AND indexname = ?`,
	}

	// DSNs need parseTime=true.
	mysql = &Dialect{
		name:    "mysql",
		driver:  "mysql",
		bind:    sqlx.QUESTION,
		key:     "VARCHAR(191)",
		text:    "LONGTEXT",
		ts:      "DATETIME(6)",
		boolean: "TINYINT(1)",
		indexes: `SELECT COUNT(*) FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?`,
		duplicateKey: true,
	}
)

// FromDriverName returns the dialect for a configured storage driver.
func FromDriverName(driver string) (*Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return sqlite, nil
	case "postgres", "postgresql", "pgx":
		return postgres, nil
	case "mysql":
		return mysql, nil
	}
	return nil, fmt.Errorf("unsupported driver: %s", driver)
}

// Name is the canonical dialect name.
func (d *Dialect) Name() string { return d.name }

// DriverName is the database/sql driver to open.
func (d *Dialect) DriverName() string { return d.driver }

// KeyType is the column type for primary keys and indexed identifiers.
func (d *Dialect) KeyType() string { return d.key }

// TextType is the column type for JSON documents and extracted text.
func (d *Dialect) TextType() string { return d.text }

// TimestampType is the column type for timestamps.
func (d *Dialect) TimestampType() string { return d.ts }

// BooleanType is the column type for flags.
func (d *Dialect) BooleanType() string { return d.boolean }

// PragmaStatements run once after the connection opens.
func (d *Dialect) PragmaStatements() []string { return d.pragmas }

// IndexExistsQuery counts indexes by (table, index name), written with ?
// placeholders.
func (d *Dialect) IndexExistsQuery() string { return d.indexes }

// Rebind rewrites ? placeholders into the dialect's bind style.
func (d *Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bind, query)
}

// UpsertClause returns the conflict clause that overwrites update on a key
// collision over conflict (a comma-separated column list).
func (d *Dialect) UpsertClause(conflict string, update []string) string {
	set := make([]string, len(update))
	if d.duplicateKey {
		if len(update) == 0 {
			first := strings.TrimSpace(strings.Split(conflict, ",")[0])
			return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s = %s", first, first)
		}
		for i, col := range update {
			set[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
	}

	if len(update) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", conflict)
	}
	for i, col := range update {
		set[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflict, strings.Join(set, ", "))
}
