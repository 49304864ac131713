// Package storage selects and opens the persistence backend.
package storage

import (
	"fmt"

	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
	"github.com/tjfontaine/grant-pipeline/internal/storage/memory"
	"github.com/tjfontaine/grant-pipeline/internal/storage/sqldb"
)

// Store is a full persistence backend including the seeding methods.
type Store interface {
	ports.Store
	ports.Seeder
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqldb.Store)(nil)
)

// Open returns the backend for driver. "memory" ignores dsn; every other
// driver is handed to sqldb.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return memory.New(), nil
	case "sqlite", "postgres", "mysql":
		s, err := sqldb.New(sqldb.Config{Driver: driver, DSN: dsn})
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
