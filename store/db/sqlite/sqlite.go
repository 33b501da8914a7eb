// Package sqlite implements the chunk store on SQLite.
//
// SQLite is supported for development and testing: vectors are stored as
// BLOBs and similarity is computed in the application layer, which is fine
// for the corpus sizes a dev instance holds. Production deployments should
// use the postgres driver, where pgvector does the search in the database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/parksage/parksage/internal/profile"
	"github.com/parksage/parksage/store"
)

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database at the DSN path from the profile.
//
// Pragmas: WAL journal mode prevents most locking issues, and the busy
// timeout keeps concurrent readers from failing fast while a write is in
// flight. With the modernc.org/sqlite driver each pragma must be prefixed
// with `_pragma=`.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

// Migrate applies the latest schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(latestSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration statement: %s", stmt)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
