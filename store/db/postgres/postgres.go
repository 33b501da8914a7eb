// Package postgres implements the chunk store on PostgreSQL with pgvector.
// This is the production driver: similarity search runs in the database via
// the cosine distance operator.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"sync/atomic"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/parksage/parksage/internal/profile"
	"github.com/parksage/parksage/store"
)

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile

	// parkIndexSeen caches a positive pg_indexes lookup. Once the index
	// exists it is not expected to disappear, so the check is skipped on
	// later searches. A negative result is never cached: the index can be
	// created while the server is running.
	parkIndexSeen atomic.Bool
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

// Migrate applies the latest schema. The statements are idempotent so the
// migration can run on every startup.
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

// placeholder returns a positional parameter placeholder, e.g. $1.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns a comma-separated list of placeholders, e.g. $1, $2, $3.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
