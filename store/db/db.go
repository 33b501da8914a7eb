// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/parksage/parksage/internal/profile"
	"github.com/parksage/parksage/store"
	"github.com/parksage/parksage/store/db/postgres"
	"github.com/parksage/parksage/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "postgres":
		driver, err = postgres.NewDB(profile)
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver %q", profile.Driver)
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
