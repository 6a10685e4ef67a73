package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/store"
	"github.com/hrygo/aicall/store/db/postgres"
	"github.com/hrygo/aicall/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite is the default and covers development plus single-user deployments.
// PostgreSQL is for production use with concurrent writers.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
