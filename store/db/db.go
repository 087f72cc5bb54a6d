// Package db provides the store driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/mhalter/coachflow/internal/profile"
	"github.com/mhalter/coachflow/store"
	"github.com/mhalter/coachflow/store/db/sqlite"
)

// NewDBDriver creates a new DB driver based on the profile.
func NewDBDriver(p *profile.Profile) (store.Driver, error) {
	switch p.Driver {
	case "sqlite", "":
		return sqlite.NewDB(p)
	default:
		return nil, errors.Errorf("unknown db driver: %s", p.Driver)
	}
}
