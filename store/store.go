package store

import (
	"context"
	"errors"

	"github.com/hrygo/rod/internal/profile"
)

// ErrAlreadyExists is returned by drivers when a unique natural key is already taken,
// e.g. a second feedback row for the same message.
var ErrAlreadyExists = errors.New("record already exists")

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Ping checks the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.GetDB().PingContext(ctx)
}
