package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/rod/internal/profile"
	"github.com/hrygo/rod/store"
	"github.com/hrygo/rod/store/db"
)

// NewTestingStore returns a migrated store. SQLite in a temp dir is the default;
// DRIVER=postgres switches to the database at POSTGRES_TEST_DSN.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	ts := store.New(dbDriver, profile)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		ts.Close()
	})
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()
	dir := t.TempDir()
	mode := "prod"
	driver := getDriverFromEnv()

	p := &profile.Profile{
		Mode:     mode,
		Port:     getUnusedPort(),
		Data:     dir,
		Driver:   driver,
		AudioDir: filepath.Join(dir, "audio"),
	}
	switch driver {
	case "sqlite":
		p.DSN = filepath.Join(dir, "rod_test.db")
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
