package test

import (
	"os"
	"testing"
)

// GetPostgresDSN returns the DSN of an externally provided PostgreSQL instance.
// Set POSTGRES_TEST_DSN to run the store suite against PostgreSQL; tests are skipped otherwise.
func GetPostgresDSN(t *testing.T) string {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN is not set")
	}
	return dsn
}
