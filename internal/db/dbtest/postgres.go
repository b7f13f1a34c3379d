//go:build integration

// Package dbtest starts a throwaway PostgreSQL container with the chirpfeed
// schema applied. Integration tests only.
//
// Run with: go test -tags=integration ./internal/...
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/onnwee/chirpfeed/internal/db"
	"github.com/onnwee/chirpfeed/migrations"
)

// Image is the PostgreSQL image used for integration tests.
const Image = "postgres:16-alpine"

// NewPostgres starts a container, applies the migrations and returns an open
// pool. The container and pool are released when t finishes.
func NewPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, Image,
		postgres.WithDatabase("chirpfeed"),
		postgres.WithUsername("chirp"),
		postgres.WithPassword("chirp"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	conn, err := db.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := db.Migrate(ctx, conn, migrations.FS); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}
