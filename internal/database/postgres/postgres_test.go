//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/sqlstore"
	"github.com/kozaktomas/face-attendance/internal/database/storetest"
)

func setupTestContainer(t *testing.T) (*sqlstore.Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	store, err := Open(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to open store: %v", err)
	}

	cleanup := func() {
		store.Close()
		_ = container.Terminate(ctx)
	}
	return store, cleanup
}

func TestStore(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	storetest.Run(t, store)
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := Migrate(ctx, store); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	applied, err := store.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied: %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_init.sql" {
		t.Errorf("unexpected applied migrations %v", applied)
	}
}
