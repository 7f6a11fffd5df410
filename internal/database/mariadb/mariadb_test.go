//go:build integration

package mariadb

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
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_ROOT_PASSWORD": "root",
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
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
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port()),
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	// The port opens before the server accepts logins during first-time init.
	var store *sqlstore.Store
	deadline := time.Now().Add(60 * time.Second)
	for {
		store, err = Open(ctx, cfg)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
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

