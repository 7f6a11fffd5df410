//go:build integration

package lock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/logging"
)

func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
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
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client, err := NewRedisClient(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	return client, func() {
		client.Close()
		container.Terminate(ctx)
	}
}

func TestRedisLocker(t *testing.T) {
	client, cleanup := setupRedis(t)
	if client == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	first := NewRedisLocker(client, "attendance:lock:", 10*time.Second)
	second := NewRedisLocker(client, "attendance:lock:", 10*time.Second)

	t.Run("ExclusiveAcrossLockers", func(t *testing.T) {
		unlock, err := first.Lock(ctx, "sweep")
		if err != nil {
			t.Fatalf("first lock: %v", err)
		}

		waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		if _, err := second.Lock(waitCtx, "sweep"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected second locker to time out, got %v", err)
		}

		unlock()

		unlock2, err := second.Lock(ctx, "sweep")
		if err != nil {
			t.Fatalf("second lock after release: %v", err)
		}
		unlock2()
	})

	t.Run("ReleaseKeepsForeignToken", func(t *testing.T) {
		short := NewRedisLocker(client, "attendance:lock:", 100*time.Millisecond)
		unlock, err := short.Lock(ctx, "expiring")
		if err != nil {
			t.Fatalf("lock: %v", err)
		}
		time.Sleep(200 * time.Millisecond)

		unlockOther, err := first.Lock(ctx, "expiring")
		if err != nil {
			t.Fatalf("lock after expiry: %v", err)
		}
		unlock() // expired holder must not delete the new holder's key

		exists, err := client.Exists(ctx, "attendance:lock:expiring").Result()
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if exists != 1 {
			t.Error("expected the current holder's key to survive a stale release")
		}
		unlockOther()
	})
	t.Run("ReleaseFailureIsLogged", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.Logger()
		prev := logger.Out
		logger.SetOutput(&buf)
		t.Cleanup(func() { logger.SetOutput(prev) })

		own, err := NewRedisClient(ctx, client.Options().Addr, "", 0)
		if err != nil {
			t.Fatalf("client: %v", err)
		}
		unlock, err := NewRedisLocker(own, "attendance:lock:", 10*time.Second).Lock(ctx, "closed")
		if err != nil {
			t.Fatalf("lock: %v", err)
		}
		own.Close()
		unlock()

		if !strings.Contains(buf.String(), "failed to release lock") {
			t.Errorf("expected release failure in the log, got %q", buf.String())
		}
		client.Del(ctx, "attendance:lock:closed")
	})
}
