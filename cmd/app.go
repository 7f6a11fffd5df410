package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	_ "github.com/kozaktomas/face-attendance/internal/database/mariadb"
	_ "github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/lock"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// lockTTL bounds how long a crashed holder can block a Redis lock.
const lockTTL = 30 * time.Second

// app bundles the long-lived dependencies shared by the commands.
type app struct {
	cfg   *config.Config
	store database.Store
	redis *redis.Client
	svc   *attendance.Service
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	fmt.Printf("Connecting to %s database...\n", cfg.Database.Driver)
	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newApp opens the store, builds the matcher and wires the attendance
// service. When withFaces is set the persisted face samples are loaded.
func newApp(ctx context.Context, cfg *config.Config, withFaces bool) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store}

	detector, err := facematch.NewDetector(cfg.Recognition)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create face detector: %w", err)
	}
	matcher := facematch.NewMatcher(detector, facematch.Options{
		Threshold:       cfg.Recognition.Threshold,
		FaceSize:        cfg.Recognition.FaceSize,
		IndexMinSamples: cfg.Recognition.IndexMinSamples,
	})

	opts := attendance.Options{
		GracePeriod: cfg.Attendance.GracePeriod,
		Location:    cfg.Attendance.Location(),
	}
	if cfg.Redis.Addr != "" {
		a.redis, err = lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		// The unique constraint guards attendance across replicas. Only the sweep needs a shared lock.
		opts.SweepLocker = lock.NewRedisLocker(a.redis, "face-attendance:", lockTTL)
		fmt.Printf("Redis locking enabled (%s)\n", cfg.Redis.Addr)
	}
	a.svc = attendance.NewService(store, matcher, opts)

	if withFaces {
		loaded, skipped, err := a.svc.LoadFaces(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to load face samples: %w", err)
		}
		fmt.Printf("Loaded %d face samples (%d skipped)\n", loaded, skipped)
		if skipped > 0 {
			logging.Warn(logging.Fields{"skipped": skipped}, "corrupt face samples were skipped")
		}
	}
	return a, nil
}

// Close releases the store and the Redis client.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.Warn(logging.Fields{"error": err.Error()}, "closing redis")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Warn(logging.Fields{"error": err.Error()}, "closing database")
		}
	}
}
