package database

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite"})
	if err == nil {
		t.Fatal("expected error for unregistered driver")
	}
}

func TestOpen_RegisteredDriver(t *testing.T) {
	sentinel := errors.New("opened")
	var got *config.DatabaseConfig
	RegisterBackend("fake", func(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
		got = cfg
		return nil, sentinel
	})

	cfg := &config.DatabaseConfig{Driver: "fake", URL: "fake://"}
	if _, err := Open(context.Background(), cfg); !errors.Is(err, sentinel) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if got != cfg {
		t.Error("backend did not receive the config")
	}
	if !slices.Contains(Backends(), "fake") {
		t.Errorf("Backends() = %v, expected fake", Backends())
	}
}
