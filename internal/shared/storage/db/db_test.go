package db

import (
	"testing"
	"time"
)

func TestPoolPresets(t *testing.T) {
	server := DefaultServerOptions()
	worker := DefaultWorkerOptions()
	migrate := DefaultMigrateOptions()

	// Workers park connections across long model calls, so their pool must
	// stay smaller than the API server's.
	if worker.MaxOpenConns >= server.MaxOpenConns {
		t.Fatalf("worker pool (%d) should be smaller than server pool (%d)",
			worker.MaxOpenConns, server.MaxOpenConns)
	}
	if worker.MaxIdleConns >= server.MaxIdleConns {
		t.Fatalf("worker idle pool (%d) should be smaller than server idle pool (%d)",
			worker.MaxIdleConns, server.MaxIdleConns)
	}
	if migrate.MaxOpenConns != 1 {
		t.Fatalf("migrations run on a single connection, got %d", migrate.MaxOpenConns)
	}
}

func TestOptionsFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")

	opts := OptionsFromEnv(DefaultWorkerOptions())
	if opts.MaxOpenConns != 3 {
		t.Fatalf("expected override to 3, got %d", opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %s", opts.ConnMaxLifetime)
	}
	// Untouched fields keep their preset values.
	if opts.MaxIdleConns != DefaultWorkerOptions().MaxIdleConns {
		t.Fatalf("unexpected idle conns: %d", opts.MaxIdleConns)
	}
}

func TestOptionsFromEnvIgnoresInvalid(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	opts := OptionsFromEnv(DefaultServerOptions())
	if opts.MaxOpenConns != DefaultServerOptions().MaxOpenConns {
		t.Fatalf("invalid env should keep preset, got %d", opts.MaxOpenConns)
	}
}
