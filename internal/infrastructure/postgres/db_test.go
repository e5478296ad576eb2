package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPoolRejectsInvalidURL(t *testing.T) {
	if _, err := NewPoolWithConfig(context.Background(), PoolConfig{DatabaseURL: "not-a-url"}); err == nil {
		t.Fatalf("expected error when parsing invalid URL")
	}
}

func TestNewPoolPingFailure(t *testing.T) {
	cfg := PoolConfig{
		DatabaseURL:    "postgres://ledger@127.0.0.1:1/famledger?sslmode=disable",
		MaxConns:       1,
		ConnectTimeout: 200 * time.Millisecond,
	}

	if _, err := NewPoolWithConfig(context.Background(), cfg); err == nil {
		t.Fatalf("expected error when pool cannot connect")
	}
}

func TestRunMigrationsRejectsMissingDirectory(t *testing.T) {
	err := RunMigrations("postgres://ledger@127.0.0.1:1/famledger?sslmode=disable", t.TempDir()+"/missing", zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}
