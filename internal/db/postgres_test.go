package db

import (
	"errors"
	"testing"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
)

func TestNewPostgresServiceClampsWaitAttempts(t *testing.T) {
	// A zero attempt count must still try once and report the exhausted
	// wait, not skip the loop and fall through with a nil handle.
	t.Setenv("POSTGRES_HOST", "127.0.0.1")
	t.Setenv("POSTGRES_PORT", "1")
	t.Setenv("DB_WAIT_ATTEMPTS", "0")
	t.Setenv("DB_WAIT_INTERVAL_S", "0")

	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}

	pg, err := NewPostgresService(log)
	if err == nil {
		t.Fatal("expected connect failure against a closed port")
	}
	if pg != nil {
		t.Fatalf("expected nil service on failure, got %+v", pg)
	}
	if !errors.Is(err, ErrDatabaseUnavailable) {
		t.Fatalf("error = %v, want ErrDatabaseUnavailable", err)
	}
}
