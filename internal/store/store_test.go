package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andresmejia3/facegate/internal/types"
)

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Skipf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("facegate_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	// --- Test Scenarios ---

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	attempts := []types.Attempt{
		{ID: "a1", Username: "alice", Kind: types.AttemptRejected, Message: "No face match", Endpoint: "/auth/api/face-login/", CreatedAt: base},
		{ID: "a2", Username: "alice", Kind: types.AttemptNetwork, Message: "connection refused", Endpoint: "/auth/api/face-login/", CreatedAt: base.Add(time.Minute)},
		{ID: "a3", Username: "alice", Success: true, Kind: types.AttemptOK, Message: "OK", Endpoint: "/auth/api/face-login/", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, a := range attempts {
		if err := s.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("RecordAttempt(%s) failed: %v", a.ID, err)
		}
	}

	// Duplicate IDs are rejected
	if err := s.RecordAttempt(ctx, attempts[0]); err == nil {
		t.Error("Expected duplicate ID to fail")
	}

	all, err := s.ListAttempts(ctx, 0)
	if err != nil {
		t.Fatalf("ListAttempts failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(all))
	}
	if all[0].ID != "a3" || !all[0].Success || all[0].Kind != types.AttemptOK {
		t.Errorf("Expected newest success first, got %+v", all[0])
	}
	if !all[2].CreatedAt.Equal(base) {
		t.Errorf("Timestamp mismatch: %v", all[2].CreatedAt)
	}

	limited, err := s.ListAttempts(ctx, 2)
	if err != nil {
		t.Fatalf("ListAttempts(limit) failed: %v", err)
	}
	if len(limited) != 2 || limited[1].Kind != types.AttemptNetwork {
		t.Errorf("Unexpected limited result %+v", limited)
	}

	// Reset drops the table; a new Store recreates it empty
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	s2, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	defer s2.Close(ctx)
	empty, err := s2.ListAttempts(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty history after reset, got %d", len(empty))
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
