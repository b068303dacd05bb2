package testutil

import (
	"context"
	"testing"

	"github.com/nhle/airbrb-notify/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied
// and seeds it with alternating key/value pairs. It automatically closes
// the store when the test completes.
func NewTestStore(t *testing.T, seed ...string) *store.SQLiteStore {
	t.Helper()

	if len(seed)%2 != 0 {
		t.Fatalf("seed needs key/value pairs, got %d values", len(seed))
	}

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	ctx := context.Background()
	for i := 0; i < len(seed); i += 2 {
		if err := s.Set(ctx, seed[i], seed[i+1]); err != nil {
			t.Fatalf("seeding %q: %v", seed[i], err)
		}
	}

	return s
}
