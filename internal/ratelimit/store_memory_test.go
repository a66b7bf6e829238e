package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/checkvibe/gatekeeper/internal/clock"
)

func TestMemoryStoreExpiry(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "k", time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	clk.Advance(time.Second)
	got, err := store.Incr(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected counter reset, got %d", got)
	}

	clk.Advance(2 * time.Second)
	if n := store.Len(); n != 0 {
		t.Fatalf("expected expired counters to be swept, got %d", n)
	}
}
