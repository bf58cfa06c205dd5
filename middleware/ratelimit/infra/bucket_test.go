package infra

import (
	"testing"
	"time"
)

func TestBucketStore_AllowsBurstThenRejects(t *testing.T) {
	clk := newFakeClock()
	s, err := NewBucketStore(time.Hour, WithBucketClock(clk.Now))
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}

	for i := 0; i < 3; i++ {
		if ok, _ := s.Take("k", 3); !ok {
			t.Fatalf("expected take %d to pass (burst=3)", i+1)
		}
	}
	ok, left := s.Take("k", 3)
	if ok {
		t.Fatalf("expected fourth immediate take to be rejected")
	}
	if left != 0 {
		t.Fatalf("expected 0 tokens left, got %d", left)
	}
}

func TestBucketStore_RefillsOverWindow(t *testing.T) {
	clk := newFakeClock()
	s, err := NewBucketStore(10*time.Second, WithBucketClock(clk.Now))
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}

	_, _ = s.Take("k", 2)
	_, _ = s.Take("k", 2)
	if ok, _ := s.Take("k", 2); ok {
		t.Fatalf("expected empty bucket")
	}

	// taxa = 2 / 10s => um token a cada 5s
	clk.Advance(5 * time.Second)
	if ok, _ := s.Take("k", 2); !ok {
		t.Fatalf("expected one token after 5s")
	}
}

func TestBucketStore_ReportsRemaining(t *testing.T) {
	clk := newFakeClock()
	s, err := NewBucketStore(time.Hour, WithBucketClock(clk.Now))
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}

	_, left := s.Take("k", 5)
	if left != 4 {
		t.Fatalf("expected 4 tokens left, got %d", left)
	}
}

func TestBucketStore_CleanupRemovesIdleEntries(t *testing.T) {
	clk := newFakeClock()
	s, err := NewBucketStore(time.Second, WithIdleTTL(2*time.Second), WithCleanupEvery(0), WithBucketClock(clk.Now))
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}

	_, _ = s.Take("k", 1)
	clk.Advance(3 * time.Second)
	s.Cleanup()

	if s.Len() != 0 {
		t.Fatalf("expected idle entry to be removed, got %d entries", s.Len())
	}
}

func TestBucketStore_IdleTTLNeverShorterThanWindow(t *testing.T) {
	clk := newFakeClock()
	s, err := NewBucketStore(time.Minute, WithIdleTTL(time.Second), WithBucketClock(clk.Now))
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}

	_, _ = s.Take("k", 1)
	clk.Advance(30 * time.Second)
	s.Cleanup()

	if s.Len() != 1 {
		t.Fatalf("expected entry to survive while its bucket may still be draining")
	}
}

func TestBucketStore_EvictsLeastRecentlyUsedAtMaxKeys(t *testing.T) {
	clk := newFakeClock()
	s, err := NewBucketStore(time.Hour, WithBucketMaxKeys(2), WithBucketClock(clk.Now))
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}

	_, _ = s.Take("a", 1)
	_, _ = s.Take("b", 1)
	if ok, _ := s.Take("a", 1); ok {
		t.Fatalf("expected a to be empty")
	}
	// "b" é a menos recente e sai para dar lugar a "c"
	_, _ = s.Take("c", 1)

	if s.Len() != 2 {
		t.Fatalf("expected store capped at 2 keys, got %d", s.Len())
	}
	if ok, _ := s.Take("a", 1); ok {
		t.Fatalf("expected a to keep its drained bucket")
	}
	if ok, _ := s.Take("b", 1); !ok {
		t.Fatalf("expected evicted b to come back with a full bucket")
	}
}

func TestBucketStore_RejectsNonPositiveWindow(t *testing.T) {
	if _, err := NewBucketStore(0); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
