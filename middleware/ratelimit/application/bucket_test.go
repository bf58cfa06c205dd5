package application

import (
	"context"
	"testing"
	"time"

	"artmarket-gateway/middleware/ratelimit/infra"
)

func TestBucketLimiter_AllowsLimitThenDenies(t *testing.T) {
	clk := newStepClock()
	store, err := infra.NewBucketStore(10*time.Second, infra.WithBucketClock(clk.Now))
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}
	lim := BucketLimiter{Store: store, Now: clk.Now}

	first := lim.Check(context.Background(), "ip-a", 2)
	if !first.Allowed || first.Remaining != 1 {
		t.Fatalf("expected allowed with 1 remaining, got %+v", first)
	}
	second := lim.Check(context.Background(), "ip-a", 2)
	if !second.Allowed || second.Remaining != 0 {
		t.Fatalf("expected allowed with 0 remaining, got %+v", second)
	}
	third := lim.Check(context.Background(), "ip-a", 2)
	if third.Allowed {
		t.Fatalf("expected third call to be denied")
	}
	if want := clk.Now().Add(5 * time.Second); !third.ResetAt.Equal(want) {
		t.Fatalf("expected next token at %s, got %s", want, third.ResetAt)
	}
}

func TestBucketLimiter_NonPositiveLimitDisablesPolicy(t *testing.T) {
	store, err := infra.NewBucketStore(time.Second)
	if err != nil {
		t.Fatalf("new bucket store: %v", err)
	}
	lim := BucketLimiter{Store: store}
	if !lim.Check(context.Background(), "k", 0).Allowed {
		t.Fatalf("expected disabled policy to allow")
	}
}
