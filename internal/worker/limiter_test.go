package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllowsDistinctDomains(t *testing.T) {
	l := NewLimiter(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// One request per domain fits in the burst; distinct domains do not
	// contend with each other.
	for _, u := range []string{"https://a.example/x", "https://b.example/x", "https://c.example/x"} {
		if err := l.Wait(ctx, u); err != nil {
			t.Fatalf("Wait(%s): %v", u, err)
		}
	}
}

func TestLimiterThrottlesSameDomain(t *testing.T) {
	l := NewLimiter(5, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background(), "https://same.example/page"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// Two waits beyond the burst at 5 rps is roughly 400ms.
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("three requests took %s, limiter not throttling", elapsed)
	}
}

func TestLimiterContextCancel(t *testing.T) {
	l := NewLimiter(0.1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "https://slow.example/a"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if err := l.Wait(ctx, "https://slow.example/b"); err == nil {
		t.Fatal("expected context deadline while throttled")
	}
}

func TestLimiterBadURL(t *testing.T) {
	l := NewLimiter(1, 1)
	if err := l.Wait(context.Background(), "://bad"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWaitWithDelay(t *testing.T) {
	l := NewLimiter(100, 10)

	start := time.Now()
	if err := l.WaitWithDelay(context.Background(), "https://d.example/x", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("delay not applied, took %s", elapsed)
	}
}
