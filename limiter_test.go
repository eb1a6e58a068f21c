package pubfront

import (
	"testing"
	"time"
)

func TestIPLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewIPLimiter(0.001, 2, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third request to be blocked")
	}
}

func TestIPLimiterRefills(t *testing.T) {
	limiter := NewIPLimiter(20, 1, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second request to be blocked")
	}

	time.Sleep(100 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestIPLimiterIsPerIP(t *testing.T) {
	limiter := NewIPLimiter(0.001, 1, time.Minute)
	defer limiter.Close()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after burst")
	}
}

func TestIPLimiterPrunesIdleVisitors(t *testing.T) {
	limiter := NewIPLimiter(1, 1, time.Minute)
	defer limiter.Close()

	limiter.Allow("203.0.113.40")
	limiter.prune(time.Now().Add(time.Second))

	limiter.mu.Lock()
	n := len(limiter.visitors)
	limiter.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle visitor to be pruned, have %d", n)
	}
}
