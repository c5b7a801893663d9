package execute

import (
	"context"
	"testing"
	"time"
)

// waitsBriefly reports whether a call to providerID clears the limiter
// within a few milliseconds
func waitsBriefly(l *Limiter, providerID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, providerID) == nil
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	// 1 rps, burst 1
	limiter := NewLimiter(1, 1)

	if err := limiter.Wait(context.Background(), "openai-mini"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of 1 is spent
	if waitsBriefly(limiter, "openai-mini") {
		t.Errorf("expected wait to fail (exhausted tokens)")
	}

	// Different provider has its own bucket
	if !waitsBriefly(limiter, "anthropic-sonnet") {
		t.Errorf("expected other provider to pass")
	}
}

func TestLimiter_WaitCanceled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	_ = limiter.Wait(context.Background(), "slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "slow"); err == nil {
		t.Error("expected wait to fail once the context cannot be satisfied")
	}
}

func TestLimiter_SetProviderRate(t *testing.T) {
	limiter := NewLimiter(10, 10) // fast default

	// Strict limit for one provider
	limiter.SetProviderRate("ollama-local", 0.1, 1)

	if !waitsBriefly(limiter, "ollama-local") {
		t.Errorf("first request should pass")
	}
	if waitsBriefly(limiter, "ollama-local") {
		t.Errorf("second request should fail")
	}
	if !waitsBriefly(limiter, "openai-mini") {
		t.Errorf("other provider should pass")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !waitsBriefly(limiter, "free") {
			t.Fatalf("expected unlimited limiter to pass call %d", i)
		}
	}
}
