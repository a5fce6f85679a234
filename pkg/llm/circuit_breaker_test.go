package llm

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestBreaker returns a breaker on a fake clock; advance moves time
// forward without sleeping.
func newTestBreaker(threshold int, resetAfter time.Duration) (cb *CircuitBreaker, advance func(time.Duration)) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cb = NewCircuitBreaker(CircuitBreakerConfig{Threshold: threshold, ResetAfter: resetAfter})
	cb.clock = func() time.Time { return now }
	return cb, func(d time.Duration) { now = now.Add(d) }
}

func failTimes(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.RecordFailure()
	}
}

func TestCircuitBreaker_ClosedAllowsCalls(t *testing.T) {
	cb, _ := newTestBreaker(5, 30*time.Second)

	if cb.State() != BreakerClosed {
		t.Fatalf("new breaker state = %v, want closed", cb.State())
	}
	allowed, err := cb.Allow()
	if !allowed || err != nil {
		t.Errorf("Allow() = %v, %v; want true, nil", allowed, err)
	}
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, 30*time.Second)

	failTimes(cb, 2)
	if cb.State() != BreakerClosed {
		t.Fatalf("state after 2 of 3 failures = %v, want closed", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != BreakerOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}

	allowed, err := cb.Allow()
	if allowed {
		t.Error("open breaker allowed a generation call")
	}
	if err == nil || !strings.Contains(err.Error(), "3 consecutive generation failures") {
		t.Errorf("open breaker error = %v, want failure count in message", err)
	}
}

func TestCircuitBreaker_SuccessClearsFailureRun(t *testing.T) {
	cb, _ := newTestBreaker(3, 30*time.Second)

	// a success between failures means they are not consecutive
	failTimes(cb, 2)
	cb.RecordSuccess()
	failTimes(cb, 2)

	if cb.State() != BreakerClosed {
		t.Errorf("state = %v, want closed after interleaved success", cb.State())
	}
}

func TestCircuitBreaker_ProbesAfterResetWindow(t *testing.T) {
	cb, advance := newTestBreaker(1, 30*time.Second)

	cb.RecordFailure()
	if allowed, _ := cb.Allow(); allowed {
		t.Fatal("breaker allowed a call inside the reset window")
	}

	advance(31 * time.Second)
	allowed, err := cb.Allow()
	if !allowed || err != nil {
		t.Fatalf("Allow() after reset window = %v, %v; want probe allowed", allowed, err)
	}
	if cb.State() != BreakerHalfOpen {
		t.Errorf("state during probe = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_ProbeSuccessClosesBreaker(t *testing.T) {
	cb, advance := newTestBreaker(1, 30*time.Second)

	cb.RecordFailure()
	advance(31 * time.Second)
	if allowed, _ := cb.Allow(); !allowed {
		t.Fatal("probe call not allowed")
	}

	cb.RecordSuccess()
	if cb.State() != BreakerClosed {
		t.Fatalf("state after successful probe = %v, want closed", cb.State())
	}
	if allowed, _ := cb.Allow(); !allowed {
		t.Error("closed breaker refused a call after recovery")
	}
}

func TestCircuitBreaker_ProbeFailureReopensBreaker(t *testing.T) {
	cb, advance := newTestBreaker(1, 30*time.Second)

	cb.RecordFailure()
	advance(31 * time.Second)
	if allowed, _ := cb.Allow(); !allowed {
		t.Fatal("probe call not allowed")
	}

	cb.RecordFailure()
	if cb.State() != BreakerOpen {
		t.Fatalf("state after failed probe = %v, want open", cb.State())
	}

	// the failed probe restarts the reset window
	advance(10 * time.Second)
	if allowed, _ := cb.Allow(); allowed {
		t.Error("breaker allowed a call before the new reset window elapsed")
	}
}

func TestCircuitBreaker_SingleProbeAtATime(t *testing.T) {
	cb, advance := newTestBreaker(1, 30*time.Second)

	cb.RecordFailure()
	advance(31 * time.Second)
	if allowed, _ := cb.Allow(); !allowed {
		t.Fatal("probe call not allowed")
	}

	allowed, err := cb.Allow()
	if allowed {
		t.Error("second call allowed while the probe was still in flight")
	}
	if err == nil || !strings.Contains(err.Error(), "probe already in flight") {
		t.Errorf("half-open error = %v, want probe-in-flight message", err)
	}
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	if cfg.Threshold != 5 {
		t.Errorf("default threshold = %d, want 5", cfg.Threshold)
	}
	if cfg.ResetAfter != 30*time.Second {
		t.Errorf("default reset window = %v, want 30s", cfg.ResetAfter)
	}
}

func TestCircuitBreaker_ConcurrentCalls(t *testing.T) {
	cb, _ := newTestBreaker(50, 30*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = cb.Allow()
				if n%2 == 0 {
					cb.RecordFailure()
				} else {
					cb.RecordSuccess()
				}
			}
		}(i)
		_ = cb.State()
	}
	wg.Wait()

	// With interleaved successes the run never reaches 50; the breaker must
	// end in a coherent state either way.
	switch cb.State() {
	case BreakerClosed, BreakerOpen, BreakerHalfOpen:
	default:
		t.Errorf("unexpected state %v", cb.State())
	}
}
