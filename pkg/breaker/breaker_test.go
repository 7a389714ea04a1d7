package breaker

import (
	"strings"
	"testing"
	"time"
)

func TestBreaker_InitialState(t *testing.T) {
	b := New(Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second})

	if b.State() != StateClosed {
		t.Errorf("expected initial state closed, got %v", b.State())
	}
	allowed, err := b.Allow()
	if !allowed || err != nil {
		t.Errorf("expected Allow to succeed on closed breaker, got allowed=%v err=%v", allowed, err)
	}
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second})

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	if b.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %v", b.State())
	}
	if b.ConsecutiveFailures() != 3 {
		t.Errorf("expected 3 consecutive failures, got %d", b.ConsecutiveFailures())
	}

	allowed, err := b.Allow()
	if allowed {
		t.Errorf("expected Allow to reject on open breaker")
	}
	if err == nil || !strings.Contains(err.Error(), "circuit breaker open") {
		t.Errorf("expected open-breaker error, got: %v", err)
	}
}

func TestBreaker_DoesNotTripBeforeThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 5, ResetTimeout: 30 * time.Second})

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}

	if b.State() != StateClosed {
		t.Errorf("expected closed below threshold, got %v", b.State())
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New(Config{FailureThreshold: 5, ResetTimeout: 30 * time.Second})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	if b.ConsecutiveFailures() != 0 {
		t.Errorf("expected counter reset after success, got %d", b.ConsecutiveFailures())
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after success, got %v", b.State())
	}
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	b := New(Config{FailureThreshold: 3, ResetTimeout: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	if allowed, _ := b.Allow(); allowed {
		t.Fatalf("expected rejection immediately after tripping")
	}

	time.Sleep(60 * time.Millisecond)

	allowed, err := b.Allow()
	if !allowed || err != nil {
		t.Fatalf("expected trial call after reset timeout, got allowed=%v err=%v", allowed, err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", b.State())
	}

	// Only one trial call may be in flight.
	allowed, err = b.Allow()
	if allowed {
		t.Errorf("expected second call rejected while half-open")
	}
	if err == nil || !strings.Contains(err.Error(), "half-open") {
		t.Errorf("expected half-open error, got: %v", err)
	}
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b := New(Config{FailureThreshold: 3, ResetTimeout: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	time.Sleep(60 * time.Millisecond)
	_, _ = b.Allow()

	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Errorf("expected closed after half-open success, got %v", b.State())
	}
	if b.ConsecutiveFailures() != 0 {
		t.Errorf("expected counter zeroed, got %d", b.ConsecutiveFailures())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New(Config{FailureThreshold: 3, ResetTimeout: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	time.Sleep(60 * time.Millisecond)
	_, _ = b.Allow()

	b.RecordFailure()

	if b.State() != StateOpen {
		t.Errorf("expected reopened after half-open failure, got %v", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := New(Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second})

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	b.Reset()

	if b.State() != StateClosed {
		t.Errorf("expected closed after reset, got %v", b.State())
	}
	if allowed, _ := b.Allow(); !allowed {
		t.Errorf("expected Allow to succeed after reset")
	}
}

func TestBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FailureThreshold != 3 {
		t.Errorf("expected default threshold 3, got %d", cfg.FailureThreshold)
	}
	if cfg.ResetTimeout != 60*time.Second {
		t.Errorf("expected default reset timeout 60s, got %v", cfg.ResetTimeout)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, expected %q", tt.state, got, tt.expected)
		}
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b := New(Config{FailureThreshold: 10, ResetTimeout: 100 * time.Millisecond})

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_, _ = b.Allow()
				if j%2 == 0 {
					b.RecordSuccess()
				} else {
					b.RecordFailure()
				}
				_ = b.State()
				_ = b.ConsecutiveFailures()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	// Passes if go test -race detects nothing.
}
