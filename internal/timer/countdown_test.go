package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownExpiresOnce(t *testing.T) {
	var expirations atomic.Int32
	done := make(chan struct{})

	c := New(20*time.Millisecond, 5*time.Millisecond, nil, func() {
		expirations.Add(1)
		close(done)
	})
	c.Start()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expiry never fired")
	}

	// Give the loop time to misbehave if it were going to.
	time.Sleep(30 * time.Millisecond)
	if n := expirations.Load(); n != 1 {
		t.Fatalf("onExpire fired %d times, want 1", n)
	}
}

func TestCountdownTicksReportRemaining(t *testing.T) {
	var ticks atomic.Int32
	var sawNegative atomic.Bool

	c := New(100*time.Millisecond, 5*time.Millisecond, func(rem time.Duration) {
		ticks.Add(1)
		if rem < 0 {
			sawNegative.Store(true)
		}
	}, nil)
	c.Start()
	defer c.Stop()

	time.Sleep(40 * time.Millisecond)
	if ticks.Load() == 0 {
		t.Fatal("no ticks observed")
	}
	if sawNegative.Load() {
		t.Fatal("onTick reported negative remaining time")
	}
}

func TestCountdownStopPreventsExpiry(t *testing.T) {
	var expirations atomic.Int32

	c := New(20*time.Millisecond, 5*time.Millisecond, nil, func() {
		expirations.Add(1)
	})
	c.Start()
	c.Stop()

	time.Sleep(50 * time.Millisecond)
	if n := expirations.Load(); n != 0 {
		t.Fatalf("onExpire fired %d times after Stop, want 0", n)
	}
}

func TestCountdownStopIdempotent(t *testing.T) {
	c := New(time.Minute, time.Second, nil, nil)
	c.Start()
	c.Stop()
	c.Stop() // must not panic
}

func TestCountdownRemainingNeverNegative(t *testing.T) {
	c := New(-time.Second, time.Second, nil, nil)
	if rem := c.Remaining(); rem != 0 {
		t.Fatalf("Remaining = %v for past deadline, want 0", rem)
	}
}
