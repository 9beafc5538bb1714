// Package timer provides the attempt countdown: a deadline-based ticker that
// reports remaining time and fires expiry exactly once.
package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Countdown ticks down a fixed duration. Remaining time is recomputed from
// the deadline on every tick, so missed ticks (host suspend, GC pauses)
// cannot skip or duplicate the expiry notification: the first tick at or past
// the deadline fires it, and only once. Stop releases the underlying ticker
// and guarantees no further callbacks.
type Countdown struct {
	deadline time.Time
	interval time.Duration
	onTick   func(remaining time.Duration)
	onExpire func()

	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
	expireOnce sync.Once
	stopped    atomic.Bool
}

// New creates a countdown over the given duration. onTick receives the
// remaining time at every interval; onExpire fires exactly once when the
// deadline is reached. Either callback may be nil.
func New(duration, interval time.Duration, onTick func(time.Duration), onExpire func()) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	now := time.Now
	return &Countdown{
		deadline: now().Add(duration),
		interval: interval,
		onTick:   onTick,
		onExpire: onExpire,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Start launches the tick loop in its own goroutine.
func (c *Countdown) Start() {
	go c.run()
}

// Remaining returns the time left until the deadline, never negative.
func (c *Countdown) Remaining() time.Duration {
	rem := c.deadline.Sub(c.now())
	if rem < 0 {
		return 0
	}
	return rem
}

// Stop cancels the countdown. Safe to call multiple times and after expiry.
// No callback runs after Stop returns observably.
func (c *Countdown) Stop() {
	c.stopped.Store(true)
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.stopped.Load() {
				return
			}
			rem := c.Remaining()
			if rem <= 0 {
				c.expire()
				return
			}
			if c.onTick != nil {
				c.onTick(rem)
			}
		}
	}
}

func (c *Countdown) expire() {
	c.expireOnce.Do(func() {
		if c.onExpire != nil {
			c.onExpire()
		}
	})
	c.Stop()
}
