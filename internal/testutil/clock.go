// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"slices"
	"sync"
	"time"
)

// epoch is where a FakeClock starts when no time is given.
var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type (
	// FakeClock implements the Now/After/Since clock used by the vote loop
	// and its subnet cache. Time only moves on Advance or Set.
	FakeClock struct {
		mu       sync.Mutex
		now      time.Time
		pending  []timer
		arrivals chan struct{}
	}

	timer struct {
		due time.Time
		ch  chan time.Time
	}
)

// NewFakeClock returns a FakeClock at initial, or at a fixed epoch when
// initial is zero.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = epoch
	}
	return &FakeClock{now: initial, arrivals: make(chan struct{})}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the fake time elapsed since t.
func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// After fires once the clock reaches now+d. Non-positive durations fire
// immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.pending = append(c.pending, timer{due: c.now.Add(d), ch: ch})
	close(c.arrivals)
	c.arrivals = make(chan struct{})
	return ch
}

// Advance moves the clock forward by d, firing due timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveTo(c.now.Add(d))
}

// Set moves the clock to t, firing due timers.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveTo(t)
}

// Waiters returns the number of pending After timers.
func (c *FakeClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// BlockUntilWaiters waits until at least n After timers are pending and
// reports whether that happened before timeout.
func (c *FakeClock) BlockUntilWaiters(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		c.mu.Lock()
		count, arrived := len(c.pending), c.arrivals
		c.mu.Unlock()
		if count >= n {
			return true
		}
		select {
		case <-arrived:
		case <-deadline.C:
			return c.Waiters() >= n
		}
	}
}

// moveTo requires mu.
func (c *FakeClock) moveTo(t time.Time) {
	c.now = t
	c.pending = slices.DeleteFunc(c.pending, func(tm timer) bool {
		if tm.due.After(c.now) {
			return false
		}
		tm.ch <- c.now
		return true
	})
}
