/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package clusterwaittest provides a virtual clock for tests of polling code.
package clusterwaittest

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
	testingclock "k8s.io/utils/clock/testing"
)

// Clock is a fake clock that advances itself whenever a timer is created,
// so every wait completes at once while elapsed virtual time is tracked.
type Clock struct {
	*testingclock.FakeClock

	mu     sync.Mutex
	sleeps []time.Duration
}

var _ clock.Clock = (*Clock)(nil)

// NewClock returns a self-advancing clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{FakeClock: testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))}
}

// NewTimer creates a timer and immediately steps past its deadline.
func (c *Clock) NewTimer(d time.Duration) clock.Timer {
	t := c.FakeClock.NewTimer(d)
	c.advance(d)
	return t
}

// After returns a channel that has already fired.
func (c *Clock) After(d time.Duration) <-chan time.Time {
	ch := c.FakeClock.After(d)
	c.advance(d)
	return ch
}

// Sleep advances the clock by d.
func (c *Clock) Sleep(d time.Duration) {
	c.advance(d)
}

func (c *Clock) advance(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	c.Step(d)
}

// Sleeps returns every wait requested so far, in order.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// Elapsed returns the virtual time passed since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	return c.Since(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}
