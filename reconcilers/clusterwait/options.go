/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package clusterwait

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// Observer is notified of polls and lifecycle actions.
type Observer interface {
	StatusPoll(ctx context.Context, state string)
	ClusterAction(ctx context.Context, action string)
}

type nopObserver struct{}

func (nopObserver) StatusPoll(context.Context, string)    {}
func (nopObserver) ClusterAction(context.Context, string) {}

// Option configures the Waiter.
type Option func(*Waiter)

// WithClock replaces the real clock, typically with a fake one in tests.
func WithClock(c clock.Clock) Option {
	return func(w *Waiter) {
		w.clock = c
	}
}

// WithPollInterval sets the delay between status polls (default 10s).
func WithPollInterval(d time.Duration) Option {
	return func(w *Waiter) {
		w.pollInterval = d
	}
}

// WithTimeout bounds AwaitState. Zero, the default, waits forever.
func WithTimeout(d time.Duration) Option {
	return func(w *Waiter) {
		w.timeout = d
	}
}

// WithSettleInterval sets the fixed pause after a start (default 5s).
func WithSettleInterval(d time.Duration) Option {
	return func(w *Waiter) {
		w.settleInterval = d
	}
}

// WithObserver reports polls and starts to o.
func WithObserver(o Observer) Option {
	return func(w *Waiter) {
		if o != nil {
			w.observer = o
		}
	}
}
