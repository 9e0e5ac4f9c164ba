/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package packagereconciler

import (
	"time"

	"chainguard.dev/clusterdeploy/metrics"
	"chainguard.dev/clusterdeploy/reconcilers/clusterwait"
	"chainguard.dev/clusterdeploy/reconcilers/librarymatch"
	"k8s.io/utils/clock"
)

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithWaiter supplies a preconfigured Waiter. Clock, interval and timeout
// options are ignored when a Waiter is supplied.
func WithWaiter(w *clusterwait.Waiter) Option {
	return func(r *Reconciler) {
		r.waiter = w
	}
}

// WithClock sets the clock used for settle pauses and polling.
func WithClock(c clock.Clock) Option {
	return func(r *Reconciler) {
		r.waitOpts = append(r.waitOpts, clusterwait.WithClock(c))
	}
}

// WithSettleInterval sets the pause after a start or restart (default 5s).
func WithSettleInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		r.waitOpts = append(r.waitOpts, clusterwait.WithSettleInterval(d))
	}
}

// WithPollInterval sets the delay between status polls (default 10s).
func WithPollInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		r.waitOpts = append(r.waitOpts, clusterwait.WithPollInterval(d))
	}
}

// WithTimeout bounds each wait for RUNNING. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.waitOpts = append(r.waitOpts, clusterwait.WithTimeout(d))
	}
}

// WithMetrics records actions, polls and installs on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithMatcher replaces the conflict policy (default librarymatch.Matches).
func WithMatcher(f librarymatch.Func) Option {
	return func(r *Reconciler) {
		r.matches = f
	}
}
