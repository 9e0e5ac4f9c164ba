/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package clusterwait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/clusterdeploy/workspace"
	"github.com/chainguard-dev/clog"
	"k8s.io/utils/clock"
)

const (
	DefaultPollInterval   = 10 * time.Second
	DefaultSettleInterval = 5 * time.Second
)

// ErrTimeout is returned by AwaitState when a configured timeout elapses.
var ErrTimeout = errors.New("timed out waiting for cluster state")

// Waiter polls cluster state.
type Waiter struct {
	client         workspace.Clusters
	clock          clock.Clock
	pollInterval   time.Duration
	timeout        time.Duration
	settleInterval time.Duration
	observer       Observer
}

// New creates a Waiter for the given client.
func New(client workspace.Clusters, opts ...Option) *Waiter {
	w := &Waiter{
		client:         client,
		clock:          clock.RealClock{},
		pollInterval:   DefaultPollInterval,
		settleInterval: DefaultSettleInterval,
		observer:       nopObserver{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Clock returns the clock the Waiter sleeps on.
func (w *Waiter) Clock() clock.Clock { return w.clock }

// Probe fetches the current state of the cluster once.
func (w *Waiter) Probe(ctx context.Context, clusterID string) (workspace.ClusterState, error) {
	state, err := w.client.ClusterState(ctx, clusterID)
	if err != nil {
		return "", fmt.Errorf("fetching state of cluster %s: %w", clusterID, err)
	}
	w.observer.StatusPoll(ctx, string(state))
	return state, nil
}

// AwaitState polls until the cluster reports want. A state other than want
// is always followed by another poll.
func (w *Waiter) AwaitState(ctx context.Context, clusterID string, want workspace.ClusterState) error {
	log := clog.FromContext(ctx).With("want", string(want))
	start := w.clock.Now()

	for attempt := 1; ; attempt++ {
		state, err := w.Probe(ctx, clusterID)
		if err != nil {
			return err
		}
		if state == want {
			log.With("attempts", attempt).Debug("Cluster reached wanted state")
			return nil
		}

		log.With("state", string(state)).
			With("attempt", attempt).
			With("next_check", w.pollInterval.String()).
			Warn("Cluster not in wanted state, waiting")

		if err := w.sleep(ctx, w.pollInterval); err != nil {
			return err
		}
		if w.timeout > 0 && w.clock.Since(start) >= w.timeout {
			return fmt.Errorf("%w: cluster %s still %s after %s", ErrTimeout, clusterID, state, w.timeout)
		}
	}
}

// EnsureStarted starts the cluster if it is TERMINATED and then pauses for
// the settle interval. It reports whether a start was issued.
func (w *Waiter) EnsureStarted(ctx context.Context, clusterID string) (bool, error) {
	state, err := w.Probe(ctx, clusterID)
	if err != nil {
		return false, err
	}
	if state != workspace.StateTerminated {
		clog.DebugContextf(ctx, "Cluster %s is %s, no start needed", clusterID, state)
		return false, nil
	}

	clog.InfoContextf(ctx, "Cluster %s is terminated, starting it", clusterID)
	res, err := w.client.StartCluster(ctx, clusterID)
	if err != nil {
		return false, fmt.Errorf("starting cluster %s: %w", clusterID, err)
	}
	w.observer.ClusterAction(ctx, "start")
	if !res.OK() {
		clog.WarnContextf(ctx, "Start of cluster %s was not accepted: %s", clusterID, res)
	}
	return true, w.Settle(ctx)
}

// Settle pauses for the settle interval.
func (w *Waiter) Settle(ctx context.Context) error {
	return w.SettleFor(ctx, w.settleInterval)
}

// SettleFor pauses for d. It is not a polled wait.
func (w *Waiter) SettleFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	clog.FromContext(ctx).With("pause", d.String()).Debug("Settling")
	return w.sleep(ctx, d)
}

func (w *Waiter) sleep(ctx context.Context, d time.Duration) error {
	t := w.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
