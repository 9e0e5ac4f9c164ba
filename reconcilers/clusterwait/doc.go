/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package clusterwait blocks until a cluster reaches a wanted lifecycle state.
//
// A Waiter polls the cluster status on a fixed interval. Every poll that
// does not observe the wanted state logs a warning with the current state,
// the attempt number and the delay before the next check, so a cluster
// that never converges is visible in the pipeline output.
//
// # Bounds
//
// There is no attempt limit. A wait ends when the state is observed, when a
// status fetch fails, when the context is cancelled, or when the optional
// timeout elapses:
//
//	w := clusterwait.New(client,
//	    clusterwait.WithPollInterval(10*time.Second),
//	    clusterwait.WithTimeout(30*time.Minute),
//	)
//	if err := w.AwaitState(ctx, clusterID, workspace.StateRunning); errors.Is(err, clusterwait.ErrTimeout) {
//	    // ...
//	}
//
// # Recovery
//
// TERMINATED is the only state that triggers an action. EnsureStarted
// issues a start for a terminated cluster and pauses for the settle
// interval. Every other state is left alone and merely awaited.
//
// All sleeps go through an injectable k8s.io/utils/clock.Clock.
package clusterwait
