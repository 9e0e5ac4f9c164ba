/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope of every counter.
const MeterName = "chainguard.dev/clusterdeploy"

// Recorder counts reconciliation activity. A nil Recorder discards
// everything.
type Recorder struct {
	actions  metric.Int64Counter
	installs metric.Int64Counter
	polls    metric.Int64Counter
}

// NewRecorder creates counters on the given provider, or on the global one
// when mp is nil. A counter that cannot be created degrades to a no-op.
func NewRecorder(mp metric.MeterProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(MeterName, metric.WithInstrumentationVersion("1.0.0"))

	actions, err := meter.Int64Counter("clusterdeploy.cluster.actions",
		metric.WithDescription("Disruptive cluster actions issued (start, restart, uninstall)"),
		metric.WithUnit("{action}"))
	if err != nil {
		slog.Warn("Failed to create cluster action counter, metrics will be disabled", "error", err)
		actions = noop.Int64Counter{}
	}

	installs, err := meter.Int64Counter("clusterdeploy.installs",
		metric.WithDescription("Library installs by kind and outcome"),
		metric.WithUnit("{install}"))
	if err != nil {
		slog.Warn("Failed to create install counter, metrics will be disabled", "error", err)
		installs = noop.Int64Counter{}
	}

	polls, err := meter.Int64Counter("clusterdeploy.status.polls",
		metric.WithDescription("Cluster status polls by observed state"),
		metric.WithUnit("{poll}"))
	if err != nil {
		slog.Warn("Failed to create status poll counter, metrics will be disabled", "error", err)
		polls = noop.Int64Counter{}
	}

	return &Recorder{actions: actions, installs: installs, polls: polls}
}

// ClusterAction counts a start, restart or uninstall.
func (r *Recorder) ClusterAction(ctx context.Context, action string) {
	if r == nil {
		return
	}
	r.actions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// StatusPoll counts a status fetch and the state it observed.
func (r *Recorder) StatusPoll(ctx context.Context, state string) {
	if r == nil {
		return
	}
	r.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// Install counts an install attempt. kind is "whl" or "pypi" and outcome is
// "success" or "failure".
func (r *Recorder) Install(ctx context.Context, kind, outcome string) {
	if r == nil {
		return
	}
	r.installs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}
