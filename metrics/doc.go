/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics counts reconciliation actions and pushes them to a
// Prometheus pushgateway at the end of a pipeline run.
//
// Recorder holds OpenTelemetry counters for cluster actions, library
// installs and status polls. Pipeline backs a Recorder with an SDK meter
// provider whose Prometheus exporter writes into a private registry, so
// a short-lived CI process can push everything it counted in one call:
//
//	p, err := metrics.NewPipeline()
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown(ctx)
//	rec := p.Recorder()
//	// ... reconcile with packagereconciler.WithMetrics(rec) ...
//	p.MarkSuccess()
//	if err := p.Push(ctx, env.PushgatewayURL, "clusterdeploy"); err != nil {
//	    clog.WarnContextf(ctx, "pushing metrics: %v", err)
//	}
package metrics
