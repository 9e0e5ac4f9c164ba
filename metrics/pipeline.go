/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Pipeline exports OpenTelemetry counters through a private Prometheus
// registry.
type Pipeline struct {
	registry    *prometheus.Registry
	provider    *sdkmetric.MeterProvider
	recorder    *Recorder
	lastSuccess prometheus.Gauge
	started     time.Time
	duration    prometheus.Gauge
	now         func() time.Time
}

// NewPipeline creates a registry, an exporter writing into it and a
// Recorder backed by the exporter.
func NewPipeline() (*Pipeline, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	factory := promauto.With(reg)
	p := &Pipeline{
		registry: reg,
		provider: provider,
		recorder: NewRecorder(provider),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clusterdeploy_last_success_timestamp_seconds",
			Help: "Unix time of the last run that completed without error",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clusterdeploy_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		now: time.Now,
	}
	p.started = p.now()
	return p, nil
}

// Recorder returns the Recorder backed by this pipeline.
func (p *Pipeline) Recorder() *Recorder { return p.recorder }

// Registry returns the registry holding every exported series.
func (p *Pipeline) Registry() *prometheus.Registry { return p.registry }

// MarkSuccess stamps the run as successful and records its duration.
func (p *Pipeline) MarkSuccess() {
	now := p.now()
	p.lastSuccess.Set(float64(now.Unix()))
	p.duration.Set(now.Sub(p.started).Seconds())
}

// Push sends every series to the pushgateway at url under job, replacing
// what the job pushed before. An empty url is a no-op.
func (p *Pipeline) Push(ctx context.Context, url, job string, grouping ...string) error {
	if url == "" {
		clog.DebugContextf(ctx, "No pushgateway configured, skipping metrics push")
		return nil
	}
	if len(grouping)%2 != 0 {
		return fmt.Errorf("grouping must be key/value pairs, got %d values", len(grouping))
	}
	pusher := push.New(url, job).Gatherer(p.registry)
	for i := 0; i < len(grouping); i += 2 {
		pusher = pusher.Grouping(grouping[i], grouping[i+1])
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	clog.InfoContextf(ctx, "Pushed metrics to %s for job %s", url, job)
	return nil
}

// Shutdown flushes and stops the meter provider.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
