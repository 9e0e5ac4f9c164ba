/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package dependencyreconciler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"chainguard.dev/clusterdeploy/metrics"
	"chainguard.dev/clusterdeploy/reconcilers/clusterwait"
	"chainguard.dev/clusterdeploy/reconcilers/librarymatch"
	"chainguard.dev/clusterdeploy/workspace"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Outcome reports what happened on one cluster.
type Outcome struct {
	ClusterID   string
	Started     bool
	Uninstalled []workspace.Library
	Restarted   bool
	Installed   []string
	Failed      []string
	Failure     string
}

// OK reports whether every dependency was installed and nothing was
// rejected.
func (o Outcome) OK() bool { return len(o.Failed) == 0 && o.Failure == "" }

func (o *Outcome) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if o.Failure == "" {
		o.Failure = msg
		return
	}
	o.Failure += "; " + msg
}

// Reconciler installs pypi dependencies on clusters.
type Reconciler struct {
	client        workspace.ClusterAPI
	waiter        *clusterwait.Waiter
	waitOpts      []clusterwait.Option
	restartSettle time.Duration
	metrics       *metrics.Recorder
}

// New constructs a Reconciler for the given client.
func New(client workspace.ClusterAPI, opts ...Option) *Reconciler {
	r := &Reconciler{
		client:        client,
		restartSettle: clusterwait.DefaultSettleInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.waiter == nil {
		r.waiter = clusterwait.New(client, append(r.waitOpts, clusterwait.WithObserver(r.metrics))...)
	}
	return r
}

// Reconcile installs deps on every cluster, in the given orders. Failed
// reads abort the run and return the outcomes gathered so far.
func (r *Reconciler) Reconcile(ctx context.Context, deps, clusters []string) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(clusters))
	for _, id := range clusters {
		out, err := r.reconcileCluster(ctx, id, deps)
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, fmt.Errorf("installing dependencies on cluster %s: %w", id, err)
		}
	}
	return outcomes, nil
}

func (r *Reconciler) reconcileCluster(ctx context.Context, id string, deps []string) (out Outcome, err error) {
	tr := otel.Tracer("chainguard.dev/clusterdeploy/dependencyreconciler",
		oteltrace.WithInstrumentationVersion("1.0.0"))
	ctx, span := tr.Start(ctx, "clusterdeploy.reconcile_dependencies", oteltrace.WithAttributes(
		attribute.String("cluster.id", id),
		attribute.Int("dependencies", len(deps)),
	))
	defer func() {
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case len(out.Failed) > 0:
			span.SetStatus(codes.Error, fmt.Sprintf("%d dependencies failed", len(out.Failed)))
		case out.Failure != "":
			span.SetStatus(codes.Error, out.Failure)
		}
		span.End()
	}()
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("cluster", id))

	out = Outcome{ClusterID: id}

	out.Started, err = r.waiter.EnsureStarted(ctx, id)
	if err != nil {
		return out, err
	}

	libs, err := r.client.ClusterLibraries(ctx, id)
	if err != nil {
		return out, fmt.Errorf("listing libraries: %w", err)
	}

	restart := false
	for _, lib := range libs {
		if !slices.ContainsFunc(deps, func(dep string) bool { return librarymatch.MatchesDependency(lib, dep) }) {
			continue
		}
		clog.InfoContextf(ctx, "Dependency %s is already installed on cluster %s, uninstalling", lib, id)
		res, err := r.client.UninstallLibrary(ctx, id, lib)
		if err != nil {
			return out, fmt.Errorf("uninstalling %s: %w", lib, err)
		}
		r.metrics.ClusterAction(ctx, "uninstall")
		restart = true
		if !res.OK() {
			clog.WarnContextf(ctx, "Uninstall of %s failed: %s", lib, res)
			out.fail("uninstall %s: %s", lib, res)
			continue
		}
		out.Uninstalled = append(out.Uninstalled, lib)
	}

	if restart {
		clog.InfoContextf(ctx, "Restarting cluster %s once for all uninstalled dependencies", id)
		res, err := r.client.RestartCluster(ctx, id)
		if err != nil {
			return out, fmt.Errorf("restarting: %w", err)
		}
		r.metrics.ClusterAction(ctx, "restart")
		out.Restarted = true
		if !res.OK() {
			clog.WarnContextf(ctx, "Restart of cluster %s failed: %s", id, res)
			out.fail("restart: %s", res)
		}
		if err := r.waiter.SettleFor(ctx, r.restartSettle); err != nil {
			return out, err
		}
	}

	if err := r.waiter.AwaitState(ctx, id, workspace.StateRunning); err != nil {
		return out, err
	}

	for _, dep := range deps {
		res, err := r.client.InstallPypi(ctx, id, dep)
		if err != nil {
			return out, fmt.Errorf("installing %s: %w", dep, err)
		}
		if !res.OK() {
			clog.WarnContextf(ctx, "Installation of %s on cluster %s failed: %s", dep, id, res)
			out.Failed = append(out.Failed, dep)
			r.metrics.Install(ctx, "pypi", "failure")
			continue
		}
		clog.InfoContextf(ctx, "Dependency %s has been installed on cluster %s", dep, id)
		out.Installed = append(out.Installed, dep)
		r.metrics.Install(ctx, "pypi", "success")
	}
	return out, nil
}
