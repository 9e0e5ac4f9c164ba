/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package packagereconciler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

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

// DefaultRemoteDir is where wheels are uploaded when no directory is given.
const DefaultRemoteDir = "dbfs:/FileStore/jars/"

// Request describes one artifact to reconcile across clusters.
type Request struct {
	// Artifact is the local path of the wheel.
	Artifact string
	// Package is the logical package identity matched against installed
	// wheels. When empty it is taken from the wheel's distribution name.
	Package string
	// Clusters are reconciled in this order.
	Clusters []string
	// RemoteDir is the upload directory, DefaultRemoteDir when empty.
	RemoteDir string
}

// Outcome reports what happened on one cluster.
type Outcome struct {
	ClusterID   string
	Artifact    string
	RemotePath  string
	Started     bool
	Uninstalled []workspace.Library
	Restarts    int
	Installed   bool
	Failure     string
}

// OK reports whether the artifact was installed without any rejected call.
func (o Outcome) OK() bool { return o.Installed && o.Failure == "" }

func (o *Outcome) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if o.Failure == "" {
		o.Failure = msg
		return
	}
	o.Failure += "; " + msg
}

// Reconciler installs wheel artifacts on clusters.
type Reconciler struct {
	client   workspace.ClusterAPI
	waiter   *clusterwait.Waiter
	waitOpts []clusterwait.Option
	metrics  *metrics.Recorder
	matches  librarymatch.Func
}

// New constructs a Reconciler for the given client.
func New(client workspace.ClusterAPI, opts ...Option) *Reconciler {
	r := &Reconciler{
		client:  client,
		matches: librarymatch.Matches,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.waiter == nil {
		r.waiter = clusterwait.New(client, append(r.waitOpts, clusterwait.WithObserver(r.metrics))...)
	}
	return r
}

// RemotePath returns where an artifact is uploaded: the directory, with a
// trailing slash added when missing, followed by the artifact's base name.
func RemotePath(remoteDir, artifact string) string {
	if remoteDir == "" {
		remoteDir = DefaultRemoteDir
	}
	if !strings.HasSuffix(remoteDir, "/") {
		remoteDir += "/"
	}
	return remoteDir + filepath.Base(artifact)
}

// DistributionName returns the distribution part of a wheel file name, e.g.
// "analytics_core" for "analytics_core-1.0-py3-none-any.whl".
func DistributionName(artifact string) string {
	base := filepath.Base(artifact)
	if i := strings.Index(base, "-"); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Reconcile runs the per-cluster sequence for every requested cluster. The
// returned outcomes cover every cluster that was attempted, even when an
// error aborts the run.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) ([]Outcome, error) {
	if req.Artifact == "" {
		return nil, errors.New("artifact path is required")
	}
	pkg := req.Package
	if pkg == "" {
		pkg = DistributionName(req.Artifact)
		clog.InfoContextf(ctx, "No package identity given, using %q from %s", pkg, req.Artifact)
	}
	remotePath := RemotePath(req.RemoteDir, req.Artifact)

	outcomes := make([]Outcome, 0, len(req.Clusters))
	for _, id := range req.Clusters {
		out, err := r.reconcileCluster(ctx, id, pkg, req.Artifact, remotePath)
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, fmt.Errorf("reconciling %s on cluster %s: %w", filepath.Base(req.Artifact), id, err)
		}
	}
	return outcomes, nil
}

// ReconcileAll reconciles each artifact in turn against the same clusters.
func (r *Reconciler) ReconcileAll(ctx context.Context, artifacts []string, pkg string, clusters []string, remoteDir string) ([]Outcome, error) {
	var all []Outcome
	for _, a := range artifacts {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		out, err := r.Reconcile(ctx, Request{Artifact: a, Package: pkg, Clusters: clusters, RemoteDir: remoteDir})
		all = append(all, out...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

func (r *Reconciler) reconcileCluster(ctx context.Context, id, pkg, artifact, remotePath string) (out Outcome, err error) {
	tr := otel.Tracer("chainguard.dev/clusterdeploy/packagereconciler",
		oteltrace.WithInstrumentationVersion("1.0.0"))
	ctx, span := tr.Start(ctx, "clusterdeploy.reconcile_package", oteltrace.WithAttributes(
		attribute.String("cluster.id", id),
		attribute.String("artifact", filepath.Base(artifact)),
		attribute.String("package", pkg),
	))
	defer func() {
		span.SetAttributes(
			attribute.Int("restarts", out.Restarts),
			attribute.Bool("installed", out.Installed),
		)
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case out.Failure != "":
			span.SetStatus(codes.Error, out.Failure)
		}
		span.End()
	}()
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("cluster", id))

	out = Outcome{ClusterID: id, Artifact: artifact, RemotePath: remotePath}

	// Probe.
	out.Started, err = r.waiter.EnsureStarted(ctx, id)
	if err != nil {
		return out, err
	}

	// Conflict scan.
	libs, err := r.client.ClusterLibraries(ctx, id)
	if err != nil {
		return out, fmt.Errorf("listing libraries: %w", err)
	}
	for _, lib := range librarymatch.Conflicts(libs, pkg, r.matches) {
		if lib.Whl == remotePath {
			clog.InfoContextf(ctx, "Library %s is the artifact itself, it will be overwritten", lib)
			continue
		}
		if err := r.removeConflict(ctx, id, lib, &out); err != nil {
			return out, err
		}
	}

	// Converge.
	if err := r.waiter.AwaitState(ctx, id, workspace.StateRunning); err != nil {
		return out, err
	}

	// Deploy.
	clog.InfoContextf(ctx, "Uploading %s to %s", artifact, remotePath)
	res, err := r.client.UploadFile(ctx, artifact, remotePath)
	if err != nil {
		return out, fmt.Errorf("uploading %s: %w", artifact, err)
	}
	if !res.OK() {
		clog.WarnContextf(ctx, "Upload of %s to %s failed: %s", artifact, remotePath, res)
		out.fail("upload: %s", res)
		r.metrics.Install(ctx, "whl", "failure")
		return out, nil
	}

	res, err = r.client.InstallWheel(ctx, id, remotePath)
	if err != nil {
		return out, fmt.Errorf("installing %s: %w", remotePath, err)
	}

	// Report.
	if !res.OK() {
		clog.WarnContextf(ctx, "Installation of %s on cluster %s failed: %s", remotePath, id, res)
		out.fail("install: %s", res)
		r.metrics.Install(ctx, "whl", "failure")
		return out, nil
	}
	clog.InfoContextf(ctx, "Package %s has been installed on cluster %s", remotePath, id)
	out.Installed = true
	r.metrics.Install(ctx, "whl", "success")
	return out, nil
}

// removeConflict uninstalls one conflicting entry, restarts the cluster and
// settles. Rejected calls are recorded and do not stop the scan.
func (r *Reconciler) removeConflict(ctx context.Context, id string, lib workspace.Library, out *Outcome) error {
	clog.InfoContextf(ctx, "Library %s is installed on cluster %s, uninstalling and restarting", lib, id)

	res, err := r.client.UninstallLibrary(ctx, id, lib)
	if err != nil {
		return fmt.Errorf("uninstalling %s: %w", lib, err)
	}
	r.metrics.ClusterAction(ctx, "uninstall")
	if res.OK() {
		out.Uninstalled = append(out.Uninstalled, lib)
	} else {
		clog.WarnContextf(ctx, "Uninstall of %s failed: %s", lib, res)
		out.fail("uninstall %s: %s", lib, res)
	}

	res, err = r.client.RestartCluster(ctx, id)
	if err != nil {
		return fmt.Errorf("restarting: %w", err)
	}
	r.metrics.ClusterAction(ctx, "restart")
	out.Restarts++
	if !res.OK() {
		clog.WarnContextf(ctx, "Restart of cluster %s failed: %s", id, res)
		out.fail("restart: %s", res)
	}

	return r.waiter.Settle(ctx)
}
