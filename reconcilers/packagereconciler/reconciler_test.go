/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package packagereconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"chainguard.dev/clusterdeploy/reconcilers/clusterwait/clusterwaittest"
	"chainguard.dev/clusterdeploy/workspace"
	"chainguard.dev/clusterdeploy/workspace/workspacetest"
	"github.com/chainguard-dev/clog/slogtest"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	artifact = "dist/analytics_core-1.0-py3-none-any.whl"
	oldWheel = "dbfs:/FileStore/jars/analytics_core-0.9-py3-none-any.whl"
	newWheel = "dbfs:/FileStore/jars/analytics_core-1.0-py3-none-any.whl"
)

func request(clusters ...string) Request {
	return Request{
		Artifact:  artifact,
		Package:   "analytics_core",
		Clusters:  clusters,
		RemoteDir: "dbfs:/FileStore/jars/",
	}
}

func call(op workspacetest.Op, cluster, arg string) workspacetest.Call {
	return workspacetest.Call{Op: op, ClusterID: cluster, Arg: arg}
}

// TestConflictingVersionIsReplaced verifies the uninstall, restart, settle
// and install sequence for an older installed version.
func TestConflictingVersionIsReplaced(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("c-1", workspace.StateRunning,
		workspace.WheelLibrary(oldWheel),
		workspace.PypiPackage("requests"),
	)
	clk := clusterwaittest.NewClock()

	outcomes, err := New(f, WithClock(clk)).Reconcile(ctx, request("c-1"))
	if err != nil {
		t.Fatalf("Reconcile: got = %v, wanted = nil", err)
	}

	want := []workspacetest.Call{
		call(workspacetest.OpState, "c-1", ""),
		call(workspacetest.OpList, "c-1", ""),
		call(workspacetest.OpUninstall, "c-1", "whl:"+oldWheel),
		call(workspacetest.OpRestart, "c-1", ""),
		call(workspacetest.OpState, "c-1", ""),
		call(workspacetest.OpUpload, "", newWheel),
		call(workspacetest.OpInstallWheel, "c-1", "whl:"+newWheel),
	}
	if diff := cmp.Diff(want, f.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}

	wantOutcomes := []Outcome{{
		ClusterID:   "c-1",
		Artifact:    artifact,
		RemotePath:  newWheel,
		Uninstalled: []workspace.Library{workspace.WheelLibrary(oldWheel)},
		Restarts:    1,
		Installed:   true,
	}}
	if diff := cmp.Diff(wantOutcomes, outcomes); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{5 * time.Second}, clk.Sleeps()); diff != "" {
		t.Errorf("sleeps (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(
		[]workspace.Library{workspace.PypiPackage("requests"), workspace.WheelLibrary(newWheel)},
		f.Libraries("c-1"),
	); diff != "" {
		t.Errorf("libraries (-want +got):\n%s", diff)
	}
}

// TestEveryConflictGetsItsOwnRestart verifies there is no deduplication
// across matches.
func TestEveryConflictGetsItsOwnRestart(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("c-1", workspace.StateRunning,
		workspace.WheelLibrary("dbfs:/FileStore/jars/analytics_core-0.8-py3-none-any.whl"),
		workspace.WheelLibrary("dbfs:/old/analytics-core-0.9.whl"),
		workspace.WheelLibrary("dbfs:/FileStore/jars/reporting-1.0-py3-none-any.whl"),
	)
	clk := clusterwaittest.NewClock()

	outcomes, err := New(f, WithClock(clk), WithSettleInterval(time.Second)).Reconcile(ctx, request("c-1"))
	if err != nil {
		t.Fatalf("Reconcile: got = %v, wanted = nil", err)
	}
	if got := f.Count(workspacetest.OpUninstall); got != 2 {
		t.Errorf("uninstalls: got = %d, wanted = 2", got)
	}
	if got := f.Count(workspacetest.OpRestart); got != 2 {
		t.Errorf("restarts: got = %d, wanted = 2", got)
	}
	if got := outcomes[0].Restarts; got != 2 {
		t.Errorf("outcome restarts: got = %d, wanted = 2", got)
	}
	if diff := cmp.Diff([]time.Duration{time.Second, time.Second}, clk.Sleeps()); diff != "" {
		t.Errorf("sleeps (-want +got):\n%s", diff)
	}
}

// TestIdempotent verifies that a second run against unchanged remote state
// finds no conflict and installs exactly once.
func TestIdempotent(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("c-1", workspace.StateRunning, workspace.WheelLibrary(oldWheel))
	r := New(f, WithClock(clusterwaittest.NewClock()))

	for run := 1; run <= 2; run++ {
		f.Reset()
		outcomes, err := r.Reconcile(ctx, request("c-1"))
		if err != nil {
			t.Fatalf("run %d: Reconcile: got = %v, wanted = nil", run, err)
		}
		if got := f.Count(workspacetest.OpInstallWheel); got != 1 {
			t.Errorf("run %d: installs: got = %d, wanted = 1", run, got)
		}
		wantUninstalls := 0
		if run == 1 {
			wantUninstalls = 1
		}
		if got := f.Count(workspacetest.OpUninstall); got != wantUninstalls {
			t.Errorf("run %d: uninstalls: got = %d, wanted = %d", run, got, wantUninstalls)
		}
		if got := len(outcomes[0].Uninstalled); got != wantUninstalls {
			t.Errorf("run %d: uninstalled: got = %d, wanted = %d", run, got, wantUninstalls)
		}
	}
	if got := f.Count(workspacetest.OpRestart); got != 0 {
		t.Errorf("second run restarts: got = %d, wanted = 0", got)
	}
}

// TestTerminatedClusterIsStartedBeforeUpload verifies that a terminated
// cluster is started and observed RUNNING before anything is uploaded.
func TestTerminatedClusterIsStartedBeforeUpload(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	c := f.AddCluster("c-1", workspace.StateTerminated)
	c.BootPolls = 2
	clk := clusterwaittest.NewClock()

	outcomes, err := New(f, WithClock(clk)).Reconcile(ctx, request("c-1"))
	if err != nil {
		t.Fatalf("Reconcile: got = %v, wanted = nil", err)
	}

	want := []workspacetest.Call{
		call(workspacetest.OpState, "c-1", ""),
		call(workspacetest.OpStart, "c-1", ""),
		call(workspacetest.OpList, "c-1", ""),
		call(workspacetest.OpState, "c-1", ""), // PENDING
		call(workspacetest.OpState, "c-1", ""), // PENDING
		call(workspacetest.OpState, "c-1", ""), // RUNNING
		call(workspacetest.OpUpload, "", newWheel),
		call(workspacetest.OpInstallWheel, "c-1", "whl:"+newWheel),
	}
	if diff := cmp.Diff(want, f.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if !outcomes[0].Started {
		t.Error("started: got = false, wanted = true")
	}
	if got, want := clk.Elapsed(), 5*time.Second+2*10*time.Second; got != want {
		t.Errorf("elapsed: got = %v, wanted = %v", got, want)
	}
	if got := f.State("c-1"); got != workspace.StateRunning {
		t.Errorf("state: got = %s, wanted = %s", got, workspace.StateRunning)
	}
}

// TestPartialFailure verifies that a failed install on one cluster does not
// prevent the next cluster from being reconciled.
func TestPartialFailure(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("a", workspace.StateRunning)
	f.AddCluster("b", workspace.StateRunning)
	f.FailInstall("a", `{"error_code":"INVALID_STATE","message":"cluster a is busy"}`)

	outcomes, err := New(f, WithClock(clusterwaittest.NewClock())).Reconcile(ctx, request("a", "b"))
	if err != nil {
		t.Fatalf("Reconcile: got = %v, wanted = nil", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes: got = %d, wanted = 2", len(outcomes))
	}
	if outcomes[0].OK() || outcomes[0].Failure == "" {
		t.Errorf("cluster a: got = %+v, wanted failure", outcomes[0])
	}
	if !outcomes[1].OK() {
		t.Errorf("cluster b: got = %+v, wanted success", outcomes[1])
	}
	for _, id := range []string{"a", "b"} {
		installs := 0
		for _, c := range f.CallsFor(id) {
			if c.Op == workspacetest.OpInstallWheel {
				installs++
			}
		}
		if installs != 1 {
			t.Errorf("cluster %s installs: got = %d, wanted = 1", id, installs)
		}
	}
}

func TestRejectedUploadSkipsInstall(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("a", workspace.StateRunning)
	f.FailUpload("a", `{"error_code":"MAX_BLOCK_SIZE_EXCEEDED"}`)

	outcomes, err := New(f, WithClock(clusterwaittest.NewClock())).Reconcile(ctx, request("a"))
	if err != nil {
		t.Fatalf("Reconcile: got = %v, wanted = nil", err)
	}
	if got := f.Count(workspacetest.OpInstallWheel); got != 0 {
		t.Errorf("installs: got = %d, wanted = 0", got)
	}
	if outcomes[0].Failure == "" {
		t.Error("failure: got = empty, wanted = upload failure")
	}
}

func TestRejectedUninstallContinues(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("a", workspace.StateRunning, workspace.WheelLibrary(oldWheel))
	f.FailUninstall("a", `{"error_code":"PERMISSION_DENIED"}`)

	outcomes, err := New(f, WithClock(clusterwaittest.NewClock())).Reconcile(ctx, request("a"))
	if err != nil {
		t.Fatalf("Reconcile: got = %v, wanted = nil", err)
	}
	if got := f.Count(workspacetest.OpRestart); got != 1 {
		t.Errorf("restarts: got = %d, wanted = 1", got)
	}
	if !outcomes[0].Installed {
		t.Error("installed: got = false, wanted = true")
	}
	if outcomes[0].OK() {
		t.Error("OK: got = true, wanted = false")
	}
}

// TestReadFailureAborts verifies that a failed library listing stops the
// run and still returns the outcomes gathered so far.
func TestReadFailureAborts(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("a", workspace.StateRunning)
	f.AddCluster("b", workspace.StateRunning)
	f.AddCluster("c", workspace.StateRunning)
	f.FailList("b", &workspace.TransportError{Op: "list libraries on b", StatusCode: 503})

	outcomes, err := New(f, WithClock(clusterwaittest.NewClock())).Reconcile(ctx, request("a", "b", "c"))
	var te *workspace.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error: got = %v, wanted = *TransportError", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes: got = %d, wanted = 2", len(outcomes))
	}
	if !outcomes[0].OK() {
		t.Errorf("cluster a: got = %+v, wanted success", outcomes[0])
	}
	if got := len(f.CallsFor("c")); got != 0 {
		t.Errorf("cluster c calls: got = %d, wanted = 0", got)
	}
}

func TestReconcileAll(t *testing.T) {
	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("a", workspace.StateRunning)

	outcomes, err := New(f, WithClock(clusterwaittest.NewClock())).ReconcileAll(ctx,
		[]string{"dist/one-1.0-py3-none-any.whl", " ", "dist/two-2.0-py3-none-any.whl"},
		"", []string{"a"}, "dbfs:/jars")
	if err != nil {
		t.Fatalf("ReconcileAll: got = %v, wanted = nil", err)
	}
	var got []string
	for _, o := range outcomes {
		got = append(got, o.RemotePath)
	}
	want := []string{"dbfs:/jars/one-1.0-py3-none-any.whl", "dbfs:/jars/two-2.0-py3-none-any.whl"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("remote paths (-want +got):\n%s", diff)
	}
}

func TestRemotePath(t *testing.T) {
	tests := []struct {
		dir, artifact, want string
	}{
		{"dbfs:/FileStore/jars/", "dist/a-1.whl", "dbfs:/FileStore/jars/a-1.whl"},
		{"dbfs:/FileStore/jars", "dist/a-1.whl", "dbfs:/FileStore/jars/a-1.whl"},
		{"", "a-1.whl", DefaultRemoteDir + "a-1.whl"},
	}
	for _, tt := range tests {
		if got := RemotePath(tt.dir, tt.artifact); got != tt.want {
			t.Errorf("RemotePath(%q, %q): got = %q, wanted = %q", tt.dir, tt.artifact, got, tt.want)
		}
	}
}

func TestDistributionName(t *testing.T) {
	tests := map[string]string{
		"dist/analytics_core-1.0-py3-none-any.whl": "analytics_core",
		"plain.whl": "plain",
	}
	for in, want := range tests {
		if got := DistributionName(in); got != want {
			t.Errorf("DistributionName(%q): got = %q, wanted = %q", in, got, want)
		}
	}
}

func TestReconcileRequiresArtifact(t *testing.T) {
	if _, err := New(workspacetest.New()).Reconcile(context.Background(), Request{}); err == nil {
		t.Error("Reconcile error: got = nil, wanted = non-nil")
	}
}

func TestSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx := slogtest.Context(t)
	f := workspacetest.New()
	f.AddCluster("a", workspace.StateRunning)
	f.AddCluster("b", workspace.StateRunning)
	f.FailInstall("b", `{"error_code":"X"}`)

	if _, err := New(f, WithClock(clusterwaittest.NewClock())).Reconcile(ctx, request("a", "b")); err != nil {
		t.Fatalf("Reconcile: got = %v, wanted = nil", err)
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans: got = %d, wanted = 2", len(spans))
	}
	for i, wantCode := range []codes.Code{codes.Unset, codes.Error} {
		if got := spans[i].Name(); got != "clusterdeploy.reconcile_package" {
			t.Errorf("span %d name: got = %s", i, got)
		}
		if got := spans[i].Status().Code; got != wantCode {
			t.Errorf("span %d status: got = %v, wanted = %v", i, got, wantCode)
		}
	}
}
