/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package packagereconciler makes a wheel artifact the installed version of
// its package on a list of clusters.
//
// Each cluster is reconciled on its own, strictly in the order given:
//
//  1. Probe: a TERMINATED cluster is started and given a settle pause.
//  2. Conflict scan: every installed wheel matching the package identity is
//     uninstalled, followed by a restart and a settle pause. Each match gets
//     its own cycle.
//  3. Converge: wait until the cluster reports RUNNING.
//  4. Deploy: upload the artifact to the remote directory and install it.
//  5. Report: the outcome is logged and returned.
//
// # Basic Usage
//
//	r := packagereconciler.New(client,
//	    packagereconciler.WithMetrics(recorder),
//	)
//	outcomes, err := r.Reconcile(ctx, packagereconciler.Request{
//	    Artifact:  "dist/analytics_core-1.0-py3-none-any.whl",
//	    Package:   "analytics_core",
//	    Clusters:  []string{"0101-abc", "0202-def"},
//	    RemoteDir: "dbfs:/FileStore/jars/",
//	})
//
// # Failure Semantics
//
// A rejected install, upload, uninstall or restart is logged as a warning,
// recorded in Outcome.Failure, and the run continues with the next cluster.
// Failed reads (cluster state, library listing) and cancellation abort the
// run; the outcomes gathered so far are returned with the error.
//
// An installed entry at exactly the destination path is the artifact
// itself. It is overwritten and reinstalled rather than treated as a
// conflict, so repeating a run does not restart the cluster again. A
// rebuilt wheel that keeps its file name is therefore not picked up until
// the cluster restarts for another reason.
//
// Matching uses librarymatch and inherits its substring over-match risk.
package packagereconciler
