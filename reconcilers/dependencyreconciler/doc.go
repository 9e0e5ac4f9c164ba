/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package dependencyreconciler installs a flat list of pypi dependencies on
// clusters.
//
// Conflicts are pypi entries whose package equals a requested dependency
// exactly. All of them are uninstalled first, then the cluster is restarted
// once for the whole batch and given a settle pause. Every requested
// dependency is installed afterwards, in order, whether or not it was
// present before.
//
//	r := dependencyreconciler.New(client)
//	outcomes, err := r.Reconcile(ctx, []string{"requests==2.31.0", "numpy==1.26.4"}, clusterIDs)
//
// Rejected installs are listed in Outcome.Failed. Rejected uninstalls and
// restarts are recorded in Outcome.Failure. Either fails Outcome.OK, and the
// remaining dependencies and clusters are still processed.
package dependencyreconciler
