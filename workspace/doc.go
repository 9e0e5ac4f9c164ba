/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workspace is a typed client for the analytics workspace REST API.
//
// The remote surface is split into small interfaces (Clusters, Libraries,
// Files, Notebooks, Jobs) so workflows depend only on what they call. Client
// implements all of them over HTTP; workspacetest.Fake implements them in
// memory.
//
// # Reads and Mutations
//
// Read operations (cluster status, library listing, object status, jobs)
// return a *TransportError for any non-success response:
//
//	state, err := c.ClusterState(ctx, "0123-456789-abcde")
//	if errors.Is(err, workspace.ErrNotFound) {
//	    // ...
//	}
//
// Mutations (start, restart, install, uninstall, upload, import) report the
// remote answer as a *Result and only return an error when no answer was
// obtained. Callers log failed payloads and move on:
//
//	res, err := c.InstallWheel(ctx, clusterID, "dbfs:/FileStore/jars/pkg-1.0-py3-none-any.whl")
//	if err != nil {
//	    return err
//	}
//	if !res.OK() {
//	    clog.WarnContextf(ctx, "install failed: %s", res)
//	}
//
// The client never retries.
package workspace
