/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package deploy pushes non-library artifacts to a workspace: cluster init
// scripts to the file store and notebooks to the workspace tree.
//
// Neither workflow touches clusters. Rejected calls are logged and the
// remaining files are still attempted.
package deploy
