/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package jobs promotes scheduled job definitions between workspaces.
//
// Promotion is split in two steps that run in different pipeline stages:
//
//   - Export reads the selected jobs from the source workspace, shifts their
//     schedule, points their notebook tasks at the promoted notebook tree and
//     renames them. WriteExport stores the result as <env>_jobs.json.
//   - Apply reads that file in the target workspace, binds every task to the
//     target cluster, creates or resets each job by name and grants a group
//     CAN_MANAGE.
//
// Settings are handled as generic documents, so fields this package does
// not touch are carried over unchanged.
package jobs
