/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders reconciliation outcomes as markdown tables, one
// row per cluster, suitable for a pipeline log or a job summary.
//
//	ok := report.Packages(os.Stdout, outcomes)
//	if !ok {
//	    // at least one cluster did not converge
//	}
package report
