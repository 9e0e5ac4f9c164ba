/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"chainguard.dev/clusterdeploy/reconcilers/dependencyreconciler"
	"chainguard.dev/clusterdeploy/reconcilers/packagereconciler"
	"chainguard.dev/clusterdeploy/workspace"
)

const (
	resultOK           = "ok"
	resultNotInstalled = "not installed"
)

// Packages writes one row per package outcome and reports whether every
// outcome is OK.
func Packages(w io.Writer, outcomes []packagereconciler.Outcome) bool {
	table := newTable([]string{"Cluster", "Artifact", "Started", "Uninstalled", "Restarts", "Result"}, w)
	allOK := true
	for _, o := range outcomes {
		result := resultOK
		switch {
		case o.Failure != "":
			result = o.Failure
		case !o.Installed:
			result = resultNotInstalled
		}
		allOK = allOK && o.OK()
		_ = table.Append([]string{
			o.ClusterID,
			filepath.Base(o.Artifact),
			yesNo(o.Started),
			libraries(o.Uninstalled),
			strconv.Itoa(o.Restarts),
			result,
		})
	}
	_ = table.Render()
	return allOK
}

// Dependencies writes one row per dependency outcome and reports whether
// every outcome is OK.
func Dependencies(w io.Writer, outcomes []dependencyreconciler.Outcome) bool {
	table := newTable([]string{"Cluster", "Started", "Uninstalled", "Restarted", "Installed", "Result"}, w)
	allOK := true
	for _, o := range outcomes {
		result := resultOK
		if !o.OK() {
			reasons := slices.Clone(o.Failed)
			if o.Failure != "" {
				reasons = append(reasons, o.Failure)
			}
			result = "failed: " + strings.Join(reasons, ", ")
			allOK = false
		}
		_ = table.Append([]string{
			o.ClusterID,
			yesNo(o.Started),
			libraries(o.Uninstalled),
			yesNo(o.Restarted),
			fmt.Sprintf("%d", len(o.Installed)),
			result,
		})
	}
	_ = table.Render()
	return allOK
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func libraries(libs []workspace.Library) string {
	if len(libs) == 0 {
		return "-"
	}
	names := make([]string, 0, len(libs))
	for _, l := range libs {
		names = append(names, l.String())
	}
	return strings.Join(names, ", ")
}
