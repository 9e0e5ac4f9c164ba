/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package librarymatch decides whether an installed cluster library is a
// version of a target package.
//
// Both the package identity and the installed wheel path are reduced to
// their letters and digits, and a wheel matches when the reduced package is
// a substring of the reduced path. This tolerates version suffixes and
// separator differences:
//
//	librarymatch.Matches(workspace.WheelLibrary("dbfs:/FileStore/jars/analytics_core-0.9-py3-none-any.whl"), "analytics-core")
//	// true
//
// # Known Risk
//
// The substring rule over-matches packages that share an alphanumeric run.
// A target "core" matches an installed "analytics_core" wheel and would
// uninstall it. The rule is kept loose on purpose; choose package names that
// are not substrings of one another.
//
// Pypi entries never match a wheel target. Dependencies are compared by
// exact name with MatchesDependency instead.
package librarymatch
