/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package librarymatch

import (
	"strings"
	"unicode"

	"chainguard.dev/clusterdeploy/workspace"
	"github.com/ryanuber/go-glob"
)

// Normalize drops every rune that is not a letter or a digit. Case is kept.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Matches reports whether lib is a wheel whose normalized path contains the
// normalized package identity. An identity that normalizes to nothing
// matches nothing.
func Matches(lib workspace.Library, pkg string) bool {
	if lib.Kind() != "whl" {
		return false
	}
	want := Normalize(pkg)
	if want == "" {
		return false
	}
	return glob.Glob("*"+want+"*", Normalize(lib.Whl))
}

// MatchesDependency reports whether lib is a pypi entry for exactly name.
func MatchesDependency(lib workspace.Library, name string) bool {
	return lib.Kind() == "pypi" && lib.Pypi.Package == name
}

// Conflicts returns the entries of libs that match pkg under match, in input
// order. A nil match means Matches.
func Conflicts(libs []workspace.Library, pkg string, match Func) []workspace.Library {
	if match == nil {
		match = Matches
	}
	var out []workspace.Library
	for _, l := range libs {
		if match(l, pkg) {
			out = append(out, l)
		}
	}
	return out
}

// Func is the matching policy used by the package reconciler.
type Func func(lib workspace.Library, pkg string) bool
