/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package artifacts

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ryanuber/go-glob"
)

// AnyDir matches every directory name in FindNested.
const AnyDir = "**"

// FindFiles returns the regular files directly under dir whose name matches
// pattern, sorted. Only "*" is special in pattern.
func FindFiles(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || hidden(e.Name()) {
			continue
		}
		if glob.Glob(pattern, e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// FindNested returns files named name.ext inside directories named
// nestedDir below dir, sorted. "None" and AnyDir accept any directory and
// then match files at every level. With depth 0 the nested directory must
// be a direct child of dir; any positive depth allows it anywhere below.
func FindNested(dir string, depth int, nestedDir, ext, name string) ([]string, error) {
	if depth < 0 {
		return nil, fmt.Errorf("depth must not be negative, got %d", depth)
	}
	if nestedDir == "None" {
		nestedDir = AnyDir
	}
	filePattern := name + "." + ext

	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !glob.Glob(filePattern, d.Name()) {
			return nil
		}
		if nestedDir == AnyDir {
			out = append(out, p)
			return nil
		}
		parent, err := filepath.Rel(dir, filepath.Dir(p))
		if err != nil || parent == "." {
			return nil
		}
		segments := strings.Split(filepath.ToSlash(parent), "/")
		if !glob.Glob(nestedDir, segments[len(segments)-1]) {
			return nil
		}
		if depth == 0 && len(segments) != 1 {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	slices.Sort(out)
	return out, nil
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }

// VariableName names the variable for FindFiles results: prefix+suffix, or
// the pattern's extension followed by suffix when prefix is empty.
func VariableName(pattern, prefix, suffix string) string {
	if prefix != "" {
		return prefix + suffix
	}
	if i := strings.LastIndex(pattern, "."); i >= 0 {
		return pattern[i+1:] + suffix
	}
	return pattern + suffix
}

// NestedVariableName names the variable for FindNested results: the file
// name when one is given, otherwise the nested directory.
func NestedVariableName(nestedDir, name, suffix string) string {
	if name != "*" && name != "" {
		return name + suffix
	}
	return nestedDir + suffix
}

// SetVariable publishes values as a comma separated pipeline variable.
func SetVariable(w io.Writer, name string, values []string) error {
	_, err := fmt.Fprintf(w, "##vso[task.setvariable variable=%s]%s\n", name, strings.Join(values, ","))
	return err
}

// SplitList splits a comma separated argument, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
