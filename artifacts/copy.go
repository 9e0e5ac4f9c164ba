/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
)

// CopyFiles copies each file into artifactDir under its base name and
// returns the destination paths.
func CopyFiles(ctx context.Context, artifactDir string, files []string) ([]string, error) {
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", artifactDir, err)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		dst := filepath.Join(artifactDir, filepath.Base(f))
		if err := copyFile(f, dst); err != nil {
			return out, err
		}
		clog.InfoContextf(ctx, "Copied %s to %s", f, dst)
		out = append(out, dst)
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	st, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, st.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// RequirementType returns the type of a requirement file, the second to
// last dot separated part of its base name: "common" for
// "requirements/common.txt".
func RequirementType(path string) string {
	parts := strings.Split(filepath.Base(path), ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// FilterRequirements keeps the files of the given type, in order.
func FilterRequirements(files []string, typ string) []string {
	var out []string
	for _, f := range files {
		if RequirementType(f) == typ {
			out = append(out, f)
		}
	}
	return out
}

// CopyRequirements concatenates the requirement files of the given type
// into artifactDir/requirements.txt and returns its path.
func CopyRequirements(ctx context.Context, artifactDir string, files []string, typ string) (string, error) {
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", artifactDir, err)
	}
	var b strings.Builder
	for _, f := range FilterRequirements(files, typ) {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", f, err)
		}
		b.Write(data)
		clog.InfoContextf(ctx, "Merged %s requirements from %s", typ, f)
	}
	dst := filepath.Join(artifactDir, "requirements.txt")
	if err := os.WriteFile(dst, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", dst, err)
	}
	return dst, nil
}

// NotebookExtensions are the notebook sources that are deployed.
var NotebookExtensions = []string{".py", ".sql"}

// DiscoverNotebooks copies notebooks found at workingDir/<domain>/subdir/,
// directly or one directory deeper, to targetDir/<domain>/, keeping the
// path below subdir. It returns the destination paths, sorted.
func DiscoverNotebooks(ctx context.Context, workingDir, subdir, targetDir string) ([]string, error) {
	var found []string
	for _, ext := range NotebookExtensions {
		for _, nesting := range []string{"*" + ext, filepath.Join("*", "*"+ext)} {
			matches, err := filepath.Glob(filepath.Join(workingDir, "*", subdir, nesting))
			if err != nil {
				return nil, fmt.Errorf("searching notebooks: %w", err)
			}
			found = append(found, matches...)
		}
	}
	slices.Sort(found)

	out := make([]string, 0, len(found))
	for _, src := range found {
		rel, err := filepath.Rel(workingDir, src)
		if err != nil {
			return out, fmt.Errorf("relativizing %s: %w", src, err)
		}
		// <domain>/<subdir>/<rest...>
		parts := strings.Split(filepath.ToSlash(rel), "/")
		dst := filepath.Join(append([]string{targetDir, parts[0]}, parts[2:]...)...)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return out, fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := copyFile(src, dst); err != nil {
			return out, err
		}
		clog.InfoContextf(ctx, "Copied notebook %s to %s", src, dst)
		out = append(out, dst)
	}
	return out, nil
}
