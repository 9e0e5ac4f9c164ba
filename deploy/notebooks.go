/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package deploy

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"chainguard.dev/clusterdeploy/workspace"
	"github.com/chainguard-dev/clog"
)

// DefaultNotebookDir is the default workspace directory for notebooks.
const DefaultNotebookDir = "/deployed/notebooks/"

var languages = map[string]workspace.Language{
	".py":  workspace.LanguagePython,
	".sql": workspace.LanguageSQL,
}

// Notebook pairs a local notebook source with its workspace path.
type Notebook struct {
	Local    string
	Remote   string
	Language workspace.Language
}

// PlanNotebooks finds the notebooks one or two directories below
// artifactDir and maps each to targetDir joined with its path relative to
// artifactDir. Files directly in artifactDir are not notebooks.
func PlanNotebooks(artifactDir, targetDir string) ([]Notebook, error) {
	targetDir = normalizeDir(targetDir)

	var out []Notebook
	for _, ext := range slices.Sorted(maps.Keys(languages)) {
		for _, nesting := range []string{"*", filepath.Join("*", "*")} {
			matches, err := filepath.Glob(filepath.Join(artifactDir, nesting, "*"+ext))
			if err != nil {
				return nil, fmt.Errorf("searching notebooks in %s: %w", artifactDir, err)
			}
			for _, m := range matches {
				rel, err := filepath.Rel(artifactDir, m)
				if err != nil {
					return nil, fmt.Errorf("relativizing %s: %w", m, err)
				}
				out = append(out, Notebook{
					Local:    m,
					Remote:   targetDir + filepath.ToSlash(rel),
					Language: languages[ext],
				})
			}
		}
	}
	return out, nil
}

func normalizeDir(dir string) string {
	if dir == "" {
		return DefaultNotebookDir
	}
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir
}

// UploadNotebooks imports every planned notebook, creating missing parent
// directories first. It returns the workspace paths that were imported.
// Rejected calls are logged; a failed status read aborts the run.
func UploadNotebooks(ctx context.Context, nb workspace.Notebooks, artifactDir, targetDir string) ([]string, error) {
	plan, err := PlanNotebooks(artifactDir, targetDir)
	if err != nil {
		return nil, err
	}
	clog.InfoContextf(ctx, "Found %d notebooks in %s", len(plan), artifactDir)

	checked := make(map[string]bool)
	for _, n := range plan {
		dir := path.Dir(n.Remote)
		if checked[dir] {
			continue
		}
		checked[dir] = true
		if err := ensureDir(ctx, nb, dir); err != nil {
			return nil, err
		}
	}

	var uploaded []string
	for _, n := range plan {
		res, err := nb.ImportNotebook(ctx, n.Local, n.Remote, n.Language)
		if err != nil {
			return uploaded, fmt.Errorf("importing %s: %w", n.Local, err)
		}
		if !res.OK() {
			clog.WarnContextf(ctx, "Import of %s to %s rejected: %s", n.Local, n.Remote, res)
			continue
		}
		clog.InfoContextf(ctx, "Imported %s to %s", n.Local, n.Remote)
		uploaded = append(uploaded, n.Remote)
	}
	return uploaded, nil
}

func ensureDir(ctx context.Context, nb workspace.Notebooks, dir string) error {
	_, err := nb.GetStatus(ctx, dir)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, workspace.ErrNotFound):
		return fmt.Errorf("checking %s: %w", dir, err)
	}
	clog.InfoContextf(ctx, "Creating workspace directory %s", dir)
	res, err := nb.Mkdirs(ctx, dir)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if !res.OK() {
		clog.WarnContextf(ctx, "Creating %s rejected: %s", dir, res)
	}
	return nil
}
