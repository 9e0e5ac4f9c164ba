/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repometa

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"
)

func TestRepositoryName(t *testing.T) {
	tests := map[string]string{
		"https://dev.azure.com/org/project/_git/analytics_core": "analytics_core",
		"https://github.com/org/analytics-core.git":             "analytics-core",
		"git@github.com:org/analytics_core.git":                 "analytics_core",
		"git@host:analytics_core":                               "analytics_core",
		"https://github.com/org/analytics_core/":                "analytics_core",
		"":                                                      "",
	}
	for in, want := range tests {
		if got := RepositoryName(in); got != want {
			t.Errorf("RepositoryName(%q): got = %q, wanted = %q", in, got, want)
		}
	}
}

func TestPackageName(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/org/analytics_core.git"},
	})
	require.NoError(t, err)

	sub := filepath.Join(dir, "ci", "scripts")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := PackageName(sub)
	require.NoError(t, err)
	if got != "analytics_core" {
		t.Errorf("PackageName: got = %q, wanted = analytics_core", got)
	}
}

func TestPackageNameNoOrigin(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	if _, err := PackageName(dir); !errors.Is(err, ErrNoOrigin) {
		t.Errorf("PackageName: got = %v, wanted = %v", err, ErrNoOrigin)
	}
}

func TestPackageNameNotACheckout(t *testing.T) {
	if _, err := PackageName(t.TempDir()); err == nil {
		t.Error("PackageName outside a checkout: got = nil, wanted = error")
	}
}
