/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package repometa derives deployment metadata from the git checkout the
// pipeline runs in.
package repometa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrNoOrigin is returned when the checkout has no usable origin remote.
var ErrNoOrigin = errors.New("no origin remote")

// PackageName returns the repository name of the origin remote of the git
// checkout containing dir. Parent directories are searched for the
// repository root.
func PackageName(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("opening git checkout at %s: %w", dir, err)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoOrigin, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoOrigin
	}
	name := RepositoryName(urls[0])
	if name == "" {
		return "", fmt.Errorf("%w: cannot derive a name from %q", ErrNoOrigin, urls[0])
	}
	return name, nil
}

// RepositoryName extracts the last path element of a remote URL without a
// ".git" suffix. Both URL and scp-like ("git@host:org/repo.git") forms are
// accepted.
func RepositoryName(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return url
}
