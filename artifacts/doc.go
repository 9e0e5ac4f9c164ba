/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package artifacts prepares build outputs for deployment: finding files by
// pattern, copying them into the artifact directory, merging requirement
// files, generating cluster init scripts and publishing file lists as
// pipeline variables.
package artifacts
