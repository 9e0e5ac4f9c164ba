/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package deploy

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"chainguard.dev/clusterdeploy/workspace"
	"github.com/chainguard-dev/clog"
)

// DefaultInitScriptDir is where init scripts are stored by default.
const DefaultInitScriptDir = "dbfs:/databricks/scripts"

// InitScriptPath returns the remote path of a local init script.
func InitScriptPath(local, remoteDir string) string {
	if remoteDir == "" {
		remoteDir = DefaultInitScriptDir
	}
	if !strings.HasSuffix(remoteDir, "/") {
		remoteDir += "/"
	}
	return remoteDir + filepath.Base(local)
}

// UploadInitScript uploads the script, overwriting any previous version, and
// returns its remote path.
func UploadInitScript(ctx context.Context, files workspace.Files, local, remoteDir string) (string, error) {
	remote := InitScriptPath(local, remoteDir)
	res, err := files.UploadFile(ctx, local, remote)
	if err != nil {
		return "", fmt.Errorf("uploading init script %s: %w", local, err)
	}
	if !res.OK() {
		return "", fmt.Errorf("uploading init script %s to %s: rejected: %s", local, remote, res)
	}
	clog.InfoContextf(ctx, "Uploaded init script %s to %s", local, remote)
	return remote, nil
}
