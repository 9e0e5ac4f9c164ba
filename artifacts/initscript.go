/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package artifacts

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// InitScript builds a cluster init script that upgrades pip, installs every
// requirement and then every wheel from the package directory. The
// directory is a remote URI such as "dbfs:/FileStore/jars"; the colon is
// dropped to address the same location through the cluster's fuse mount.
func InitScript(pkgRemoteDir string, requirements, wheels []string) string {
	dir := strings.TrimSuffix(strings.ReplaceAll(pkgRemoteDir, ":", ""), "/")

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("pip install --upgrade pip\n")
	for _, r := range requirements {
		fmt.Fprintf(&b, "pip install %s\n", r)
	}
	for _, w := range wheels {
		fmt.Fprintf(&b, "pip install %s\n", path.Join(dir, filepath.Base(w)))
	}
	return b.String()
}

// WriteInitScript writes the script with execute permission.
func WriteInitScript(p, content string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o755); err != nil {
		return fmt.Errorf("writing init script %s: %w", p, err)
	}
	return nil
}
