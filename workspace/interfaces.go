/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import "context"

// Clusters covers cluster lifecycle calls. Start and restart are
// fire-and-forget: they return once the request is accepted.
type Clusters interface {
	ClusterState(ctx context.Context, clusterID string) (ClusterState, error)
	StartCluster(ctx context.Context, clusterID string) (*Result, error)
	RestartCluster(ctx context.Context, clusterID string) (*Result, error)
}

// Libraries covers the library set of a cluster.
type Libraries interface {
	ClusterLibraries(ctx context.Context, clusterID string) ([]Library, error)
	UninstallLibrary(ctx context.Context, clusterID string, lib Library) (*Result, error)
	InstallWheel(ctx context.Context, clusterID, remotePath string) (*Result, error)
	InstallPypi(ctx context.Context, clusterID, pkg string) (*Result, error)
}

// Files covers the remote file store. Uploads overwrite unconditionally.
type Files interface {
	UploadFile(ctx context.Context, localPath, remotePath string) (*Result, error)
}

// Notebooks covers the workspace object tree.
type Notebooks interface {
	GetStatus(ctx context.Context, path string) (*ObjectStatus, error)
	Mkdirs(ctx context.Context, path string) (*Result, error)
	ImportNotebook(ctx context.Context, localPath, remotePath string, lang Language) (*Result, error)
}

// Jobs covers scheduled job definitions and their permissions.
type Jobs interface {
	ListJobs(ctx context.Context) ([]Job, error)
	GetJob(ctx context.Context, jobID int64) (*Job, error)
	CreateJob(ctx context.Context, settings JobSettings) (int64, error)
	ResetJob(ctx context.Context, jobID int64, settings JobSettings) (*Result, error)
	JobPermissions(ctx context.Context, jobID int64) (*JobPermissions, error)
	UpdateJobPermissions(ctx context.Context, jobID int64, acl []AccessControl) (*Result, error)
}

// ClusterAPI is what the library reconcilers need.
type ClusterAPI interface {
	Clusters
	Libraries
	Files
}

// API is the full remote surface.
type API interface {
	ClusterAPI
	Notebooks
	Jobs
}

var _ API = (*Client)(nil)
