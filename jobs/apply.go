/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"chainguard.dev/clusterdeploy/workspace"
	"github.com/chainguard-dev/clog"
)

// ManagePermission is granted to the owning group of every applied job.
const ManagePermission = "CAN_MANAGE"

// Deployed describes one applied job.
type Deployed struct {
	Name    string
	JobID   int64
	Created bool
	Granted bool
}

// ReadExport loads an export written by WriteExport. A missing file is not
// an error: it yields no jobs.
func ReadExport(ctx context.Context, p string) ([]workspace.JobSettings, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		clog.InfoContextf(ctx, "No jobs file at %s, nothing to deploy", p)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out []workspace.JobSettings
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p, err)
	}
	return out, nil
}

// Apply binds each job's tasks to clusterID, then creates it when its name
// is new in the workspace or resets the existing job with that name, and
// makes sure group holds CAN_MANAGE on it. Rejected resets and permission
// updates are logged; failed reads and creates abort.
func Apply(ctx context.Context, api workspace.Jobs, settings []workspace.JobSettings, group, clusterID string) ([]Deployed, error) {
	if len(settings) == 0 {
		return nil, nil
	}
	existing, err := api.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	byName := make(map[string]int64, len(existing))
	for _, j := range existing {
		name, _ := j.Settings["name"].(string)
		if _, dup := byName[name]; !dup {
			byName[name] = j.JobID
		}
	}

	out := make([]Deployed, 0, len(settings))
	for _, s := range settings {
		for _, task := range tasks(s) {
			task["existing_cluster_id"] = clusterID
		}
		name, _ := s["name"].(string)
		d := Deployed{Name: name}

		if id, ok := byName[name]; ok {
			d.JobID = id
			res, err := api.ResetJob(ctx, id, s)
			if err != nil {
				return out, fmt.Errorf("resetting job %q: %w", name, err)
			}
			if !res.OK() {
				clog.WarnContextf(ctx, "Reset of job %q (%d) rejected: %s", name, id, res)
			} else {
				clog.InfoContextf(ctx, "Reset job %q (%d)", name, id)
			}
		} else {
			id, err := api.CreateJob(ctx, s)
			if err != nil {
				return out, fmt.Errorf("creating job %q: %w", name, err)
			}
			d.JobID, d.Created = id, true
			byName[name] = id
			clog.InfoContextf(ctx, "Created job %q (%d)", name, id)
		}

		granted, err := grant(ctx, api, d.JobID, group)
		if err != nil {
			return out, err
		}
		d.Granted = granted
		out = append(out, d)
	}
	return out, nil
}

// grant adds CAN_MANAGE for group unless the group already has an entry.
func grant(ctx context.Context, api workspace.Jobs, id int64, group string) (bool, error) {
	perms, err := api.JobPermissions(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reading permissions of job %d: %w", id, err)
	}
	for _, ac := range perms.AccessControlList {
		if ac.GroupName == group {
			return false, nil
		}
	}
	res, err := api.UpdateJobPermissions(ctx, id, []workspace.AccessControl{{
		GroupName:       group,
		PermissionLevel: ManagePermission,
	}})
	if err != nil {
		return false, fmt.Errorf("granting %s on job %d: %w", group, id, err)
	}
	if !res.OK() {
		clog.WarnContextf(ctx, "Granting %s on job %d rejected: %s", group, id, res)
		return false, nil
	}
	clog.InfoContextf(ctx, "Granted %s %s on job %d", group, ManagePermission, id)
	return true, nil
}
