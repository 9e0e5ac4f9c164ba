/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ClusterState is the lifecycle state reported for a cluster.
type ClusterState string

const (
	StatePending     ClusterState = "PENDING"
	StateRunning     ClusterState = "RUNNING"
	StateRestarting  ClusterState = "RESTARTING"
	StateResizing    ClusterState = "RESIZING"
	StateTerminating ClusterState = "TERMINATING"
	StateTerminated  ClusterState = "TERMINATED"
)

// Library is one entry of a cluster's library set. Exactly one of Whl, Pypi
// or Other is populated. Other carries kinds this package does not model
// (jar, egg, maven, ...) so they survive a round trip to uninstall.
type Library struct {
	Whl   string
	Pypi  *PypiLibrary
	Other map[string]json.RawMessage
}

// PypiLibrary is a package installed from a python package index.
type PypiLibrary struct {
	Package string `json:"package"`
	Repo    string `json:"repo,omitempty"`
}

// WheelLibrary returns a whl-kind library for the remote path.
func WheelLibrary(path string) Library {
	return Library{Whl: path}
}

// PypiPackage returns a pypi-kind library for the package specifier.
func PypiPackage(pkg string) Library {
	return Library{Pypi: &PypiLibrary{Package: pkg}}
}

// Kind names the populated variant: "whl", "pypi", the first unmodelled
// key, or "" for an empty entry.
func (l Library) Kind() string {
	switch {
	case l.Whl != "":
		return "whl"
	case l.Pypi != nil:
		return "pypi"
	case len(l.Other) > 0:
		keys := make([]string, 0, len(l.Other))
		for k := range l.Other {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys[0]
	}
	return ""
}

func (l Library) String() string {
	switch l.Kind() {
	case "whl":
		return "whl:" + l.Whl
	case "pypi":
		return "pypi:" + l.Pypi.Package
	case "":
		return "<empty>"
	default:
		raw, _ := json.Marshal(l)
		return string(raw)
	}
}

// MarshalJSON encodes the library the way the remote API expects it, e.g.
// {"whl": "dbfs:/..."} or {"pypi": {"package": "requests"}}.
func (l Library) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Other)+1)
	for k, v := range l.Other {
		out[k] = v
	}
	if l.Whl != "" {
		out["whl"] = l.Whl
	}
	if l.Pypi != nil {
		out["pypi"] = l.Pypi
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a library entry, keeping unmodelled kinds in Other.
func (l *Library) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding library: %w", err)
	}
	*l = Library{}
	for k, v := range raw {
		switch k {
		case "whl":
			if err := json.Unmarshal(v, &l.Whl); err != nil {
				return fmt.Errorf("decoding whl library: %w", err)
			}
		case "pypi":
			l.Pypi = &PypiLibrary{}
			if err := json.Unmarshal(v, l.Pypi); err != nil {
				return fmt.Errorf("decoding pypi library: %w", err)
			}
		default:
			if l.Other == nil {
				l.Other = make(map[string]json.RawMessage)
			}
			l.Other[k] = v
		}
	}
	return nil
}

// Result is the outcome of a mutating call. The payload of a failed call is
// opaque and only ever logged.
type Result struct {
	StatusCode int
	Body       string
}

// OK reports whether the call succeeded: a 2xx status with an empty payload.
func (r *Result) OK() bool {
	if r == nil || r.StatusCode < 200 || r.StatusCode > 299 {
		return false
	}
	switch strings.TrimSpace(r.Body) {
	case "", "{}":
		return true
	}
	return false
}

func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d %s", r.StatusCode, strings.TrimSpace(r.Body))
}

// Language is the source language of an imported notebook.
type Language string

const (
	LanguagePython Language = "PYTHON"
	LanguageSQL    Language = "SQL"
)

// ObjectStatus describes a workspace path.
type ObjectStatus struct {
	Path       string `json:"path"`
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id,omitempty"`
	Language   string `json:"language,omitempty"`
}

// JobSettings is the free-form settings document of a scheduled job. It is
// kept as a generic document so fields this tool does not touch round-trip
// unchanged between workspaces.
type JobSettings map[string]any

// Job is a scheduled job as listed by the workspace.
type Job struct {
	JobID    int64       `json:"job_id"`
	Settings JobSettings `json:"settings"`
}

// AccessControl is one entry of a job access control list.
type AccessControl struct {
	UserName             string       `json:"user_name,omitempty"`
	GroupName            string       `json:"group_name,omitempty"`
	ServicePrincipalName string       `json:"service_principal_name,omitempty"`
	PermissionLevel      string       `json:"permission_level,omitempty"`
	AllPermissions       []Permission `json:"all_permissions,omitempty"`
}

// Permission is an effective permission of an access control entry.
type Permission struct {
	PermissionLevel string `json:"permission_level"`
	Inherited       bool   `json:"inherited,omitempty"`
}

// JobPermissions is the access control list of a job.
type JobPermissions struct {
	ObjectID          string          `json:"object_id,omitempty"`
	ObjectType        string          `json:"object_type,omitempty"`
	AccessControlList []AccessControl `json:"access_control_list"`
}
