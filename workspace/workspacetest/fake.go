/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workspacetest provides an in-memory workspace for tests.
//
// The fake keeps cluster states, library sets, uploaded files, workspace
// objects and jobs in memory and records every call in order, so tests can
// assert on the exact sequence a reconciler issued.
package workspacetest

import (
	"context"
	"fmt"
	"maps"
	"path"
	"slices"
	"sync"

	"chainguard.dev/clusterdeploy/workspace"
)

// Op names a recorded call.
type Op string

const (
	OpState        Op = "state"
	OpStart        Op = "start"
	OpRestart      Op = "restart"
	OpList         Op = "list"
	OpUninstall    Op = "uninstall"
	OpUpload       Op = "upload"
	OpInstallWheel Op = "install-whl"
	OpInstallPypi  Op = "install-pypi"
	OpGetStatus    Op = "get-status"
	OpMkdirs       Op = "mkdirs"
	OpImport       Op = "import"
	OpListJobs     Op = "list-jobs"
	OpGetJob       Op = "get-job"
	OpCreateJob    Op = "create-job"
	OpResetJob     Op = "reset-job"
	OpPermissions  Op = "permissions"
	OpUpdatePerms  Op = "update-permissions"
)

// Call is one recorded invocation.
type Call struct {
	Op        Op
	ClusterID string
	Arg       string
}

func (c Call) String() string {
	switch {
	case c.ClusterID != "" && c.Arg != "":
		return fmt.Sprintf("%s(%s, %s)", c.Op, c.ClusterID, c.Arg)
	case c.ClusterID != "":
		return fmt.Sprintf("%s(%s)", c.Op, c.ClusterID)
	case c.Arg != "":
		return fmt.Sprintf("%s(%s)", c.Op, c.Arg)
	}
	return string(c.Op)
}

// Cluster is the fake state of one cluster.
type Cluster struct {
	State     workspace.ClusterState
	Libraries []workspace.Library

	// BootPolls is how many status polls a cluster stays in PENDING or
	// RESTARTING after a start or restart before it reports RUNNING.
	BootPolls int

	// Script, when non-empty, is consumed one state per poll before the
	// simulated lifecycle takes over.
	Script []workspace.ClusterState

	remaining     int
	statusErr     error
	listErr       error
	installFail   string
	uninstallFail string
	restartFail   string
	uploadFail    string
}

// Fake implements workspace.API in memory.
type Fake struct {
	mu sync.Mutex

	clusters    map[string]*Cluster
	files       map[string]string
	objects     map[string]workspace.ObjectStatus
	imports     map[string]workspace.Language
	jobs        map[int64]*workspace.Job
	permissions map[int64]*workspace.JobPermissions
	nextJobID   int64
	calls       []Call
}

var _ workspace.API = (*Fake)(nil)

// New returns an empty fake workspace.
func New() *Fake {
	return &Fake{
		clusters:    make(map[string]*Cluster),
		files:       make(map[string]string),
		objects:     make(map[string]workspace.ObjectStatus),
		imports:     make(map[string]workspace.Language),
		jobs:        make(map[int64]*workspace.Job),
		permissions: make(map[int64]*workspace.JobPermissions),
		nextJobID:   1000,
	}
}

// AddCluster registers a cluster in the given state with the given
// libraries installed.
func (f *Fake) AddCluster(id string, state workspace.ClusterState, libs ...workspace.Library) *Cluster {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &Cluster{State: state, Libraries: slices.Clone(libs)}
	if transitional(state) {
		c.remaining = c.BootPolls
	}
	f.clusters[id] = c
	return c
}

// FailStatus makes status polls of the cluster fail with err.
func (f *Fake) FailStatus(id string, err error) { f.cluster(id).statusErr = err }

// FailList makes library listing of the cluster fail with err.
func (f *Fake) FailList(id string, err error) { f.cluster(id).listErr = err }

// FailInstall makes installs on the cluster answer with the payload.
func (f *Fake) FailInstall(id, payload string) { f.cluster(id).installFail = payload }

// FailUninstall makes uninstalls on the cluster answer with the payload.
func (f *Fake) FailUninstall(id, payload string) { f.cluster(id).uninstallFail = payload }

// FailRestart makes restarts of the cluster answer with the payload. The
// cluster keeps its state.
func (f *Fake) FailRestart(id, payload string) { f.cluster(id).restartFail = payload }

// FailUpload makes uploads issued while reconciling the cluster fail. Since
// uploads are not cluster scoped, the failure applies to every upload.
func (f *Fake) FailUpload(id, payload string) { f.cluster(id).uploadFail = payload }

func (f *Fake) cluster(id string) *Cluster {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clusters[id]
	if !ok {
		c = &Cluster{State: workspace.StateRunning}
		f.clusters[id] = c
	}
	return c
}

// Libraries returns the current library set of a cluster.
func (f *Fake) Libraries(id string) []workspace.Library {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clusters[id]; ok {
		return slices.Clone(c.Libraries)
	}
	return nil
}

// State returns the current state of a cluster without recording a call.
func (f *Fake) State(id string) workspace.ClusterState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clusters[id]; ok {
		return c.State
	}
	return ""
}

// Files returns uploaded remote paths mapped to their local source.
func (f *Fake) Files() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.files)
}

// Imports returns imported notebook paths mapped to their language.
func (f *Fake) Imports() map[string]workspace.Language {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.imports)
}

// AddDirectory registers an existing workspace directory.
func (f *Fake) AddDirectory(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[p] = workspace.ObjectStatus{Path: p, ObjectType: "DIRECTORY"}
}

// Directories returns every known workspace directory, sorted.
func (f *Fake) Directories() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var dirs []string
	for p, o := range f.objects {
		if o.ObjectType == "DIRECTORY" {
			dirs = append(dirs, p)
		}
	}
	slices.Sort(dirs)
	return dirs
}

// AddJob registers an existing job and returns its id.
func (f *Fake) AddJob(settings workspace.JobSettings, acl ...workspace.AccessControl) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextJobID++
	id := f.nextJobID
	f.jobs[id] = &workspace.Job{JobID: id, Settings: settings}
	f.permissions[id] = &workspace.JobPermissions{AccessControlList: slices.Clone(acl)}
	return id
}

// Job returns a stored job.
func (f *Fake) Job(id int64) (*workspace.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return j, ok
}

// Permissions returns the stored access control list of a job.
func (f *Fake) Permissions(id int64) []workspace.AccessControl {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.permissions[id]; ok {
		return slices.Clone(p.AccessControlList)
	}
	return nil
}

// Calls returns every recorded call in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsFor returns the recorded calls that target a cluster.
func (f *Fake) CallsFor(id string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.ClusterID == id {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls of op were recorded.
func (f *Fake) Count(op Op) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps state.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) record(op Op, clusterID, arg string) {
	f.calls = append(f.calls, Call{Op: op, ClusterID: clusterID, Arg: arg})
}

func transitional(s workspace.ClusterState) bool {
	switch s {
	case workspace.StatePending, workspace.StateRestarting, workspace.StateResizing:
		return true
	}
	return false
}

func success() *workspace.Result { return &workspace.Result{StatusCode: 200, Body: "{}"} }

func failed(payload string) *workspace.Result {
	return &workspace.Result{StatusCode: 400, Body: payload}
}

func (f *Fake) lookup(id string) (*Cluster, error) {
	c, ok := f.clusters[id]
	if !ok {
		return nil, &workspace.TransportError{
			Op:         "cluster " + id,
			StatusCode: 400,
			Code:       "INVALID_PARAMETER_VALUE",
			Message:    fmt.Sprintf("Cluster %s does not exist", id),
		}
	}
	return c, nil
}

// ClusterState implements workspace.Clusters.
func (f *Fake) ClusterState(_ context.Context, id string) (workspace.ClusterState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpState, id, "")
	c, err := f.lookup(id)
	if err != nil {
		return "", err
	}
	if c.statusErr != nil {
		return "", c.statusErr
	}
	if len(c.Script) > 0 {
		s := c.Script[0]
		c.Script = c.Script[1:]
		c.State = s
		if transitional(s) {
			c.remaining = c.BootPolls
		}
		return s, nil
	}
	if transitional(c.State) {
		if c.remaining <= 0 {
			c.State = workspace.StateRunning
		} else {
			c.remaining--
		}
	}
	return c.State, nil
}

// StartCluster implements workspace.Clusters.
func (f *Fake) StartCluster(_ context.Context, id string) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpStart, id, "")
	c, err := f.lookup(id)
	if err != nil {
		return failed(err.Error()), nil
	}
	if c.State == workspace.StateTerminated {
		c.State = workspace.StatePending
		c.remaining = c.BootPolls
	}
	return success(), nil
}

// RestartCluster implements workspace.Clusters.
func (f *Fake) RestartCluster(_ context.Context, id string) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpRestart, id, "")
	c, err := f.lookup(id)
	if err != nil {
		return failed(err.Error()), nil
	}
	if c.restartFail != "" {
		return failed(c.restartFail), nil
	}
	c.State = workspace.StateRestarting
	c.remaining = c.BootPolls
	return success(), nil
}

// ClusterLibraries implements workspace.Libraries.
func (f *Fake) ClusterLibraries(_ context.Context, id string) ([]workspace.Library, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpList, id, "")
	c, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	if c.listErr != nil {
		return nil, c.listErr
	}
	return slices.Clone(c.Libraries), nil
}

// UninstallLibrary implements workspace.Libraries.
func (f *Fake) UninstallLibrary(_ context.Context, id string, lib workspace.Library) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpUninstall, id, lib.String())
	c, err := f.lookup(id)
	if err != nil {
		return failed(err.Error()), nil
	}
	if c.uninstallFail != "" {
		return failed(c.uninstallFail), nil
	}
	c.Libraries = slices.DeleteFunc(c.Libraries, func(l workspace.Library) bool {
		return l.String() == lib.String()
	})
	return success(), nil
}

func (f *Fake) install(op Op, id string, lib workspace.Library) *workspace.Result {
	f.record(op, id, lib.String())
	c, err := f.lookup(id)
	if err != nil {
		return failed(err.Error())
	}
	if c.installFail != "" {
		return failed(c.installFail)
	}
	if !slices.ContainsFunc(c.Libraries, func(l workspace.Library) bool { return l.String() == lib.String() }) {
		c.Libraries = append(c.Libraries, lib)
	}
	return success()
}

// InstallWheel implements workspace.Libraries.
func (f *Fake) InstallWheel(_ context.Context, id, remotePath string) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.install(OpInstallWheel, id, workspace.WheelLibrary(remotePath)), nil
}

// InstallPypi implements workspace.Libraries.
func (f *Fake) InstallPypi(_ context.Context, id, pkg string) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.install(OpInstallPypi, id, workspace.PypiPackage(pkg)), nil
}

// UploadFile implements workspace.Files.
func (f *Fake) UploadFile(_ context.Context, localPath, remotePath string) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpUpload, "", remotePath)
	for _, c := range f.clusters {
		if c.uploadFail != "" {
			return failed(c.uploadFail), nil
		}
	}
	f.files[remotePath] = localPath
	return success(), nil
}

// GetStatus implements workspace.Notebooks.
func (f *Fake) GetStatus(_ context.Context, p string) (*workspace.ObjectStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpGetStatus, "", p)
	o, ok := f.objects[p]
	if !ok {
		return nil, &workspace.TransportError{
			Op:         "get status of " + p,
			StatusCode: 404,
			Code:       "RESOURCE_DOES_NOT_EXIST",
			Message:    fmt.Sprintf("Path (%s) doesn't exist.", p),
		}
	}
	return &o, nil
}

// Mkdirs implements workspace.Notebooks. Parents are created as well.
func (f *Fake) Mkdirs(_ context.Context, p string) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpMkdirs, "", p)
	for d := p; d != "/" && d != "." && d != ""; d = path.Dir(d) {
		f.objects[d] = workspace.ObjectStatus{Path: d, ObjectType: "DIRECTORY"}
	}
	return success(), nil
}

// ImportNotebook implements workspace.Notebooks.
func (f *Fake) ImportNotebook(_ context.Context, _, remotePath string, lang workspace.Language) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpImport, "", remotePath)
	f.imports[remotePath] = lang
	f.objects[remotePath] = workspace.ObjectStatus{Path: remotePath, ObjectType: "NOTEBOOK", Language: string(lang)}
	return success(), nil
}

// ListJobs implements workspace.Jobs.
func (f *Fake) ListJobs(context.Context) ([]workspace.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpListJobs, "", "")
	ids := slices.Sorted(maps.Keys(f.jobs))
	out := make([]workspace.Job, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.jobs[id])
	}
	return out, nil
}

// GetJob implements workspace.Jobs.
func (f *Fake) GetJob(_ context.Context, id int64) (*workspace.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpGetJob, "", fmt.Sprint(id))
	j, ok := f.jobs[id]
	if !ok {
		return nil, &workspace.TransportError{Op: fmt.Sprintf("get job %d", id), StatusCode: 400, Code: "INVALID_PARAMETER_VALUE"}
	}
	cp := *j
	return &cp, nil
}

// CreateJob implements workspace.Jobs.
func (f *Fake) CreateJob(_ context.Context, settings workspace.JobSettings) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, _ := settings["name"].(string)
	f.record(OpCreateJob, "", name)
	f.nextJobID++
	id := f.nextJobID
	f.jobs[id] = &workspace.Job{JobID: id, Settings: settings}
	f.permissions[id] = &workspace.JobPermissions{}
	return id, nil
}

// ResetJob implements workspace.Jobs.
func (f *Fake) ResetJob(_ context.Context, id int64, settings workspace.JobSettings) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpResetJob, "", fmt.Sprint(id))
	j, ok := f.jobs[id]
	if !ok {
		return failed(`{"error_code":"INVALID_PARAMETER_VALUE"}`), nil
	}
	j.Settings = settings
	return success(), nil
}

// JobPermissions implements workspace.Jobs.
func (f *Fake) JobPermissions(_ context.Context, id int64) (*workspace.JobPermissions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpPermissions, "", fmt.Sprint(id))
	p, ok := f.permissions[id]
	if !ok {
		return nil, &workspace.TransportError{Op: fmt.Sprintf("get permissions of job %d", id), StatusCode: 404, Code: "RESOURCE_DOES_NOT_EXIST"}
	}
	return &workspace.JobPermissions{AccessControlList: slices.Clone(p.AccessControlList)}, nil
}

// UpdateJobPermissions implements workspace.Jobs.
func (f *Fake) UpdateJobPermissions(_ context.Context, id int64, acl []workspace.AccessControl) (*workspace.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(OpUpdatePerms, "", fmt.Sprint(id))
	p, ok := f.permissions[id]
	if !ok {
		p = &workspace.JobPermissions{}
		f.permissions[id] = p
	}
	p.AccessControlList = append(p.AccessControlList, acl...)
	return success(), nil
}
