/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []recorded
}

func (r *recorder) add(req *http.Request) recorded {
	body, _ := io.ReadAll(req.Body)
	rec := recorded{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.RawQuery,
		Auth:   req.Header.Get("Authorization"),
		Body:   string(body),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, rec)
	return rec
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.requests...)
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithToken("s3cr3t"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: got = %v, wanted = nil", err)
	}
	return c, rec
}

func TestNewRequiresHost(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Error("New error: got = nil, wanted = non-nil")
	}
}

func TestClusterState(t *testing.T) {
	var rec *recorder
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = io.WriteString(w, `{"cluster_id":"c-1","state":"TERMINATED","state_message":"idle"}`)
	})

	got, err := c.ClusterState(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("ClusterState: got = %v, wanted = nil", err)
	}
	if got != StateTerminated {
		t.Errorf("state: got = %s, wanted = %s", got, StateTerminated)
	}

	want := []recorded{{
		Method: http.MethodGet,
		Path:   "/api/2.0/clusters/get",
		Query:  "cluster_id=c-1",
		Auth:   "Bearer s3cr3t",
	}}
	if diff := cmp.Diff(want, rec.all()); diff != "" {
		t.Errorf("requests (-want +got):\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantNotFound bool
		wantCode     string
	}{{
		name:         "missing resource",
		status:       http.StatusNotFound,
		body:         `{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"Path (/x) doesn't exist."}`,
		wantNotFound: true,
		wantCode:     "RESOURCE_DOES_NOT_EXIST",
	}, {
		name:     "invalid parameter",
		status:   http.StatusBadRequest,
		body:     `{"error_code":"INVALID_PARAMETER_VALUE","message":"Cluster c-9 does not exist"}`,
		wantCode: "INVALID_PARAMETER_VALUE",
	}, {
		name:   "opaque failure",
		status: http.StatusBadGateway,
		body:   `<html>bad gateway</html>`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.GetStatus(context.Background(), "/x")
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("error: got = %v, wanted = *TransportError", err)
			}
			if te.StatusCode != tt.status {
				t.Errorf("status: got = %d, wanted = %d", te.StatusCode, tt.status)
			}
			if te.Code != tt.wantCode {
				t.Errorf("code: got = %q, wanted = %q", te.Code, tt.wantCode)
			}
			if got := errors.Is(err, ErrNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(ErrNotFound): got = %v, wanted = %v", got, tt.wantNotFound)
			}
		})
	}
}

func TestMutationsReturnResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error_code":"INVALID_STATE","message":"Cluster is terminated"}`)
	})

	res, err := c.RestartCluster(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("RestartCluster: got = %v, wanted = nil", err)
	}
	if res.OK() {
		t.Error("OK: got = true, wanted = false")
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got = %d, wanted = %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestLibraryCalls(t *testing.T) {
	var rec *recorder
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if r.URL.Path == "/api/2.0/libraries/cluster-status" {
			_, _ = io.WriteString(w, `{"cluster_id":"c-1","library_statuses":[
				{"library":{"whl":"dbfs:/libs/my_pkg-1.0-py3-none-any.whl"},"status":"INSTALLED"},
				{"library":{"pypi":{"package":"requests==2.31.0"}},"status":"INSTALLED"},
				{"library":{"jar":"dbfs:/libs/x.jar"},"status":"INSTALLED"}
			]}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	})
	ctx := context.Background()

	libs, err := c.ClusterLibraries(ctx, "c-1")
	if err != nil {
		t.Fatalf("ClusterLibraries: got = %v, wanted = nil", err)
	}
	wantKinds := []string{"whl", "pypi", "jar"}
	var gotKinds []string
	for _, l := range libs {
		gotKinds = append(gotKinds, l.Kind())
	}
	if diff := cmp.Diff(wantKinds, gotKinds); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}

	for _, call := range []func() (*Result, error){
		func() (*Result, error) { return c.UninstallLibrary(ctx, "c-1", libs[2]) },
		func() (*Result, error) { return c.InstallWheel(ctx, "c-1", "dbfs:/libs/new.whl") },
		func() (*Result, error) { return c.InstallPypi(ctx, "c-1", "pandas") },
	} {
		res, err := call()
		if err != nil {
			t.Fatalf("library call: got = %v, wanted = nil", err)
		}
		if !res.OK() {
			t.Errorf("OK: got = false, wanted = true (%s)", res)
		}
	}

	reqs := rec.all()
	if len(reqs) != 4 {
		t.Fatalf("requests: got = %d, wanted = 4", len(reqs))
	}
	wantBodies := []string{
		`{"cluster_id":"c-1","libraries":[{"jar":"dbfs:/libs/x.jar"}]}`,
		`{"cluster_id":"c-1","libraries":[{"whl":"dbfs:/libs/new.whl"}]}`,
		`{"cluster_id":"c-1","libraries":[{"pypi":{"package":"pandas"}}]}`,
	}
	for i, want := range wantBodies {
		if got := reqs[i+1].Body; got != want {
			t.Errorf("body[%d]: got = %s, wanted = %s", i, got, want)
		}
	}
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "my_pkg-1.0-py3-none-any.whl")
	if err := os.WriteFile(local, []byte("wheel bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	var gotPath, gotOverwrite, gotContents string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/dbfs/put" {
			t.Errorf("path: got = %s, wanted = /api/2.0/dbfs/put", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: got = %v, wanted = nil", err)
			return
		}
		gotPath = r.FormValue("path")
		gotOverwrite = r.FormValue("overwrite")
		f, _, err := r.FormFile("contents")
		if err != nil {
			t.Errorf("FormFile: got = %v, wanted = nil", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotContents = string(b)
		_, _ = io.WriteString(w, `{}`)
	})

	res, err := c.UploadFile(context.Background(), local, "dbfs:/libs/my_pkg-1.0-py3-none-any.whl")
	if err != nil {
		t.Fatalf("UploadFile: got = %v, wanted = nil", err)
	}
	if !res.OK() {
		t.Errorf("OK: got = false, wanted = true (%s)", res)
	}
	if gotPath != "dbfs:/libs/my_pkg-1.0-py3-none-any.whl" {
		t.Errorf("path field: got = %q", gotPath)
	}
	if gotOverwrite != "true" {
		t.Errorf("overwrite field: got = %q, wanted = true", gotOverwrite)
	}
	if gotContents != "wheel bytes" {
		t.Errorf("contents: got = %q, wanted = %q", gotContents, "wheel bytes")
	}
}

func TestUploadMissingFile(t *testing.T) {
	c, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request should be sent")
	})
	if _, err := c.UploadFile(context.Background(), filepath.Join(t.TempDir(), "absent.whl"), "dbfs:/x"); err == nil {
		t.Error("UploadFile error: got = nil, wanted = non-nil")
	}
}

func TestImportNotebook(t *testing.T) {
	local := filepath.Join(t.TempDir(), "etl.py")
	if err := os.WriteFile(local, []byte("print(1)\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = io.WriteString(w, `{}`)
	})

	if _, err := c.ImportNotebook(context.Background(), local, "/Shared/etl", LanguagePython); err != nil {
		t.Fatalf("ImportNotebook: got = %v, wanted = nil", err)
	}
	want := map[string]any{
		"path":      "/Shared/etl",
		"format":    "SOURCE",
		"language":  "PYTHON",
		"overwrite": true,
		"content":   base64.StdEncoding.EncodeToString([]byte("print(1)\n")),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload (-want +got):\n%s", diff)
	}
}

func TestListJobsPaginates(t *testing.T) {
	var rec *recorder
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		switch r.URL.Query().Get("page_token") {
		case "":
			_, _ = io.WriteString(w, `{"jobs":[{"job_id":1,"settings":{"name":"a"}}],"has_more":true,"next_page_token":"p2"}`)
		case "p2":
			_, _ = io.WriteString(w, `{"jobs":[{"job_id":2,"settings":{"name":"b"}}],"has_more":false}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("page_token"))
		}
	})

	jobs, err := c.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs: got = %v, wanted = nil", err)
	}
	want := []Job{
		{JobID: 1, Settings: JobSettings{"name": "a"}},
		{JobID: 2, Settings: JobSettings{"name": "b"}},
	}
	if diff := cmp.Diff(want, jobs); diff != "" {
		t.Errorf("jobs (-want +got):\n%s", diff)
	}
	if got := len(rec.all()); got != 2 {
		t.Errorf("requests: got = %d, wanted = 2", got)
	}
	for _, r := range rec.all() {
		if r.Path != "/api/2.1/jobs/list" {
			t.Errorf("path: got = %s, wanted = /api/2.1/jobs/list", r.Path)
		}
	}
}

func TestCreateJobAndPermissions(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/2.1/jobs/create":
			_, _ = io.WriteString(w, `{"job_id":77}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/2.0/permissions/jobs/77":
			_, _ = io.WriteString(w, `{"object_id":"/jobs/77","access_control_list":[{"user_name":"a@b.c","all_permissions":[{"permission_level":"IS_OWNER"}]}]}`)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/2.0/permissions/jobs/77":
			_, _ = io.WriteString(w, `{}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	id, err := c.CreateJob(ctx, JobSettings{"name": "nightly"})
	if err != nil {
		t.Fatalf("CreateJob: got = %v, wanted = nil", err)
	}
	if id != 77 {
		t.Errorf("job id: got = %d, wanted = 77", id)
	}

	perms, err := c.JobPermissions(ctx, id)
	if err != nil {
		t.Fatalf("JobPermissions: got = %v, wanted = nil", err)
	}
	if got := perms.AccessControlList[0].AllPermissions[0].PermissionLevel; got != "IS_OWNER" {
		t.Errorf("permission: got = %s, wanted = IS_OWNER", got)
	}

	res, err := c.UpdateJobPermissions(ctx, id, []AccessControl{{GroupName: "admins", PermissionLevel: "CAN_MANAGE"}})
	if err != nil {
		t.Fatalf("UpdateJobPermissions: got = %v, wanted = nil", err)
	}
	if !res.OK() {
		t.Errorf("OK: got = false, wanted = true (%s)", res)
	}
}

func TestReadFailsOnFirstUnavailableResponse(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			calls := 0
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(status)
				_, _ = io.WriteString(w, `{"error_code":"TEMPORARILY_UNAVAILABLE","message":"try again"}`)
			})

			_, err := c.ClusterLibraries(context.Background(), "c-1")
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("error: got = %v, wanted = *TransportError", err)
			}
			if te.StatusCode != status {
				t.Errorf("status: got = %d, wanted = %d", te.StatusCode, status)
			}
			if calls != 1 {
				t.Errorf("calls: got = %d, wanted = 1", calls)
			}
		})
	}
}
