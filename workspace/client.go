/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const (
	apiV20 = "api/2.0/"
	apiV21 = "api/2.1/"

	jobsPageSize = 100
)

// Client talks to the workspace REST API.
type Client struct {
	host        string
	http        *http.Client
	base        *http.Client
	tokenSource oauth2.TokenSource
	userAgent   string
}

// New constructs a Client for the workspace at host, e.g.
// "https://adb-123.azuredatabricks.net".
func New(host string, opts ...Option) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("workspace host is required")
	}
	if _, err := url.Parse(host); err != nil {
		return nil, fmt.Errorf("parsing workspace host %q: %w", host, err)
	}
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}

	c := &Client{host: host, userAgent: "clusterdeploy"}
	for _, opt := range opts {
		opt(c)
	}

	base := c.base
	if base == nil {
		base = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if c.tokenSource == nil {
		c.http = base
		return c, nil
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c.http = &http.Client{
		Transport: &oauth2.Transport{Source: c.tokenSource, Base: rt},
		Timeout:   base.Timeout,
	}
	return c, nil
}

// do issues a request and returns the raw status and body. An error is only
// returned when no response was obtained.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, contentType string) (int, []byte, error) {
	u := c.host + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("building %s %s: %w", method, endpoint, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.userAgent)

	log := clog.FromContext(ctx).With("method", method, "endpoint", endpoint)
	log.Debug("Sending workspace request")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading %s %s response: %w", method, endpoint, err)
	}
	log.With("status", resp.StatusCode).Debug("Workspace response received")
	return resp.StatusCode, data, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, query url.Values, payload any) (int, []byte, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, endpoint, query, body, contentType)
}

// read performs a call whose failure must propagate as a TransportError and
// decodes the response into out. It is issued once.
func (c *Client) read(ctx context.Context, op, method, endpoint string, query url.Values, payload, out any) error {
	status, data, err := c.doJSON(ctx, method, endpoint, query, payload)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return newTransportError(op, status, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// mutate performs a call whose payload is reported back to the caller as a
// Result rather than an error.
func (c *Client) mutate(ctx context.Context, method, endpoint string, payload any) (*Result, error) {
	status, data, err := c.doJSON(ctx, method, endpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: status, Body: string(data)}, nil
}

type clusterRequest struct {
	ClusterID string `json:"cluster_id"`
}

type libraryRequest struct {
	ClusterID string    `json:"cluster_id"`
	Libraries []Library `json:"libraries"`
}

// ClusterState implements Clusters.
func (c *Client) ClusterState(ctx context.Context, clusterID string) (ClusterState, error) {
	var resp struct {
		State        ClusterState `json:"state"`
		StateMessage string       `json:"state_message"`
	}
	q := url.Values{"cluster_id": {clusterID}}
	if err := c.read(ctx, "get cluster "+clusterID, http.MethodGet, apiV20+"clusters/get", q, nil, &resp); err != nil {
		return "", err
	}
	return resp.State, nil
}

// StartCluster implements Clusters.
func (c *Client) StartCluster(ctx context.Context, clusterID string) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, apiV20+"clusters/start", clusterRequest{ClusterID: clusterID})
}

// RestartCluster implements Clusters.
func (c *Client) RestartCluster(ctx context.Context, clusterID string) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, apiV20+"clusters/restart", clusterRequest{ClusterID: clusterID})
}

// ClusterLibraries implements Libraries.
func (c *Client) ClusterLibraries(ctx context.Context, clusterID string) ([]Library, error) {
	var resp struct {
		LibraryStatuses []struct {
			Library Library `json:"library"`
			Status  string  `json:"status"`
		} `json:"library_statuses"`
	}
	q := url.Values{"cluster_id": {clusterID}}
	if err := c.read(ctx, "list libraries on "+clusterID, http.MethodGet, apiV20+"libraries/cluster-status", q, nil, &resp); err != nil {
		return nil, err
	}
	libs := make([]Library, 0, len(resp.LibraryStatuses))
	for _, ls := range resp.LibraryStatuses {
		libs = append(libs, ls.Library)
	}
	return libs, nil
}

// UninstallLibrary implements Libraries.
func (c *Client) UninstallLibrary(ctx context.Context, clusterID string, lib Library) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, apiV20+"libraries/uninstall", libraryRequest{
		ClusterID: clusterID,
		Libraries: []Library{lib},
	})
}

// InstallWheel implements Libraries.
func (c *Client) InstallWheel(ctx context.Context, clusterID, remotePath string) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, apiV20+"libraries/install", libraryRequest{
		ClusterID: clusterID,
		Libraries: []Library{WheelLibrary(remotePath)},
	})
}

// InstallPypi implements Libraries.
func (c *Client) InstallPypi(ctx context.Context, clusterID, pkg string) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, apiV20+"libraries/install", libraryRequest{
		ClusterID: clusterID,
		Libraries: []Library{PypiPackage(pkg)},
	})
}

// UploadFile implements Files.
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string) (*Result, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("path", remotePath); err != nil {
		return nil, fmt.Errorf("writing path field: %w", err)
	}
	if err := mw.WriteField("overwrite", "true"); err != nil {
		return nil, fmt.Errorf("writing overwrite field: %w", err)
	}
	part, err := mw.CreateFormFile("contents", filepath.Base(localPath))
	if err != nil {
		return nil, fmt.Errorf("creating contents part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", localPath, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	status, data, err := c.do(ctx, http.MethodPost, apiV20+"dbfs/put", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: status, Body: string(data)}, nil
}

// GetStatus implements Notebooks. A missing path yields an error matching
// ErrNotFound.
func (c *Client) GetStatus(ctx context.Context, path string) (*ObjectStatus, error) {
	var st ObjectStatus
	q := url.Values{"path": {path}}
	if err := c.read(ctx, "get status of "+path, http.MethodGet, apiV20+"workspace/get-status", q, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Mkdirs implements Notebooks.
func (c *Client) Mkdirs(ctx context.Context, path string) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, apiV20+"workspace/mkdirs", map[string]string{"path": path})
}

// ImportNotebook implements Notebooks.
func (c *Client) ImportNotebook(ctx context.Context, localPath, remotePath string, lang Language) (*Result, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("reading notebook %s: %w", localPath, err)
	}
	return c.mutate(ctx, http.MethodPost, apiV20+"workspace/import", map[string]any{
		"path":      remotePath,
		"format":    "SOURCE",
		"language":  lang,
		"overwrite": true,
		"content":   base64.StdEncoding.EncodeToString(content),
	})
}

// ListJobs implements Jobs, following pagination to the end.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	pageToken := ""
	for {
		q := url.Values{"limit": {strconv.Itoa(jobsPageSize)}}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		var resp struct {
			Jobs          []Job  `json:"jobs"`
			HasMore       bool   `json:"has_more"`
			NextPageToken string `json:"next_page_token"`
		}
		if err := c.read(ctx, "list jobs", http.MethodGet, apiV21+"jobs/list", q, nil, &resp); err != nil {
			return nil, err
		}
		jobs = append(jobs, resp.Jobs...)
		if !resp.HasMore || resp.NextPageToken == "" {
			return jobs, nil
		}
		pageToken = resp.NextPageToken
	}
}

// GetJob implements Jobs.
func (c *Client) GetJob(ctx context.Context, jobID int64) (*Job, error) {
	var job Job
	q := url.Values{"job_id": {strconv.FormatInt(jobID, 10)}}
	if err := c.read(ctx, fmt.Sprintf("get job %d", jobID), http.MethodGet, apiV21+"jobs/get", q, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob implements Jobs.
func (c *Client) CreateJob(ctx context.Context, settings JobSettings) (int64, error) {
	var resp struct {
		JobID int64 `json:"job_id"`
	}
	if err := c.read(ctx, "create job", http.MethodPost, apiV21+"jobs/create", nil, settings, &resp); err != nil {
		return 0, err
	}
	return resp.JobID, nil
}

// ResetJob implements Jobs.
func (c *Client) ResetJob(ctx context.Context, jobID int64, settings JobSettings) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, apiV21+"jobs/reset", map[string]any{
		"job_id":       jobID,
		"new_settings": settings,
	})
}

// JobPermissions implements Jobs.
func (c *Client) JobPermissions(ctx context.Context, jobID int64) (*JobPermissions, error) {
	var perms JobPermissions
	endpoint := apiV20 + "permissions/jobs/" + strconv.FormatInt(jobID, 10)
	if err := c.read(ctx, fmt.Sprintf("get permissions of job %d", jobID), http.MethodGet, endpoint, nil, nil, &perms); err != nil {
		return nil, err
	}
	return &perms, nil
}

// UpdateJobPermissions implements Jobs. Entries are merged into the
// existing access control list.
func (c *Client) UpdateJobPermissions(ctx context.Context, jobID int64, acl []AccessControl) (*Result, error) {
	endpoint := apiV20 + "permissions/jobs/" + strconv.FormatInt(jobID, 10)
	return c.mutate(ctx, http.MethodPatch, endpoint, map[string]any{"access_control_list": acl})
}
