/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chainguard.dev/clusterdeploy/config"
	"chainguard.dev/clusterdeploy/metrics"
	"chainguard.dev/clusterdeploy/repometa"
	"chainguard.dev/clusterdeploy/workspace"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

const metricsJob = "clusterdeploy"

// app carries what every command needs. Tests replace newClient and clock.
type app struct {
	env     *config.Env
	stdout  io.Writer
	workDir string

	newClient func(host, token string) (workspace.API, error)
	// clock drives cluster polling; nil uses the real clock.
	clock clock.Clock
}

func newApp(env *config.Env, stdout io.Writer) *app {
	return &app{
		env:     env,
		stdout:  stdout,
		workDir: ".",
		newClient: func(host, token string) (workspace.API, error) {
			return workspace.New(host, workspace.WithToken(token))
		},
	}
}

// session is a resolved deployment target.
type session struct {
	deployment *config.Deployment
	client     workspace.API
}

// connect resolves the config for the deployment environment and builds an
// authenticated client for its workspace.
func (a *app) connect(ctx context.Context, cfgPath, secretPath string) (*session, error) {
	env, err := a.env.Environment()
	if err != nil {
		return nil, err
	}
	d, err := config.Load(cfgPath, env)
	if err != nil {
		return nil, err
	}
	token, err := config.ReadToken(secretPath)
	if err != nil {
		return nil, err
	}
	client, err := a.newClient(d.Host, token)
	if err != nil {
		return nil, fmt.Errorf("creating workspace client: %w", err)
	}
	clog.InfoContextf(ctx, "Deploying to %s (%s) with %d clusters", d.Host, env, len(d.ClusterIDs))
	return &session{deployment: d, client: client}, nil
}

// packageIdentity returns the repository name the pipeline builds, from the
// environment or the checkout. An empty result lets the reconciler derive
// the identity from each artifact.
func (a *app) packageIdentity(ctx context.Context) string {
	if a.env.RepositoryName != "" {
		return a.env.RepositoryName
	}
	name, err := repometa.PackageName(a.workDir)
	if err != nil {
		clog.WarnContextf(ctx, "Cannot determine package identity from checkout: %v", err)
		return ""
	}
	return name
}

// instrumented runs fn with a metrics recorder and pushes the resulting
// series when a pushgateway is configured. Push failures are logged.
func (a *app) instrumented(ctx context.Context, fn func(*metrics.Recorder) error) error {
	p, err := metrics.NewPipeline()
	if err != nil {
		return err
	}
	runErr := fn(p.Recorder())
	if runErr == nil {
		p.MarkSuccess()
	}

	env, _ := a.env.Environment()
	if err := p.Push(ctx, a.env.PushgatewayURL, metricsJob, "environment", env); err != nil {
		clog.WarnContextf(ctx, "Pushing metrics: %v", err)
	}
	return errors.Join(runErr, p.Shutdown(context.WithoutCancel(ctx)))
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "clusterdeploy",
		Short:         "Deploy wheels, notebooks, init scripts and jobs to a workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.AddGroup(
		&cobra.Group{ID: "remote", Title: "Workspace commands:"},
		&cobra.Group{ID: "local", Title: "Build commands:"},
	)
	for _, c := range remoteCommands(a) {
		c.GroupID = "remote"
		root.AddCommand(c)
	}
	for _, c := range localCommands(a) {
		c.GroupID = "local"
		root.AddCommand(c)
	}
	return root
}

// optional returns args[i] or def when it is absent or empty.
func optional(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}
