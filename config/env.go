/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// ErrNoEnvironment is returned when ENVIRONMENT_NAME is not set.
var ErrNoEnvironment = errors.New("ENVIRONMENT_NAME is not set")

// Env is the process environment of a pipeline step.
type Env struct {
	// EnvironmentName selects the config partition for deployments.
	EnvironmentName string `env:"ENVIRONMENT_NAME"`
	// StageDisplayName is the pipeline stage, used when reading config in
	// the build part of a pipeline.
	StageDisplayName string `env:"SYSTEM_STAGEDISPLAYNAME"`
	// RepositoryName is the logical package identity.
	RepositoryName string `env:"BUILD_REPOSITORY_NAME"`

	PushgatewayURL string        `env:"PUSHGATEWAY_URL"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	PollInterval   time.Duration `env:"CLUSTER_POLL_INTERVAL,default=10s"`
	WaitTimeout    time.Duration `env:"CLUSTER_WAIT_TIMEOUT,default=0s"`
}

// LoadEnv decodes the process environment.
func LoadEnv(ctx context.Context) (*Env, error) {
	return LoadEnvFrom(ctx, envconfig.OsLookuper())
}

// LoadEnvFrom decodes the environment served by l.
func LoadEnvFrom(ctx context.Context, l envconfig.Lookuper) (*Env, error) {
	var e Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &e, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &e, nil
}

// Environment returns the deployment environment. "prd_bi" shares the
// "prd" partition.
func (e *Env) Environment() (string, error) {
	switch e.EnvironmentName {
	case "":
		return "", ErrNoEnvironment
	case "prd_bi":
		return "prd", nil
	}
	return e.EnvironmentName, nil
}

// Stage returns the config partition for build steps. The default stage
// maps to "dv".
func (e *Env) Stage() string {
	if e.StageDisplayName == "__default" {
		return "dv"
	}
	return e.StageDisplayName
}
