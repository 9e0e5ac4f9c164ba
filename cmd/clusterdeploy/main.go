/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command clusterdeploy runs the build and release steps of a workspace
// deployment pipeline: artifact discovery, library reconciliation on
// clusters, notebook and init script upload, and job promotion.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/clusterdeploy/config"
	"github.com/chainguard-dev/clog"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env, err := config.LoadEnv(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clusterdeploy: %v\n", err)
		os.Exit(1)
	}
	ctx = clog.WithLogger(ctx, clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(env.LogLevel),
	})))

	a := newApp(env, os.Stdout)
	if err := newRootCommand(a).ExecuteContext(ctx); err != nil {
		clog.ErrorContextf(ctx, "clusterdeploy: %v", err)
		os.Exit(1)
	}
}

// parseLevel maps LOG_LEVEL to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
