/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"chainguard.dev/clusterdeploy/artifacts"
	"chainguard.dev/clusterdeploy/deploy"
	"chainguard.dev/clusterdeploy/jobs"
	"chainguard.dev/clusterdeploy/metrics"
	"chainguard.dev/clusterdeploy/reconcilers/dependencyreconciler"
	"chainguard.dev/clusterdeploy/reconcilers/packagereconciler"
	"chainguard.dev/clusterdeploy/report"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func remoteCommands(a *app) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:     "process-all-packages CONFIG SECRET WHEELS [REMOTE_DIR]",
			Aliases: []string{"process_all_packages"},
			Short:   "Install wheels on every configured cluster, replacing older versions",
			Args:    cobra.RangeArgs(3, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				s, err := a.connect(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return a.instrumented(ctx, func(rec *metrics.Recorder) error {
					opts := []packagereconciler.Option{
						packagereconciler.WithMetrics(rec),
						packagereconciler.WithPollInterval(a.env.PollInterval),
						packagereconciler.WithTimeout(a.env.WaitTimeout),
					}
					if a.clock != nil {
						opts = append(opts, packagereconciler.WithClock(a.clock))
					}
					r := packagereconciler.New(s.client, opts...)
					outcomes, err := r.ReconcileAll(ctx, artifacts.SplitList(args[2]), a.packageIdentity(ctx),
						s.deployment.ClusterIDs, optional(args, 3, packagereconciler.DefaultRemoteDir))
					if !report.Packages(cmd.OutOrStdout(), outcomes) {
						clog.WarnContextf(ctx, "Some clusters did not accept every package")
					}
					return err
				})
			},
		},
		{
			Use:     "process-dependencies CONFIG SECRET REQUIREMENTS",
			Aliases: []string{"process_dependencies"},
			Short:   "Install requirement files as pypi libraries on every configured cluster",
			Args:    cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				deps, err := artifacts.ReadRequirements(artifacts.SplitList(args[2]))
				if err != nil {
					return err
				}
				s, err := a.connect(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return a.instrumented(ctx, func(rec *metrics.Recorder) error {
					opts := []dependencyreconciler.Option{
						dependencyreconciler.WithMetrics(rec),
						dependencyreconciler.WithPollInterval(a.env.PollInterval),
						dependencyreconciler.WithTimeout(a.env.WaitTimeout),
					}
					if a.clock != nil {
						opts = append(opts, dependencyreconciler.WithClock(a.clock))
					}
					outcomes, err := dependencyreconciler.New(s.client, opts...).Reconcile(ctx, deps, s.deployment.ClusterIDs)
					if !report.Dependencies(cmd.OutOrStdout(), outcomes) {
						clog.WarnContextf(ctx, "Some clusters did not accept every dependency")
					}
					return err
				})
			},
		},
		{
			Use:     "upload-notebooks CONFIG SECRET ARTIFACT_DIR [TARGET_DIR]",
			Aliases: []string{"upload_notebooks_workflow"},
			Short:   "Import notebooks into the workspace tree",
			Args:    cobra.RangeArgs(3, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				s, err := a.connect(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				uploaded, err := deploy.UploadNotebooks(ctx, s.client, args[2], optional(args, 3, deploy.DefaultNotebookDir))
				for _, p := range uploaded {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return err
			},
		},
		{
			Use:     "upload-init-script CONFIG SECRET SCRIPT [REMOTE_DIR]",
			Aliases: []string{"upload_init_script_workflow"},
			Short:   "Upload a cluster init script to the file store",
			Args:    cobra.RangeArgs(3, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				s, err := a.connect(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				remote, err := deploy.UploadInitScript(ctx, s.client, args[2], optional(args, 3, deploy.DefaultInitScriptDir))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), remote)
				return nil
			},
		},
		{
			Use:     "jobs-ci CONFIG SECRET JOB_IDS OUTPUT_DIR [SUFFIX] [TARGET_PATH] [OFFSET] [NAME_REGEX]",
			Aliases: []string{"databricks_jobs_ci"},
			Short:   "Export jobs rewritten for promotion to <env>_jobs.json",
			Args:    cobra.RangeArgs(4, 8),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				ids, err := jobs.ParseJobIDs(args[2])
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					clog.InfoContextf(ctx, "No jobs selected for promotion")
					return nil
				}
				s, err := a.connect(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				settings, err := jobs.Export(ctx, s.client, ids, jobs.ExportOptions{
					Suffix:     optional(args, 4, jobs.DefaultSuffix),
					TargetPath: optional(args, 5, jobs.DefaultTargetPath),
					Offset:     optional(args, 6, jobs.DefaultOffset),
					NameRegex:  optional(args, 7, jobs.DefaultNameRegex),
				})
				if err != nil {
					return err
				}
				p, err := jobs.WriteExport(args[3], s.deployment.Environment, settings)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return nil
			},
		},
		{
			Use:     "jobs-cd CONFIG SECRET JOBS_FILE GROUP CLUSTER_ID",
			Aliases: []string{"databricks_jobs_cd"},
			Short:   "Create or reset exported jobs in the target workspace",
			Args:    cobra.ExactArgs(5),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				settings, err := jobs.ReadExport(ctx, args[2])
				if err != nil || len(settings) == 0 {
					return err
				}
				s, err := a.connect(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				deployed, err := jobs.Apply(ctx, s.client, settings, args[3], args[4])
				for _, d := range deployed {
					verb := "reset"
					if d.Created {
						verb = "created"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", d.JobID, verb, d.Name)
				}
				return err
			},
		},
	}
}
