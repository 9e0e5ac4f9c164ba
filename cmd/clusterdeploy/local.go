/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"chainguard.dev/clusterdeploy/artifacts"
	"chainguard.dev/clusterdeploy/config"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

const defaultRequirementType = "common"

func localCommands(a *app) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:     "create-init-script PACKAGE_REMOTE_DIR OUTPUT_FILE [REQUIREMENTS] [WHEELS]",
			Aliases: []string{"create_init_script_workflow"},
			Short:   "Write a cluster init script installing requirements and wheels",
			Args:    cobra.RangeArgs(2, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				reqFiles := artifacts.FilterRequirements(artifacts.SplitList(optional(args, 2, "")), defaultRequirementType)
				reqs, err := artifacts.ReadRequirements(reqFiles)
				if err != nil {
					return err
				}
				script := artifacts.InitScript(args[0], reqs, artifacts.SplitList(optional(args, 3, "")))
				if err := artifacts.WriteInitScript(args[1], script); err != nil {
					return err
				}
				clog.InfoContextf(cmd.Context(), "Wrote init script %s", args[1])
				return nil
			},
		},
		{
			Use:     "read-env-cfg CONFIG [KEY]",
			Aliases: []string{"read_env_cfg"},
			Short:   "Publish the settings of the current stage as pipeline variables",
			Args:    cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := config.Load(args[0], a.env.Stage())
				if err != nil {
					return err
				}
				keys := d.Keys()
				if len(args) > 1 {
					keys = []string{args[1]}
				}
				for _, k := range keys {
					v, ok := d.String(k)
					if !ok {
						return &config.ConfigError{Path: args[0], Key: k, Environment: d.Environment, Err: config.ErrMissingSetting}
					}
					if err := artifacts.SetVariable(cmd.OutOrStdout(), k, []string{v}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Use:     "read-flat-cfg CONFIG [KEY]",
			Aliases: []string{"read_flat_cfg"},
			Short:   "Publish the settings of a flat config file as pipeline variables",
			Args:    cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				values, err := config.LoadFlat(args[0])
				if err != nil {
					return err
				}
				d := &config.Deployment{Values: values}
				keys := d.Keys()
				if len(args) > 1 {
					keys = []string{args[1]}
				}
				for _, k := range keys {
					v, ok := d.String(k)
					if !ok {
						return &config.ConfigError{Path: args[0], Key: k, Err: config.ErrMissingSetting}
					}
					if err := artifacts.SetVariable(cmd.OutOrStdout(), k, []string{v}); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Use:     "find-files DIR PATTERN [VAR_PREFIX] [VAR_SUFFIX]",
			Aliases: []string{"find_files_job"},
			Short:   "Publish files matching a pattern as a pipeline variable",
			Args:    cobra.RangeArgs(2, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				files, err := artifacts.FindFiles(args[0], args[1])
				if err != nil {
					return err
				}
				name := artifacts.VariableName(args[1], optional(args, 2, ""), optional(args, 3, "_files"))
				return artifacts.SetVariable(cmd.OutOrStdout(), name, files)
			},
		},
		{
			Use:     "find-files-in-nested-dir DIR DEPTH NESTED_DIR [EXT] [NAME] [VAR_SUFFIX]",
			Aliases: []string{"find_files_in_nested_dir_job"},
			Short:   "Publish files inside directories of a given name as a pipeline variable",
			Args:    cobra.RangeArgs(3, 6),
			RunE: func(cmd *cobra.Command, args []string) error {
				depth, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("depth %q: %w", args[1], err)
				}
				name := optional(args, 4, "*")
				files, err := artifacts.FindNested(args[0], depth, args[2], optional(args, 3, "*"), name)
				if err != nil {
					return err
				}
				variable := artifacts.NestedVariableName(args[2], name, optional(args, 5, "_files"))
				return artifacts.SetVariable(cmd.OutOrStdout(), variable, files)
			},
		},
		{
			Use:     "copy-files ARTIFACT_DIR FILES",
			Aliases: []string{"copy_files"},
			Short:   "Copy files into an artifact directory",
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := artifacts.CopyFiles(cmd.Context(), args[0], artifacts.SplitList(args[1]))
				return err
			},
		},
		{
			Use:     "copy-requirements ARTIFACT_DIR REQUIREMENTS [TYPE]",
			Aliases: []string{"copy_requirements"},
			Short:   "Merge requirement files of one type into the artifact directory",
			Args:    cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := artifacts.CopyRequirements(cmd.Context(), args[0], artifacts.SplitList(args[1]), optional(args, 2, defaultRequirementType))
				return err
			},
		},
		{
			Use:     "discover-and-copy-notebooks WORKING_DIR SUBDIR TARGET_DIR",
			Aliases: []string{"discover_and_copy_notebooks_workflow"},
			Short:   "Collect notebooks of every domain into the artifact directory",
			Args:    cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := artifacts.DiscoverNotebooks(cmd.Context(), args[0], args[1], args[2])
				return err
			},
		},
		{
			Use:   "config-schema",
			Short: "Print the JSON schema of the deployment config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out, err := json.MarshalIndent(config.Schema(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			},
		},
	}
}
