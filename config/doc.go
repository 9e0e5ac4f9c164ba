/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config reads deployment settings for a pipeline run.
//
// A config file is a JSON (or YAML) object whose top-level keys are setting
// names and whose values are objects keyed by environment:
//
//	{
//	  "databricks_host": {"dev": "https://adb-1.azuredatabricks.net", "prd": "https://adb-2.azuredatabricks.net"},
//	  "databricks_cluster_id": {"dev": ["0101-abc"], "prd": ["0202-def", "0303-ghi"]}
//	}
//
// Load picks every setting for one environment and fails with a
// *ConfigError matching ErrMissingEnvironment when a setting has no value
// for it. Process environment variables are decoded into Env with
// go-envconfig, and the secret token is read with ReadToken. Nothing in this
// package is kept in globals; callers pass the results to each workflow.
package config
