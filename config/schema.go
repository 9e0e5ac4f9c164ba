/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import "github.com/invopop/jsonschema"

// File documents the shape of a config file. It is only used to generate
// the schema; Load decodes files generically so unknown settings survive.
type File struct {
	DatabricksHost      map[string]string   `json:"databricks_host" jsonschema:"required,description=Workspace URL per environment"`
	DatabricksClusterID map[string][]string `json:"databricks_cluster_id,omitempty" jsonschema:"description=Cluster ids per environment in reconcile order"`
}

// Schema returns the JSON schema of a config file. Settings other than the
// documented ones are allowed.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
	}
	s := r.Reflect(&File{})
	s.Title = "clusterdeploy config"
	return s
}
