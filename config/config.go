/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Setting names with a meaning to the workflows.
const (
	KeyHost       = "databricks_host"
	KeyClusterIDs = "databricks_cluster_id"
)

// Deployment is a config file resolved for one environment.
type Deployment struct {
	Environment string
	Host        string
	ClusterIDs  []string
	// Values holds every setting, including the ones above, as decoded.
	Values map[string]any
}

// String returns a setting rendered as text. A list yields its first
// element.
func (d *Deployment) String(key string) (string, bool) {
	v, ok := d.Values[key]
	if !ok {
		return "", false
	}
	return Format(v), true
}

// Keys returns the setting names in sorted order.
func (d *Deployment) Keys() []string {
	return slices.Sorted(maps.Keys(d.Values))
}

// Format renders a decoded value the way pipeline variables expect it. A
// list yields its first element.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		if len(v) == 0 {
			return ""
		}
		return Format(v[0])
	}
	return fmt.Sprint(v)
}

func decode(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return &ConfigError{Path: path, Err: fmt.Errorf("decoding: %w", err)}
	}
	return nil
}

// Load reads the config file at path and resolves it for env. The host
// setting is required.
func Load(path, env string) (*Deployment, error) {
	if env == "" {
		return nil, &ConfigError{Path: path, Err: errors.New("no environment given")}
	}
	var raw map[string]map[string]any
	if err := decode(path, &raw); err != nil {
		return nil, err
	}

	d := &Deployment{Environment: env, Values: make(map[string]any, len(raw))}
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		v, ok := raw[key][env]
		if !ok {
			return nil, &ConfigError{Path: path, Key: key, Environment: env, Err: ErrMissingEnvironment}
		}
		d.Values[key] = v
	}

	host, ok := d.Values[KeyHost].(string)
	if !ok || strings.TrimSpace(host) == "" {
		return nil, &ConfigError{Path: path, Key: KeyHost, Err: ErrMissingSetting}
	}
	d.Host = strings.TrimSpace(host)

	ids, err := stringList(d.Values[KeyClusterIDs])
	if err != nil {
		return nil, &ConfigError{Path: path, Key: KeyClusterIDs, Environment: env, Err: err}
	}
	d.ClusterIDs = ids
	return d, nil
}

// stringList accepts a single id or a list of ids.
func stringList(v any) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("cluster id %v is not a string", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected value of type %T", v)
}

// LoadFlat reads a config file that is not partitioned by environment.
func LoadFlat(path string) (map[string]any, error) {
	var raw map[string]any
	if err := decode(path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ReadToken reads the bearer token from a secret file. Line breaks are
// removed.
func ReadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.NewReplacer("\r", "", "\n", "").Replace(string(data))
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}
