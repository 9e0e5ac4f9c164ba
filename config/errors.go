/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEnvironment matches a ConfigError for a setting that has no
	// value for the requested environment.
	ErrMissingEnvironment = errors.New("environment missing from config")

	// ErrMissingSetting matches a ConfigError for a required setting that is
	// absent altogether.
	ErrMissingSetting = errors.New("required setting missing from config")
)

// ConfigError describes an unusable config file.
type ConfigError struct {
	Path        string
	Key         string
	Environment string
	Err         error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Key != "" && e.Environment != "":
		return fmt.Sprintf("config %s: %s: %q: %v", e.Path, e.Key, e.Environment, e.Err)
	case e.Key != "":
		return fmt.Sprintf("config %s: %s: %v", e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
