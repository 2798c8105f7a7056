// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config holds the audit configuration: loading it from files and
// the environment, merging command line values and resolving it into the
// value the pipeline runs with.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	defaultConfigFilename = ".lockaudit"
	envPrefix             = "LOCKAUDIT"
)

type DatabaseConfig struct {
	Path       string `json:"path" mapstructure:"path"`
	URL        string `json:"url" mapstructure:"url" validate:"omitempty,url"`
	NoFetch    bool   `json:"noFetch" mapstructure:"noFetch"`
	AllowStale bool   `json:"allowStale" mapstructure:"allowStale"`
}

type AdvisoriesConfig struct {
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
	IncludeWithdrawn bool     `json:"includeWithdrawn" mapstructure:"includeWithdrawn"`
}

type TargetConfig struct {
	Arch string `json:"arch" mapstructure:"arch"`
	OS   string `json:"os" mapstructure:"os"`
}

type OutputConfig struct {
	Quiet        bool   `json:"quiet" mapstructure:"quiet"`
	Format       string `json:"format" mapstructure:"format" validate:"omitempty,oneof=terminal json"`
	Color        string `json:"color" mapstructure:"color" validate:"omitempty,oneof=auto always never"`
	DenyWarnings bool   `json:"denyWarnings" mapstructure:"denyWarnings"`
}

type LockfileConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// AuditConfig is the unresolved configuration as found in config files and
// the environment.
type AuditConfig struct {
	Database   DatabaseConfig   `json:"database" mapstructure:"database"`
	Advisories AdvisoriesConfig `json:"advisories" mapstructure:"advisories"`
	Target     TargetConfig     `json:"target" mapstructure:"target"`
	Output     OutputConfig     `json:"output" mapstructure:"output"`
	Lockfile   LockfileConfig   `json:"lockfile" mapstructure:"lockfile"`
}

// keys registered with viper, so environment variables are picked up even
// without a config file.
var keys = []string{
	"database.path", "database.url", "database.noFetch", "database.allowStale",
	"advisories.ignore", "advisories.includeWithdrawn",
	"target.arch", "target.os",
	"output.quiet", "output.format", "output.color", "output.denyWarnings",
	"lockfile.path",
}

// Load reads the config file and LOCKAUDIT_ environment variables into an
// AuditConfig. Without an explicit file ".lockaudit.{toml,yaml,json}" is
// searched in the working directory and in ~/.config/lockaudit. A missing
// default file is not an error, a missing explicit file is.
func Load(v *viper.Viper, file string) (AuditConfig, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(defaultConfigFilename)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "lockaudit"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return AuditConfig{}, &Error{Field: "config", Value: file, Err: err}
		}
		slog.Debug("no config file found")
	} else {
		slog.Debug("using config file", "file", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return AuditConfig{}, errors.Wrapf(err, "could not bind %s to the environment", key)
		}
	}

	var cfg AuditConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AuditConfig{}, &Error{Field: "config", Value: v.ConfigFileUsed(), Err: err}
	}
	return cfg, nil
}

// Overlay holds the values given on the command line. nil pointers and false
// booleans leave the base value untouched.
type Overlay struct {
	DBPath           *string
	DBURL            *string
	NoFetch          bool
	AllowStale       bool
	Ignore           []string
	IncludeWithdrawn bool
	Arch             *string
	OS               *string
	Quiet            bool
	Format           *string
	Color            *string
	DenyWarnings     bool
	LockfilePath     *string
}

// Merge applies overlay to base and returns a new config. Scalars of the
// overlay win, ignore lists are united and boolean switches are or-combined.
// Neither argument is modified.
func Merge(base AuditConfig, overlay Overlay) AuditConfig {
	merged := base

	setIfPresent(&merged.Database.Path, overlay.DBPath)
	setIfPresent(&merged.Database.URL, overlay.DBURL)
	setIfPresent(&merged.Target.Arch, overlay.Arch)
	setIfPresent(&merged.Target.OS, overlay.OS)
	setIfPresent(&merged.Output.Format, overlay.Format)
	setIfPresent(&merged.Output.Color, overlay.Color)
	setIfPresent(&merged.Lockfile.Path, overlay.LockfilePath)

	merged.Database.NoFetch = base.Database.NoFetch || overlay.NoFetch
	merged.Database.AllowStale = base.Database.AllowStale || overlay.AllowStale
	merged.Advisories.IncludeWithdrawn = base.Advisories.IncludeWithdrawn || overlay.IncludeWithdrawn
	merged.Output.Quiet = base.Output.Quiet || overlay.Quiet
	merged.Output.DenyWarnings = base.Output.DenyWarnings || overlay.DenyWarnings

	merged.Advisories.Ignore = union(base.Advisories.Ignore, overlay.Ignore)
	return merged
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// union keeps the first occurrence of every value.
func union(a, b []string) []string {
	res := make([]string, 0, len(a)+len(b))
	for _, s := range slices.Concat(a, b) {
		if !slices.Contains(res, s) {
			res = append(res, s)
		}
	}
	return res
}

// Error is a configuration error. It is reported before any work is done.
type Error struct {
	Field string
	Value string
	Err   error
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid configuration for %s (%q): %v", e.Field, e.Value, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
