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

package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/advisorydb"
	"github.com/l3montree-dev/lockaudit/lockfile"
	"github.com/l3montree-dev/lockaudit/matcher"
	"github.com/l3montree-dev/lockaudit/utils"
	"github.com/pkg/errors"
)

var validate = validator.New()

type Format string

const (
	FormatTerminal Format = "terminal"
	FormatJSON     Format = "json"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

const (
	DefaultDBPath   = "~/.cargo/advisory-db"
	DefaultLockfile = "Cargo.lock"
)

// Resolved is the fully validated configuration of a single run.
type Resolved struct {
	DBPath           string
	DBURL            string
	Fetch            bool
	AllowStale       bool
	Ignore           matcher.IgnoreSet
	IncludeWithdrawn bool
	Arch             *advisory.Arch
	OS               *advisory.OS
	Quiet            bool
	Format           Format
	Color            ColorMode
	DenyWarnings     bool
	LockfilePath     string
}

// Filters returns the matcher filters of the run.
func (r Resolved) Filters() matcher.Filters {
	return matcher.Filters{
		Ignore:           r.Ignore,
		Arch:             r.Arch,
		OS:               r.OS,
		IncludeWithdrawn: r.IncludeWithdrawn,
		DenyWarnings:     r.DenyWarnings,
	}
}

// Resolve validates cfg, parses ignore ids and platforms and fills in
// defaults. Every failure is an *Error.
func Resolve(cfg AuditConfig) (Resolved, error) {
	if err := validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fe := validationErrs[0]
			return Resolved{}, &Error{Field: fe.Namespace(), Value: fmt.Sprintf("%v", fe.Value()), Err: fmt.Errorf("failed on the %q rule", fe.Tag())}
		}
		return Resolved{}, &Error{Field: "config", Err: err}
	}

	r := Resolved{
		DBURL:            utils.OrDefault(utils.EmptyThenNil(cfg.Database.URL), advisorydb.DefaultURL),
		Fetch:            !cfg.Database.NoFetch,
		AllowStale:       cfg.Database.AllowStale,
		IncludeWithdrawn: cfg.Advisories.IncludeWithdrawn,
		Quiet:            cfg.Output.Quiet,
		Format:           Format(utils.OrDefault(utils.EmptyThenNil(cfg.Output.Format), string(FormatTerminal))),
		Color:            ColorMode(utils.OrDefault(utils.EmptyThenNil(cfg.Output.Color), string(ColorAuto))),
		DenyWarnings:     cfg.Output.DenyWarnings,
	}

	ids := make([]advisory.ID, 0, len(cfg.Advisories.Ignore))
	for _, s := range cfg.Advisories.Ignore {
		id, err := advisory.ParseID(s)
		if err != nil {
			return Resolved{}, &Error{Field: "advisories.ignore", Value: s, Err: err}
		}
		ids = append(ids, id)
	}
	r.Ignore = matcher.NewIgnoreSet(ids...)

	if cfg.Target.Arch != "" {
		arch, err := advisory.ParseArch(cfg.Target.Arch)
		if err != nil {
			return Resolved{}, &Error{Field: "target.arch", Value: cfg.Target.Arch, Err: err}
		}
		r.Arch = &arch
	}
	if cfg.Target.OS != "" {
		o, err := advisory.ParseOS(cfg.Target.OS)
		if err != nil {
			return Resolved{}, &Error{Field: "target.os", Value: cfg.Target.OS, Err: err}
		}
		r.OS = &o
	}

	dbPath, err := resolvePath(utils.OrDefault(utils.EmptyThenNil(cfg.Database.Path), DefaultDBPath))
	if err != nil {
		return Resolved{}, &Error{Field: "database.path", Value: cfg.Database.Path, Err: err}
	}
	r.DBPath = dbPath

	r.LockfilePath = utils.OrDefault(utils.EmptyThenNil(cfg.Lockfile.Path), DefaultLockfile)
	if r.LockfilePath != lockfile.Stdin {
		r.LockfilePath, err = resolvePath(r.LockfilePath)
		if err != nil {
			return Resolved{}, &Error{Field: "lockfile.path", Value: cfg.Lockfile.Path, Err: err}
		}
	}

	return r, nil
}

func resolvePath(path string) (string, error) {
	expanded, err := utils.ExpandHome(path)
	if err != nil {
		return "", err
	}
	if err := isValidPath(expanded); err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}
