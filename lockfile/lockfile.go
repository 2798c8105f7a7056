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

// Package lockfile reads Cargo.lock files into a flat dependency list.
package lockfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/package-url/packageurl-go"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Stdin is the path which makes Load read from the given reader.
const Stdin = "-"

var (
	ErrNotFound = errors.New("lockfile not found")
	ErrParse    = errors.New("could not parse lockfile")
)

type Error struct {
	Path string
	// Package is set if a single package entry is invalid
	Package string
	// Kind is one of ErrNotFound or ErrParse
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Kind, e.Path)
	if e.Package != "" {
		msg += fmt.Sprintf(": package %q", e.Package)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Dependency struct {
	Name    string
	Version *semver.Version
	// Source is the registry or git source, empty for path dependencies.
	Source string
}

// Key identifies a dependency inside a lockfile.
func (d Dependency) Key() string {
	return d.Name + "@" + d.Version.String()
}

func (d Dependency) PackageURL() string {
	return packageurl.NewPackageURL(packageurl.TypeCargo, "", d.Name, d.Version.String(), nil, "").ToString()
}

// Compare orders by name and then by semver precedence.
func Compare(a, b Dependency) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return a.Version.Compare(b.Version)
}

type rawLockfile struct {
	Version  int `toml:"version"`
	Packages []struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Source  string `toml:"source"`
	} `toml:"package"`
}

// Load reads the lockfile at path. Stdin reads from stdin instead.
func Load(path string, stdin io.Reader) ([]Dependency, error) {
	if path == Stdin {
		deps, err := Parse(stdin)
		return deps, withPath(err, "<stdin>")
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Path: path, Kind: ErrNotFound}
		}
		return nil, &Error{Path: path, Kind: ErrNotFound, Err: err}
	}
	defer f.Close()

	deps, err := Parse(f)
	return deps, withPath(err, path)
}

func withPath(err error, path string) error {
	var lockErr *Error
	if errors.As(err, &lockErr) {
		lockErr.Path = path
	}
	return err
}

// Parse reads every [[package]] entry in manifest order. Versions have to be
// strict semantic versions.
func Parse(r io.Reader) ([]Dependency, error) {
	if r == nil {
		return nil, &Error{Kind: ErrParse, Err: errors.New("no input")}
	}

	var raw rawLockfile
	if err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &Error{Kind: ErrParse, Err: err}
	}
	if raw.Version > 4 {
		return nil, &Error{Kind: ErrParse, Err: errors.Errorf("unsupported lockfile version %d", raw.Version)}
	}

	deps := make([]Dependency, 0, len(raw.Packages))
	for i, p := range raw.Packages {
		if p.Name == "" {
			return nil, &Error{Kind: ErrParse, Err: errors.Errorf("package entry %d has no name", i)}
		}
		if p.Version == "" {
			return nil, &Error{Kind: ErrParse, Package: p.Name, Err: errors.New("missing version")}
		}
		v, err := semver.StrictNewVersion(p.Version)
		if err != nil {
			return nil, &Error{Kind: ErrParse, Package: p.Name, Err: errors.Wrapf(err, "invalid version %q", p.Version)}
		}
		deps = append(deps, Dependency{Name: p.Name, Version: v, Source: p.Source})
	}
	return deps, nil
}
