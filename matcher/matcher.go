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

// Package matcher finds the advisories which apply to the dependencies of a
// lockfile.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/lockfile"
	"github.com/l3montree-dev/lockaudit/utils"
)

// Source returns the advisories of a single package. *advisorydb.Database
// implements it.
type Source interface {
	RecordsFor(pkg string) []*advisory.Record
}

type Filters struct {
	Ignore IgnoreSet
	// nil matches every arch / os constraint
	Arch             *advisory.Arch
	OS               *advisory.OS
	IncludeWithdrawn bool
	// DenyWarnings reports informational advisories as vulnerabilities
	DenyWarnings bool
}

type Match struct {
	Dependency lockfile.Dependency
	Advisory   *advisory.Record
}

func (m Match) key() string {
	return m.Dependency.Key() + "|" + string(m.Advisory.ID)
}

// CompareMatches orders by dependency and then by advisory id.
func CompareMatches(a, b Match) int {
	if c := lockfile.Compare(a.Dependency, b.Dependency); c != 0 {
		return c
	}
	return strings.Compare(string(a.Advisory.ID), string(b.Advisory.ID))
}

type Result struct {
	Vulnerabilities []Match
	Warnings        []Match
}

type Matcher struct {
	source  Source
	filters Filters
}

func New(source Source, filters Filters) *Matcher {
	return &Matcher{source: source, filters: filters}
}

type dependencyResult struct {
	vulnerabilities []Match
	warnings        []Match
}

// Match checks every dependency in parallel. The result is deduplicated and
// sorted, so it does not depend on scheduling.
func (m *Matcher) Match(ctx context.Context, deps []lockfile.Dependency) (Result, error) {
	group, ctx := utils.ErrGroupWithContext[dependencyResult](ctx, runtime.GOMAXPROCS(0))
	for _, dep := range deps {
		group.Go(func() (dependencyResult, error) {
			if err := ctx.Err(); err != nil {
				return dependencyResult{}, err
			}
			return m.matchDependency(dep), nil
		})
	}

	results, err := group.WaitAndCollect()
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Vulnerabilities: dedup(utils.Flat(utils.Map(results, func(r dependencyResult) []Match { return r.vulnerabilities }))),
		Warnings:        dedup(utils.Flat(utils.Map(results, func(r dependencyResult) []Match { return r.warnings }))),
	}
	slog.Debug("matched dependencies", "dependencies", len(deps), "vulnerabilities", len(res.Vulnerabilities), "warnings", len(res.Warnings))
	return res, nil
}

func (m *Matcher) matchDependency(dep lockfile.Dependency) dependencyResult {
	res := dependencyResult{}
	for _, r := range m.source.RecordsFor(dep.Name) {
		if r.Package != dep.Name {
			panic(fmt.Sprintf("advisory %s for package %q returned for dependency %q", r.ID, r.Package, dep.Name))
		}
		if !m.applies(r) || !r.Versions.Contains(dep.Version) {
			continue
		}

		match := Match{Dependency: dep, Advisory: r}
		if r.Category.Informational() && !m.filters.DenyWarnings {
			res.warnings = append(res.warnings, match)
		} else {
			res.vulnerabilities = append(res.vulnerabilities, match)
		}
	}
	return res
}

// applies checks every filter which does not depend on the version.
func (m *Matcher) applies(r *advisory.Record) bool {
	if r.IsWithdrawn() && !m.filters.IncludeWithdrawn {
		return false
	}
	if m.filters.Ignore.Contains(r.ID) {
		return false
	}
	if m.filters.Arch != nil && !r.AppliesToArch(*m.filters.Arch) {
		return false
	}
	if m.filters.OS != nil && !r.AppliesToOS(*m.filters.OS) {
		return false
	}
	return true
}

func dedup(matches []Match) []Match {
	matches = utils.UniqBy(matches, Match.key)
	slices.SortFunc(matches, CompareMatches)
	return matches
}
