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

// Package report groups matches into a deterministic report and renders it.
package report

import (
	"slices"

	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/advisorydb"
	"github.com/l3montree-dev/lockaudit/lockfile"
	"github.com/l3montree-dev/lockaudit/matcher"
)

type ExitCode int

const (
	ExitClean                ExitCode = 0
	ExitVulnerabilitiesFound ExitCode = 1
	// ExitError is used for fatal errors before a report could be built.
	ExitError ExitCode = 2
)

// Info describes the inputs of a run.
type Info struct {
	Dependencies int
	Advisories   int
	Database     advisorydb.Metadata
	Lockfile     string
}

type Group struct {
	Dependency lockfile.Dependency
	Advisories []*advisory.Record
}

type Summary struct {
	Dependencies           int
	Advisories             int
	Vulnerabilities        int
	VulnerableDependencies int
	Warnings               int
}

type Report struct {
	// Vulnerabilities block the run, warnings do not.
	Vulnerabilities []Group
	Warnings        []Group
	Summary         Summary
	Info            Info
}

// Build groups matches by dependency. Groups are ordered by name and version,
// advisories inside a group by id.
func Build(result matcher.Result, info Info) Report {
	vulns := group(result.Vulnerabilities)
	warnings := group(result.Warnings)

	return Report{
		Vulnerabilities: vulns,
		Warnings:        warnings,
		Info:            info,
		Summary: Summary{
			Dependencies:           info.Dependencies,
			Advisories:             info.Advisories,
			Vulnerabilities:        len(result.Vulnerabilities),
			VulnerableDependencies: len(vulns),
			Warnings:               len(result.Warnings),
		},
	}
}

func group(matches []matcher.Match) []Group {
	sorted := slices.Clone(matches)
	slices.SortFunc(sorted, matcher.CompareMatches)

	groups := make([]Group, 0)
	for _, m := range sorted {
		last := len(groups) - 1
		if last >= 0 && groups[last].Dependency.Key() == m.Dependency.Key() {
			if !slices.ContainsFunc(groups[last].Advisories, func(r *advisory.Record) bool { return r.ID == m.Advisory.ID }) {
				groups[last].Advisories = append(groups[last].Advisories, m.Advisory)
			}
			continue
		}
		groups = append(groups, Group{Dependency: m.Dependency, Advisories: []*advisory.Record{m.Advisory}})
	}
	return groups
}

// ExitDisposition is ExitClean if and only if there is no blocking group.
func (r Report) ExitDisposition() ExitCode {
	if len(r.Vulnerabilities) == 0 {
		return ExitClean
	}
	return ExitVulnerabilitiesFound
}
