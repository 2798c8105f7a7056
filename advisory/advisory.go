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

// Package advisory contains the advisory data model and turns raw advisory
// files into records. It does not touch the filesystem.
package advisory

import (
	"fmt"
	"slices"
	"time"

	"github.com/Masterminds/semver/v3"
)

type Category string

const (
	CategoryVulnerability Category = "vulnerability"
	CategoryUnmaintained  Category = "unmaintained"
	CategoryNotice        Category = "notice"
	CategoryUnsound       Category = "unsound"
)

// Informational categories never block a run on their own.
func (c Category) Informational() bool {
	return c != CategoryVulnerability
}

// AffectedRange combines the affected bounds with the patched and unaffected
// bounds of an advisory.
type AffectedRange struct {
	Affected   []VersionReq
	Patched    []VersionReq
	Unaffected []VersionReq
}

// Validate checks the invariants of the range: at least one affected bound
// and no exclusion which covers every version.
func (r AffectedRange) Validate() error {
	if len(r.Affected) == 0 {
		return fmt.Errorf("advisory has no affected version bound")
	}
	for _, req := range slices.Concat(r.Patched, r.Unaffected) {
		if req.MatchesAll() {
			return fmt.Errorf("exclusion %q covers every version", req)
		}
	}
	return nil
}

// Contains reports whether v is affected and neither patched nor unaffected.
func (r AffectedRange) Contains(v *semver.Version) bool {
	if !anyMatches(r.Affected, v) {
		return false
	}
	return !anyMatches(r.Patched, v) && !anyMatches(r.Unaffected, v)
}

func anyMatches(reqs []VersionReq, v *semver.Version) bool {
	for _, req := range reqs {
		if req.Matches(v) {
			return true
		}
	}
	return false
}

// Record is a single parsed advisory.
type Record struct {
	ID          ID
	Package     string
	Title       string
	Description string
	Date        time.Time
	URL         string
	Aliases     []string
	Related     []string
	Keywords    []string
	Categories  []string
	CVSS        string
	Severity    *Severity
	Category    Category
	Withdrawn   *time.Time

	// empty means the advisory applies to every architecture / os
	Arch []Arch
	OS   []OS

	// affected functions mapped to the version requirements they are affected in
	Functions map[string][]VersionReq

	Versions AffectedRange

	// Path of the file the record was parsed from, relative to the database root.
	Path string
}

func (r *Record) IsWithdrawn() bool {
	return r.Withdrawn != nil
}

// AppliesToArch is true if the advisory has no arch constraint or the
// constraint contains a. An empty list is no constraint.
func (r *Record) AppliesToArch(a Arch) bool {
	return len(r.Arch) == 0 || slices.Contains(r.Arch, a)
}

func (r *Record) AppliesToOS(o OS) bool {
	return len(r.OS) == 0 || slices.Contains(r.OS, o)
}
