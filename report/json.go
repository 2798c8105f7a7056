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

package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/utils"
)

type packageDTO struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Source  string `json:"source,omitempty"`
	Purl    string `json:"purl"`
}

type severityDTO struct {
	Score  float64 `json:"score"`
	Rating string  `json:"rating"`
	Vector string  `json:"vector"`
}

type advisoryDTO struct {
	ID          string       `json:"id"`
	Package     string       `json:"package"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Date        string       `json:"date,omitempty"`
	URL         string       `json:"url,omitempty"`
	Aliases     []string     `json:"aliases"`
	Related     []string     `json:"related"`
	Categories  []string     `json:"categories"`
	Keywords    []string     `json:"keywords"`
	Kind        string       `json:"kind"`
	Severity    *severityDTO `json:"severity"`
	Withdrawn   *string      `json:"withdrawn"`
}

type versionsDTO struct {
	Patched    []string `json:"patched"`
	Unaffected []string `json:"unaffected"`
}

// affectedDTO lists the platforms and the functions an advisory is limited
// to. Empty lists mean every platform.
type affectedDTO struct {
	Arch      []string            `json:"arch"`
	OS        []string            `json:"os"`
	Functions map[string][]string `json:"functions"`
}

type findingDTO struct {
	Package  packageDTO  `json:"package"`
	Advisory advisoryDTO `json:"advisory"`
	Versions versionsDTO `json:"versions"`
	Affected affectedDTO `json:"affected"`
}

type databaseDTO struct {
	Path            string    `json:"path"`
	LastCommit      string    `json:"last-commit"`
	LastUpdated     time.Time `json:"last-updated"`
	Fetched         bool      `json:"fetched"`
	AdvisoryCount   int       `json:"advisory-count"`
	DependencyCount int       `json:"dependency-count"`
	Lockfile        string    `json:"lockfile"`
}

type vulnerabilitiesDTO struct {
	Found bool         `json:"found"`
	Count int          `json:"count"`
	List  []findingDTO `json:"list"`
}

type reportDTO struct {
	Database        databaseDTO        `json:"database"`
	Vulnerabilities vulnerabilitiesDTO `json:"vulnerabilities"`
	Warnings        []findingDTO       `json:"warnings"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toFindings(groups []Group) []findingDTO {
	findings := make([]findingDTO, 0)
	for _, g := range groups {
		pkg := packageDTO{
			Name:    g.Dependency.Name,
			Version: g.Dependency.Version.String(),
			Source:  g.Dependency.Source,
			Purl:    g.Dependency.PackageURL(),
		}
		for _, a := range g.Advisories {
			findings = append(findings, findingDTO{
				Package:  pkg,
				Advisory: toAdvisoryDTO(a),
				Versions: versionsDTO{
					Patched:    utils.Map(a.Versions.Patched, advisory.VersionReq.String),
					Unaffected: utils.Map(a.Versions.Unaffected, advisory.VersionReq.String),
				},
				Affected: toAffectedDTO(a),
			})
		}
	}
	return findings
}

func toAdvisoryDTO(a *advisory.Record) advisoryDTO {
	dto := advisoryDTO{
		ID:          a.ID.String(),
		Package:     a.Package,
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		Aliases:     orEmpty(a.Aliases),
		Related:     orEmpty(a.Related),
		Categories:  orEmpty(a.Categories),
		Keywords:    orEmpty(a.Keywords),
		Kind:        string(a.Category),
	}
	if !a.Date.IsZero() {
		dto.Date = a.Date.Format("2006-01-02")
	}
	if a.Severity != nil {
		dto.Severity = &severityDTO{Score: a.Severity.Score, Rating: string(a.Severity.Rating), Vector: a.Severity.Vector}
	}
	if a.Withdrawn != nil {
		dto.Withdrawn = utils.Ptr(a.Withdrawn.Format("2006-01-02"))
	}
	return dto
}

func toAffectedDTO(a *advisory.Record) affectedDTO {
	functions := make(map[string][]string, len(a.Functions))
	for path, reqs := range a.Functions {
		functions[path] = utils.Map(reqs, advisory.VersionReq.String)
	}
	return affectedDTO{
		Arch:      utils.Map(a.Arch, func(arch advisory.Arch) string { return string(arch) }),
		OS:        utils.Map(a.OS, func(o advisory.OS) string { return string(o) }),
		Functions: functions,
	}
}

// RenderJSON writes the report as indented json. The layout is stable across
// runs with the same inputs.
func RenderJSON(w io.Writer, r Report) error {
	vulns := toFindings(r.Vulnerabilities)
	dto := reportDTO{
		Database: databaseDTO{
			Path:            r.Info.Database.MirrorPath,
			LastCommit:      r.Info.Database.HeadCommit,
			LastUpdated:     r.Info.Database.HeadCommitTimestamp.UTC(),
			Fetched:         r.Info.Database.Fetched,
			AdvisoryCount:   r.Summary.Advisories,
			DependencyCount: r.Summary.Dependencies,
			Lockfile:        r.Info.Lockfile,
		},
		Vulnerabilities: vulnerabilitiesDTO{
			Found: len(vulns) > 0,
			Count: len(vulns),
			List:  vulns,
		},
		Warnings: toFindings(r.Warnings),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dto)
}
