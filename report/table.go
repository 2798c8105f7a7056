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
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/utils"
)

type TableOptions struct {
	Color bool
}

type painter struct {
	enabled bool
}

func (p painter) paint(c text.Color, s string) string {
	if !p.enabled {
		return s
	}
	return c.Sprint(s)
}

// RenderTable writes one table for vulnerabilities, one for warnings and a
// closing summary line.
func RenderTable(w io.Writer, r Report, opts TableOptions) error {
	p := painter{enabled: opts.Color}

	if len(r.Vulnerabilities) > 0 {
		tw := table.NewWriter()
		tw.SetAllowedRowLength(160)
		tw.AppendHeader(table.Row{"Crate", "Version", "ID", "Severity", "Title", "Date", "Solution"})
		for _, g := range r.Vulnerabilities {
			for _, a := range g.Advisories {
				tw.AppendRow(table.Row{
					g.Dependency.Name,
					g.Dependency.Version.String(),
					p.paint(text.FgRed, a.ID.String()),
					p.paint(ratingColor(a.Severity), severityText(a.Severity)),
					text.WrapSoft(a.Title, 50),
					formatDate(a),
					solution(a),
				})
			}
			tw.AppendSeparator()
		}
		if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
			return err
		}
	}

	if len(r.Warnings) > 0 {
		tw := table.NewWriter()
		tw.SetAllowedRowLength(160)
		tw.AppendHeader(table.Row{"Crate", "Version", "Kind", "ID", "Title", "URL"})
		for _, g := range r.Warnings {
			for _, a := range g.Advisories {
				tw.AppendRow(table.Row{
					g.Dependency.Name,
					g.Dependency.Version.String(),
					p.paint(text.FgYellow, string(a.Category)),
					a.ID.String(),
					text.WrapSoft(a.Title, 50),
					p.paint(text.FgBlue, a.URL),
				})
			}
		}
		if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, summaryLine(r, p))
	return err
}

func summaryLine(r Report, p painter) string {
	s := r.Summary
	parts := make([]string, 0, 2)
	if s.Vulnerabilities > 0 {
		parts = append(parts, p.paint(text.FgRed, fmt.Sprintf("error: %d %s found in %d of %d dependencies", s.Vulnerabilities, plural(s.Vulnerabilities, "vulnerability", "vulnerabilities"), s.VulnerableDependencies, s.Dependencies)))
	}
	if s.Warnings > 0 {
		parts = append(parts, p.paint(text.FgYellow, fmt.Sprintf("warning: %d allowed %s found", s.Warnings, plural(s.Warnings, "warning", "warnings"))))
	}
	if len(parts) == 0 {
		return p.paint(text.FgGreen, fmt.Sprintf("no vulnerabilities found in %d dependencies (%d advisories)", s.Dependencies, s.Advisories))
	}
	return strings.Join(parts, "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func solution(a *advisory.Record) string {
	if len(a.Versions.Patched) == 0 {
		return "no fixed upgrade is available"
	}
	return "upgrade to " + strings.Join(utils.Map(a.Versions.Patched, advisory.VersionReq.String), " or ")
}

func severityText(s *advisory.Severity) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f (%s)", s.Score, s.Rating)
}

func ratingColor(s *advisory.Severity) text.Color {
	if s == nil {
		return text.Reset
	}
	switch s.Rating {
	case advisory.RatingCritical, advisory.RatingHigh:
		return text.FgHiRed
	case advisory.RatingMedium:
		return text.FgYellow
	default:
		return text.FgGreen
	}
}

func formatDate(a *advisory.Record) string {
	if a.Date.IsZero() {
		return "-"
	}
	return a.Date.Format("2006-01-02")
}
