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
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/advisorydb"
	"github.com/l3montree-dev/lockaudit/lockfile"
	"github.com/l3montree-dev/lockaudit/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cmpOpts = cmp.Options{
	cmp.Comparer(func(a, b *semver.Version) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b *advisory.Record) bool { return a == b }),
}

func dep(name, version string) lockfile.Dependency {
	return lockfile.Dependency{Name: name, Version: semver.MustParse(version), Source: "registry+https://github.com/rust-lang/crates.io-index"}
}

func record(id, pkg string) *advisory.Record {
	return &advisory.Record{
		ID:       advisory.ID(id),
		Package:  pkg,
		Title:    "problem in " + pkg,
		Date:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Category: advisory.CategoryVulnerability,
		Versions: advisory.AffectedRange{
			Affected: []advisory.VersionReq{advisory.MustParseVersionReq("*")},
			Patched:  []advisory.VersionReq{advisory.MustParseVersionReq(">= 9.0.0")},
		},
	}
}

var (
	advFoo1 = record("RUSTSEC-2024-0001", "foo")
	advFoo2 = record("RUSTSEC-2024-0002", "foo")
	advBar  = record("RUSTSEC-2024-0003", "bar")
	info    = Info{
		Dependencies: 3,
		Advisories:   3,
		Database: advisorydb.Metadata{
			MirrorPath:          "/tmp/advisory-db",
			HeadCommit:          "abc",
			HeadCommitTimestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		Lockfile: "Cargo.lock",
	}
)

func matches() []matcher.Match {
	return []matcher.Match{
		{Dependency: dep("foo", "1.2.0"), Advisory: advFoo2},
		{Dependency: dep("bar", "0.1.0"), Advisory: advBar},
		{Dependency: dep("foo", "1.2.0"), Advisory: advFoo1},
		{Dependency: dep("foo", "1.0.0"), Advisory: advFoo1},
	}
}

func TestBuild(t *testing.T) {
	t.Run("should group by dependency and order groups and advisories", func(t *testing.T) {
		r := Build(matcher.Result{Vulnerabilities: matches()}, info)

		require.Len(t, r.Vulnerabilities, 3)
		assert.Equal(t, "bar@0.1.0", r.Vulnerabilities[0].Dependency.Key())
		assert.Equal(t, "foo@1.0.0", r.Vulnerabilities[1].Dependency.Key())
		assert.Equal(t, "foo@1.2.0", r.Vulnerabilities[2].Dependency.Key())
		assert.Equal(t, []*advisory.Record{advFoo1, advFoo2}, r.Vulnerabilities[2].Advisories)

		assert.Equal(t, Summary{
			Dependencies:           3,
			Advisories:             3,
			Vulnerabilities:        4,
			VulnerableDependencies: 3,
			Warnings:               0,
		}, r.Summary)
		assert.Equal(t, ExitVulnerabilitiesFound, r.ExitDisposition())
	})

	t.Run("should be independent of the input order", func(t *testing.T) {
		forward := matches()
		backward := matches()
		for i, j := 0, len(backward)-1; i < j; i, j = i+1, j-1 {
			backward[i], backward[j] = backward[j], backward[i]
		}

		a := Build(matcher.Result{Vulnerabilities: forward}, info)
		b := Build(matcher.Result{Vulnerabilities: backward}, info)
		if diff := cmp.Diff(a, b, cmpOpts); diff != "" {
			t.Errorf("reports differ (-forward +backward):\n%s", diff)
		}

		var bufA, bufB bytes.Buffer
		require.NoError(t, RenderJSON(&bufA, a))
		require.NoError(t, RenderJSON(&bufB, b))
		assert.Equal(t, bufA.String(), bufB.String())
	})

	t.Run("should exit clean if only warnings were found", func(t *testing.T) {
		r := Build(matcher.Result{Warnings: matches()}, info)
		assert.Empty(t, r.Vulnerabilities)
		assert.Len(t, r.Warnings, 3)
		assert.Equal(t, ExitClean, r.ExitDisposition())
	})

	t.Run("should exit clean without matches", func(t *testing.T) {
		r := Build(matcher.Result{}, info)
		assert.Equal(t, ExitClean, r.ExitDisposition())
	})
}

func TestRenderJSON(t *testing.T) {
	t.Run("should contain purls and patched versions", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderJSON(&buf, Build(matcher.Result{Vulnerabilities: matches()[:1]}, info)))

		var out reportDTO
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.True(t, out.Vulnerabilities.Found)
		require.Len(t, out.Vulnerabilities.List, 1)

		finding := out.Vulnerabilities.List[0]
		assert.Equal(t, "pkg:cargo/foo@1.2.0", finding.Package.Purl)
		assert.Equal(t, "RUSTSEC-2024-0002", finding.Advisory.ID)
		assert.Equal(t, "2024-02-01", finding.Advisory.Date)
		assert.Equal(t, []string{">= 9.0.0"}, finding.Versions.Patched)
		assert.Equal(t, []string{}, finding.Versions.Unaffected)
		assert.Equal(t, []findingDTO{}, out.Warnings)
		assert.Equal(t, "Cargo.lock", out.Database.Lockfile)
		assert.Equal(t, affectedDTO{Arch: []string{}, OS: []string{}, Functions: map[string][]string{}}, finding.Affected)
	})

	t.Run("should list affected platforms and functions", func(t *testing.T) {
		adv := record("RUSTSEC-2024-0004", "foo")
		adv.OS = []advisory.OS{"windows"}
		adv.Functions = map[string][]advisory.VersionReq{
			"foo::decode": {advisory.MustParseVersionReq("< 9.0.0")},
		}

		var buf bytes.Buffer
		require.NoError(t, RenderJSON(&buf, Build(matcher.Result{Vulnerabilities: []matcher.Match{{Dependency: dep("foo", "1.2.0"), Advisory: adv}}}, info)))

		var out reportDTO
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		require.Len(t, out.Vulnerabilities.List, 1)
		assert.Equal(t, affectedDTO{
			Arch:      []string{},
			OS:        []string{"windows"},
			Functions: map[string][]string{"foo::decode": {"< 9.0.0"}},
		}, out.Vulnerabilities.List[0].Affected)
	})
}

func TestRenderTable(t *testing.T) {
	t.Run("should render findings without colors", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderTable(&buf, Build(matcher.Result{Vulnerabilities: matches()}, info), TableOptions{}))

		out := buf.String()
		assert.Contains(t, out, "RUSTSEC-2024-0001")
		assert.Contains(t, out, "upgrade to >= 9.0.0")
		assert.Contains(t, out, "error: 4 vulnerabilities found in 3 of 3 dependencies")
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("should report a clean run", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderTable(&buf, Build(matcher.Result{}, info), TableOptions{}))
		assert.Equal(t, "no vulnerabilities found in 3 dependencies (3 advisories)\n", buf.String())
	})
}
