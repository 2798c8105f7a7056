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

package advisory

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

type rawAdvisory struct {
	Advisory struct {
		ID            string   `toml:"id"`
		Package       string   `toml:"package"`
		Title         string   `toml:"title"`
		Description   string   `toml:"description"`
		Date          string   `toml:"date"`
		URL           string   `toml:"url"`
		Aliases       []string `toml:"aliases"`
		Related       []string `toml:"related"`
		Keywords      []string `toml:"keywords"`
		Categories    []string `toml:"categories"`
		CVSS          string   `toml:"cvss"`
		Informational string   `toml:"informational"`
		Withdrawn     string   `toml:"withdrawn"`
	} `toml:"advisory"`
	Affected struct {
		Arch      []string                `toml:"arch"`
		OS        []string                `toml:"os"`
		Functions map[string][]VersionReq `toml:"functions"`
	} `toml:"affected"`
	// pointers to tell an absent key from an empty list
	Versions struct {
		Patched    *[]VersionReq `toml:"patched"`
		Unaffected *[]VersionReq `toml:"unaffected"`
		Affected   *[]VersionReq `toml:"affected"`
	} `toml:"versions"`
}

// Parse dispatches on the file extension. ".md" files carry the metadata in
// a fenced toml block followed by a markdown body, ".toml" files are plain
// metadata. path is stored on the record.
func Parse(path string, data []byte) (*Record, error) {
	var (
		r   *Record
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		r, err = ParseMarkdown(data)
	case ".toml":
		r, err = ParseTOML(data)
	default:
		return nil, fmt.Errorf("unsupported advisory file %q", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse advisory %s", path)
	}
	r.Path = path
	return r, nil
}

// ParseMarkdown parses the markdown advisory format. The title is the first
// "# " heading of the body, the rest of the body is the description.
func ParseMarkdown(data []byte) (*Record, error) {
	frontMatter, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}
	r, err := ParseTOML(frontMatter)
	if err != nil {
		return nil, err
	}

	title, description := splitBody(body)
	if title != "" {
		r.Title = title
	}
	if description != "" {
		r.Description = description
	}
	return r, nil
}

func splitFrontMatter(data []byte) ([]byte, string, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimLeft(content, " \t\n")

	header, rest, ok := strings.Cut(content, "\n")
	if !ok || strings.TrimSpace(header) != "```toml" {
		return nil, "", fmt.Errorf("missing ```toml front matter")
	}

	end := strings.Index(rest, "\n```")
	if strings.HasPrefix(rest, "```") {
		end = 0
	}
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated ```toml front matter")
	}

	frontMatter := rest[:end]
	body := rest[end:]
	body = strings.TrimPrefix(strings.TrimPrefix(body, "\n"), "```")
	return []byte(frontMatter), body, nil
}

func splitBody(body string) (string, string) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "# ") {
		return "", body
	}
	title, rest, _ := strings.Cut(body, "\n")
	return strings.TrimSpace(strings.TrimPrefix(title, "# ")), strings.TrimSpace(rest)
}

// ParseTOML parses plain toml advisory metadata.
func ParseTOML(data []byte) (*Record, error) {
	var raw rawAdvisory
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "invalid toml")
	}
	return raw.toRecord()
}

func (raw rawAdvisory) toRecord() (*Record, error) {
	a := raw.Advisory

	id, err := ParseID(a.ID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Package) == "" {
		return nil, fmt.Errorf("advisory %s has no package", id)
	}

	r := &Record{
		ID:          id,
		Package:     strings.TrimSpace(a.Package),
		Title:       strings.TrimSpace(a.Title),
		Description: strings.TrimSpace(a.Description),
		URL:         a.URL,
		Aliases:     a.Aliases,
		Related:     a.Related,
		Keywords:    a.Keywords,
		Categories:  a.Categories,
		CVSS:        a.CVSS,
		Functions:   raw.Affected.Functions,
	}

	if a.Date != "" {
		r.Date, err = time.Parse(dateLayout, a.Date)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid date in %s", id)
		}
	}

	if a.Withdrawn != "" {
		withdrawn, err := time.Parse(dateLayout, a.Withdrawn)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid withdrawn date in %s", id)
		}
		r.Withdrawn = &withdrawn
	}

	if a.CVSS != "" {
		r.Severity, err = ParseSeverity(a.CVSS)
		if err != nil {
			return nil, err
		}
	}

	r.Category, err = parseCategory(a.Informational)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid informational in %s", id)
	}

	// platform names inside advisories are kept as written, an empty list
	// is the same as no list
	if len(raw.Affected.Arch) > 0 {
		r.Arch = make([]Arch, 0, len(raw.Affected.Arch))
		for _, s := range raw.Affected.Arch {
			r.Arch = append(r.Arch, Arch(strings.ToLower(s)))
		}
	}
	if len(raw.Affected.OS) > 0 {
		r.OS = make([]OS, 0, len(raw.Affected.OS))
		for _, s := range raw.Affected.OS {
			o := OS(strings.ToLower(s))
			if o == "darwin" {
				o = "macos"
			}
			r.OS = append(r.OS, o)
		}
	}

	r.Versions, err = raw.versions()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid versions in %s", id)
	}
	return r, nil
}

func (raw rawAdvisory) versions() (AffectedRange, error) {
	v := raw.Versions
	if v.Patched == nil && v.Unaffected == nil && v.Affected == nil {
		return AffectedRange{}, fmt.Errorf("no [versions] bounds")
	}

	rng := AffectedRange{}
	if v.Patched != nil {
		rng.Patched = *v.Patched
	}
	if v.Unaffected != nil {
		rng.Unaffected = *v.Unaffected
	}
	if v.Affected != nil {
		rng.Affected = *v.Affected
	} else {
		// everything neither patched nor unaffected is affected
		rng.Affected = []VersionReq{MustParseVersionReq("*")}
	}

	if err := rng.Validate(); err != nil {
		return AffectedRange{}, err
	}
	return rng, nil
}

func parseCategory(informational string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(informational)) {
	case "":
		return CategoryVulnerability, nil
	case "unmaintained":
		return CategoryUnmaintained, nil
	case "notice":
		return CategoryNotice, nil
	case "unsound":
		return CategoryUnsound, nil
	}
	return "", fmt.Errorf("unknown informational kind %q", informational)
}
