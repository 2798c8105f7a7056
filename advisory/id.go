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
	"fmt"
	"regexp"
	"strings"
)

// ID identifies an advisory. It is unique within a database.
type ID string

var (
	rustsecIDRe = regexp.MustCompile(`^RUSTSEC-\d{4}-\d{4,}$`)
	cveIDRe     = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)
	ghsaIDRe    = regexp.MustCompile(`^GHSA(-[23456789cfghjmpqrvwx]{4}){3}$`)
	opaqueIDRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)
)

// ParseID validates an advisory identifier.
// Well known prefixes (RUSTSEC, CVE, GHSA) have to follow their format,
// everything else is accepted as an opaque token.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("advisory id must not be empty")
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "RUSTSEC-"):
		if !rustsecIDRe.MatchString(upper) {
			return "", fmt.Errorf("malformed RUSTSEC id %q (expected RUSTSEC-YYYY-NNNN)", s)
		}
		return ID(upper), nil
	case strings.HasPrefix(upper, "CVE-"):
		if !cveIDRe.MatchString(upper) {
			return "", fmt.Errorf("malformed CVE id %q (expected CVE-YYYY-NNNN)", s)
		}
		return ID(upper), nil
	case strings.HasPrefix(upper, "GHSA-"):
		// GHSA ids are case sensitive lower-case after the prefix
		if !ghsaIDRe.MatchString("GHSA" + s[4:]) {
			return "", fmt.Errorf("malformed GHSA id %q (expected GHSA-xxxx-xxxx-xxxx)", s)
		}
		return ID("GHSA" + s[4:]), nil
	}

	if !opaqueIDRe.MatchString(s) {
		return "", fmt.Errorf("malformed advisory id %q", s)
	}
	return ID(s), nil
}

func (id ID) String() string {
	return string(id)
}

// Kind returns the id prefix like "RUSTSEC" or "CVE". Opaque ids return "OTHER".
func (id ID) Kind() string {
	for _, k := range []string{"RUSTSEC", "CVE", "GHSA"} {
		if strings.HasPrefix(string(id), k+"-") {
			return k
		}
	}
	return "OTHER"
}
