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
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

type op string

const (
	opExact     op = "="
	opGreater   op = ">"
	opGreaterEq op = ">="
	opLess      op = "<"
	opLessEq    op = "<="
	opTilde     op = "~"
	opCaret     op = "^"
	opWildcard  op = "*"
)

// comparator is a single clause of a requirement, like ">= 1.2" or "^0.3.1".
// minor and patch are nil if the version was written partially.
type comparator struct {
	op    op
	major uint64
	minor *uint64
	patch *uint64
	pre   string
}

// bound is one end of an interval. A nil version means unbounded.
type bound struct {
	v         *semver.Version
	inclusive bool
}

// VersionReq is a cargo style version requirement. All comma separated
// comparators have to match. Every comparator describes an interval, so the
// whole requirement is kept as the intersection of those intervals.
type VersionReq struct {
	raw   string
	lower bound
	upper bound
}

// MustParseVersionReq is like ParseVersionReq but panics on error.
func MustParseVersionReq(s string) VersionReq {
	r, err := ParseVersionReq(s)
	if err != nil {
		panic(err)
	}
	return r
}

func ParseVersionReq(s string) (VersionReq, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return VersionReq{}, fmt.Errorf("empty version requirement")
	}

	req := VersionReq{raw: raw}
	for _, part := range strings.Split(raw, ",") {
		c, err := parseComparator(strings.TrimSpace(part))
		if err != nil {
			return VersionReq{}, fmt.Errorf("invalid version requirement %q: %w", raw, err)
		}
		lo, hi := c.interval()
		req.lower = tighterLower(req.lower, lo)
		req.upper = tighterUpper(req.upper, hi)
	}

	if req.isEmpty() {
		return VersionReq{}, fmt.Errorf("version requirement %q can never match", raw)
	}
	return req, nil
}

func parseComparator(s string) (comparator, error) {
	if s == "" {
		return comparator{}, fmt.Errorf("empty comparator")
	}

	c := comparator{}
	bare := false
	switch {
	case strings.HasPrefix(s, ">="):
		c.op, s = opGreaterEq, s[2:]
	case strings.HasPrefix(s, "<="):
		c.op, s = opLessEq, s[2:]
	case strings.HasPrefix(s, "=="):
		c.op, s = opExact, s[2:]
	case strings.HasPrefix(s, "="):
		c.op, s = opExact, s[1:]
	case strings.HasPrefix(s, ">"):
		c.op, s = opGreater, s[1:]
	case strings.HasPrefix(s, "<"):
		c.op, s = opLess, s[1:]
	case strings.HasPrefix(s, "~"):
		c.op, s = opTilde, s[1:]
	case strings.HasPrefix(s, "^"):
		c.op, s = opCaret, s[1:]
	default:
		c.op, bare = opCaret, true
	}

	s = strings.TrimSpace(s)
	if isWildcard(s) {
		return comparator{op: opWildcard}, nil
	}

	// build metadata never takes part in precedence
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		c.pre = s[i+1:]
		s = s[:i]
		if c.pre == "" {
			return comparator{}, fmt.Errorf("empty pre-release in %q", s)
		}
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return comparator{}, fmt.Errorf("too many version segments in %q", s)
	}

	wildcard := false
	for i, p := range parts {
		if isWildcard(p) {
			wildcard = true
			continue
		}
		if wildcard {
			return comparator{}, fmt.Errorf("version segment %q after wildcard", p)
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return comparator{}, fmt.Errorf("invalid version segment %q", p)
		}
		switch i {
		case 0:
			c.major = n
		case 1:
			c.minor = &n
		case 2:
			c.patch = &n
		}
	}

	// "1.2.*" means the same as "=1.2"
	if wildcard && bare {
		c.op = opExact
	}

	if c.pre != "" {
		if c.patch == nil {
			return comparator{}, fmt.Errorf("pre-release %q requires a full version", c.pre)
		}
		if _, err := semver.StrictNewVersion(fmt.Sprintf("%d.%d.%d-%s", c.major, *c.minor, *c.patch, c.pre)); err != nil {
			return comparator{}, err
		}
	}

	return c, nil
}

func isWildcard(s string) bool {
	return s == "*" || s == "x" || s == "X"
}

func incl(v *semver.Version) bound { return bound{v: v, inclusive: true} }
func excl(v *semver.Version) bound { return bound{v: v, inclusive: false} }

func deref(u *uint64) uint64 {
	if u == nil {
		return 0
	}
	return *u
}

func (c comparator) interval() (bound, bound) {
	if c.op == opWildcard {
		return bound{}, bound{}
	}

	minor, patch := deref(c.minor), deref(c.patch)
	low := semver.New(c.major, minor, patch, c.pre, "")

	// next is the smallest version above everything the partial version covers
	var next *semver.Version
	switch {
	case c.minor == nil:
		next = semver.New(c.major+1, 0, 0, "", "")
	case c.patch == nil:
		next = semver.New(c.major, minor+1, 0, "", "")
	}

	switch c.op {
	case opExact:
		if next == nil {
			return incl(low), incl(low)
		}
		return incl(low), excl(next)
	case opGreater:
		if next == nil {
			return excl(low), bound{}
		}
		return incl(next), bound{}
	case opGreaterEq:
		return incl(low), bound{}
	case opLess:
		return bound{}, excl(low)
	case opLessEq:
		if next == nil {
			return bound{}, incl(low)
		}
		return bound{}, excl(next)
	case opTilde:
		if c.minor == nil {
			return incl(low), excl(semver.New(c.major+1, 0, 0, "", ""))
		}
		return incl(low), excl(semver.New(c.major, minor+1, 0, "", ""))
	default: // caret
		switch {
		case c.major > 0 || c.minor == nil:
			return incl(low), excl(semver.New(c.major+1, 0, 0, "", ""))
		case minor > 0 || c.patch == nil:
			return incl(low), excl(semver.New(0, minor+1, 0, "", ""))
		default:
			return incl(low), excl(semver.New(0, 0, patch+1, "", ""))
		}
	}
}

func tighterLower(a, b bound) bound {
	if a.v == nil {
		return b
	}
	if b.v == nil {
		return a
	}
	switch c := a.v.Compare(b.v); {
	case c > 0:
		return a
	case c < 0:
		return b
	}
	if !a.inclusive {
		return a
	}
	return b
}

func tighterUpper(a, b bound) bound {
	if a.v == nil {
		return b
	}
	if b.v == nil {
		return a
	}
	switch c := a.v.Compare(b.v); {
	case c < 0:
		return a
	case c > 0:
		return b
	}
	if !a.inclusive {
		return a
	}
	return b
}

func (r VersionReq) isEmpty() bool {
	if r.lower.v == nil || r.upper.v == nil {
		return false
	}
	c := r.lower.v.Compare(r.upper.v)
	return c > 0 || (c == 0 && !(r.lower.inclusive && r.upper.inclusive))
}

// Matches reports whether v lies inside the requirement. Comparison follows
// semver precedence, pre-releases sort before their release.
func (r VersionReq) Matches(v *semver.Version) bool {
	if v == nil {
		return false
	}
	if r.lower.v != nil {
		c := v.Compare(r.lower.v)
		if c < 0 || (c == 0 && !r.lower.inclusive) {
			return false
		}
	}
	if r.upper.v != nil {
		c := v.Compare(r.upper.v)
		if c > 0 || (c == 0 && !r.upper.inclusive) {
			return false
		}
	}
	return true
}

// MatchesAll is true for requirements without any bound, e.g. "*" or ">= 0".
func (r VersionReq) MatchesAll() bool {
	if r.upper.v != nil {
		return false
	}
	return r.lower.v == nil || (r.lower.inclusive && r.lower.v.Equal(semver.New(0, 0, 0, "", "")))
}

func (r VersionReq) String() string {
	return r.raw
}

func (r VersionReq) MarshalText() ([]byte, error) {
	return []byte(r.raw), nil
}

func (r *VersionReq) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionReq(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
