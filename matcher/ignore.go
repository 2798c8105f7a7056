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

package matcher

import (
	"slices"

	"github.com/l3montree-dev/lockaudit/advisory"
)

// IgnoreSet is an immutable set of advisory ids. The zero value is empty.
type IgnoreSet struct {
	ids map[advisory.ID]struct{}
}

func NewIgnoreSet(ids ...advisory.ID) IgnoreSet {
	s := IgnoreSet{ids: make(map[advisory.ID]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Union returns a new set, duplicates collapse.
func (s IgnoreSet) Union(other IgnoreSet) IgnoreSet {
	return NewIgnoreSet(slices.Concat(s.IDs(), other.IDs())...)
}

func (s IgnoreSet) Contains(id advisory.ID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s IgnoreSet) Len() int {
	return len(s.ids)
}

// IDs returns the ids in lexical order.
func (s IgnoreSet) IDs() []advisory.ID {
	ids := make([]advisory.ID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
