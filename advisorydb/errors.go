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

package advisorydb

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindFetchFailed
	KindStale
	KindCorrupt
	KindLocked
)

var (
	ErrNotFound    = errors.New("advisory database not found")
	ErrFetchFailed = errors.New("could not fetch advisory database")
	ErrStale       = errors.New("advisory database is stale")
	ErrCorrupt     = errors.New("advisory database is corrupt")
	ErrLocked      = errors.New("advisory database is locked")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindFetchFailed:
		return ErrFetchFailed
	case KindStale:
		return ErrStale
	case KindCorrupt:
		return ErrCorrupt
	case KindLocked:
		return ErrLocked
	}
	panic(fmt.Sprintf("unknown advisory database error kind %d", k))
}

// Error is returned by every fallible database operation. Use errors.Is with
// the exported sentinels to check the kind.
type Error struct {
	Kind Kind
	Path string
	// Age is set for stale databases
	Age time.Duration
	Err error
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Kind.sentinel(), e.Path)
	if e.Kind == KindStale {
		msg = fmt.Sprintf("%s: last commit is %d days old", msg, int(e.Age.Hours()/24))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Err
}
