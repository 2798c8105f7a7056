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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// lock is an exclusive marker file next to the mirror. It is only held while
// the mirror is written.
type lock struct {
	path string
}

func lockPath(dbPath string) string {
	return filepath.Clean(dbPath) + ".lock"
}

// acquireLock never blocks. An existing lock file is reported as ErrLocked.
func acquireLock(dbPath string) (*lock, error) {
	p := lockPath(dbPath)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, newError(KindFetchFailed, dbPath, errors.Wrap(err, "could not create database directory"))
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, lockedError(dbPath)
		}
		return nil, newError(KindFetchFailed, dbPath, errors.Wrap(err, "could not create lock file"))
	}
	defer f.Close()

	fmt.Fprintf(f, "%d\n", os.Getpid()) // nolint:errcheck
	return &lock{path: p}, nil
}

func (l *lock) release() error {
	return os.Remove(l.path)
}

// lockedError names the lock file and the pid recorded in it. A crashed fetch
// leaves the file behind, it has to be removed by hand.
func lockedError(dbPath string) error {
	p := lockPath(dbPath)
	holder := "an unknown process"
	if data, err := os.ReadFile(p); err == nil {
		if pid := strings.TrimSpace(string(data)); pid != "" {
			holder = "pid " + pid
		}
	}
	return newError(KindLocked, dbPath, fmt.Errorf("lock file %s is held by %s, remove it if no other lockaudit process is running", p, holder))
}

func isLocked(dbPath string) bool {
	_, err := os.Stat(lockPath(dbPath))
	return err == nil
}
