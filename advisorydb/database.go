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

// Package advisorydb manages the local git mirror of the advisory database:
// synchronization, freshness and loading the records into an index.
package advisorydb

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/pkg/errors"
)

const (
	DefaultURL            = "https://github.com/RustSec/advisory-db.git"
	DefaultStaleThreshold = 90 * 24 * time.Hour
)

// directories inside the mirror which contain advisories
var advisoryDirs = []string{"crates", "rust"}

type Options struct {
	Path string
	URL  string
	// Fetch synchronizes the mirror before opening it.
	Fetch   bool
	Fetcher Fetcher
	Now     func() time.Time
}

type Metadata struct {
	MirrorPath          string
	HeadCommit          string
	HeadCommitTimestamp time.Time
	Fetched             bool
}

// Progress is advanced once per advisory file. *progressbar.ProgressBar
// satisfies it.
type Progress interface {
	ChangeMax(max int)
	Add(num int) error
}

type Database struct {
	meta      Metadata
	now       func() time.Time
	byPackage map[string][]*advisory.Record
	byID      map[advisory.ID]*advisory.Record
}

// Open synchronizes the mirror if opts.Fetch is set and reads its HEAD. Without
// fetching nothing is written and a missing mirror is ErrNotFound.
func Open(ctx context.Context, opts Options) (*Database, error) {
	if opts.Path == "" {
		return nil, newError(KindNotFound, opts.Path, errors.New("no database path given"))
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewGitFetcher(DefaultBranch, nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Fetch {
		if err := fetch(ctx, opts); err != nil {
			return nil, err
		}
	} else {
		if isLocked(opts.Path) {
			return nil, lockedError(opts.Path)
		}
		if _, err := os.Stat(opts.Path); err != nil {
			if os.IsNotExist(err) {
				return nil, newError(KindNotFound, opts.Path, nil)
			}
			return nil, newError(KindCorrupt, opts.Path, err)
		}
	}

	head, err := opts.Fetcher.Head(opts.Path)
	if err != nil {
		return nil, newError(KindCorrupt, opts.Path, err)
	}

	return &Database{
		meta: Metadata{
			MirrorPath:          opts.Path,
			HeadCommit:          head.Hash,
			HeadCommitTimestamp: head.Time,
			Fetched:             opts.Fetch,
		},
		now: opts.Now,
	}, nil
}

func fetch(ctx context.Context, opts Options) error {
	l, err := acquireLock(opts.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.release(); err != nil {
			slog.Warn("could not release advisory database lock", "path", l.path, "err", err)
		}
	}()

	slog.Debug("fetching advisory database", "url", opts.URL, "path", opts.Path)
	if err := opts.Fetcher.Fetch(ctx, opts.Path, opts.URL); err != nil {
		return newError(KindFetchFailed, opts.Path, err)
	}
	return nil
}

// Age is the time since the HEAD commit of the mirror.
func (db *Database) Age() time.Duration {
	return db.now().Sub(db.meta.HeadCommitTimestamp)
}

// CheckFreshness returns ErrStale if the mirror is older than threshold,
// unless allowStale is set.
func (db *Database) CheckFreshness(threshold time.Duration, allowStale bool) error {
	age := db.Age()
	if age <= threshold || allowStale {
		return nil
	}
	return &Error{Kind: KindStale, Path: db.meta.MirrorPath, Age: age}
}

func (db *Database) Metadata() Metadata {
	return db.meta
}

// LoadRecords parses every advisory of the mirror. Malformed files and
// duplicate ids are skipped with a warning. A mirror without any valid
// advisory is ErrCorrupt.
func (db *Database) LoadRecords(progress Progress) ([]*advisory.Record, error) {
	files, err := db.advisoryFiles()
	if err != nil {
		return nil, newError(KindCorrupt, db.meta.MirrorPath, err)
	}
	if progress != nil {
		progress.ChangeMax(len(files))
	}

	records := make([]*advisory.Record, 0, len(files))
	byID := make(map[advisory.ID]*advisory.Record, len(files))
	byPackage := make(map[string][]*advisory.Record)

	for _, rel := range files {
		if progress != nil {
			progress.Add(1) // nolint:errcheck
		}

		data, err := os.ReadFile(filepath.Join(db.meta.MirrorPath, rel))
		if err != nil {
			slog.Warn("could not read advisory", "path", rel, "err", err)
			continue
		}
		r, err := advisory.Parse(rel, data)
		if err != nil {
			slog.Warn("skipping malformed advisory", "path", rel, "err", err)
			continue
		}
		if existing, ok := byID[r.ID]; ok {
			slog.Warn("skipping duplicate advisory", "id", r.ID, "path", rel, "first", existing.Path)
			continue
		}

		byID[r.ID] = r
		byPackage[r.Package] = append(byPackage[r.Package], r)
		records = append(records, r)
	}

	if len(records) == 0 {
		return nil, newError(KindCorrupt, db.meta.MirrorPath, errors.New("no valid advisories found"))
	}

	for _, rs := range byPackage {
		slices.SortFunc(rs, func(a, b *advisory.Record) int {
			return strings.Compare(string(a.ID), string(b.ID))
		})
	}

	db.byID = byID
	db.byPackage = byPackage
	slog.Debug("loaded advisories", "count", len(records), "packages", len(byPackage))
	return records, nil
}

// advisoryFiles returns the advisory files relative to the mirror root in
// lexical order.
func (db *Database) advisoryFiles() ([]string, error) {
	var files []string
	for _, dir := range advisoryDirs {
		root := filepath.Join(db.meta.MirrorPath, dir)
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".md", ".toml":
				rel, err := filepath.Rel(db.meta.MirrorPath, path)
				if err != nil {
					return err
				}
				files = append(files, filepath.ToSlash(rel))
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "could not walk %s", root)
		}
	}
	return files, nil
}

// RecordsFor returns the advisories of a package sorted by id.
func (db *Database) RecordsFor(pkg string) []*advisory.Record {
	return db.byPackage[pkg]
}

func (db *Database) Get(id advisory.ID) (*advisory.Record, bool) {
	r, ok := db.byID[id]
	return r, ok
}

func (db *Database) Len() int {
	return len(db.byID)
}
