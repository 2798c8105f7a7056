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

// Package audit runs the whole pipeline: synchronize the advisory database,
// check its freshness, load the advisories, parse the lockfile, match and
// build the report.
package audit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/advisorydb"
	"github.com/l3montree-dev/lockaudit/config"
	"github.com/l3montree-dev/lockaudit/lockfile"
	"github.com/l3montree-dev/lockaudit/matcher"
	"github.com/l3montree-dev/lockaudit/report"
	"github.com/l3montree-dev/lockaudit/utils"
	"github.com/schollz/progressbar/v3"
)

type Auditor struct {
	cfg     config.Resolved
	fetcher advisorydb.Fetcher
	stdin   io.Reader
	now     func() time.Time
	// progress receives the spinner and the progress bar. nil disables both.
	progress io.Writer
}

type Option func(*Auditor)

func WithFetcher(f advisorydb.Fetcher) Option {
	return func(a *Auditor) { a.fetcher = f }
}

func WithStdin(r io.Reader) Option {
	return func(a *Auditor) { a.stdin = r }
}

func WithNow(now func() time.Time) Option {
	return func(a *Auditor) { a.now = now }
}

func WithProgressWriter(w io.Writer) Option {
	return func(a *Auditor) { a.progress = w }
}

func NewAuditor(cfg config.Resolved, opts ...Option) *Auditor {
	a := &Auditor{
		cfg:   cfg,
		stdin: os.Stdin,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetcher == nil {
		a.fetcher = advisorydb.NewGitFetcher(advisorydb.DefaultBranch, nil)
	}
	if cfg.Quiet || utils.RunsInCI() {
		a.progress = nil
	}
	return a
}

// Audit runs the pipeline. Every error is returned before the matcher runs,
// so there is never a partial report.
func (a *Auditor) Audit(ctx context.Context) (report.Report, error) {
	db, err := a.openDatabase(ctx)
	if err != nil {
		return report.Report{}, err
	}

	if err := db.CheckFreshness(advisorydb.DefaultStaleThreshold, a.cfg.AllowStale); err != nil {
		return report.Report{}, err
	}
	if age := db.Age(); age > advisorydb.DefaultStaleThreshold {
		slog.Warn("advisory database is stale", "path", a.cfg.DBPath, "days", int(age.Hours()/24))
	}

	records, err := a.loadRecords(db)
	if err != nil {
		return report.Report{}, err
	}
	slog.Info("loaded security advisories", "count", len(records), "path", a.cfg.DBPath, "commit", db.Metadata().HeadCommit)

	deps, err := lockfile.Load(a.cfg.LockfilePath, a.stdin)
	if err != nil {
		return report.Report{}, err
	}
	slog.Info("scanning lockfile for vulnerabilities", "path", a.lockfileName(), "dependencies", len(deps))

	res, err := matcher.New(db, a.cfg.Filters()).Match(ctx, deps)
	if err != nil {
		return report.Report{}, err
	}

	return report.Build(res, report.Info{
		Dependencies: len(deps),
		Advisories:   db.Len(),
		Database:     db.Metadata(),
		Lockfile:     a.lockfileName(),
	}), nil
}

func (a *Auditor) openDatabase(ctx context.Context) (*advisorydb.Database, error) {
	if a.cfg.Fetch && a.progress != nil {
		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(a.progress))
		s.Suffix = " Fetching advisory database from " + a.cfg.DBURL
		s.Start()
		defer s.Stop()
	}

	return advisorydb.Open(ctx, advisorydb.Options{
		Path:    a.cfg.DBPath,
		URL:     a.cfg.DBURL,
		Fetch:   a.cfg.Fetch,
		Fetcher: a.fetcher,
		Now:     a.now,
	})
}

func (a *Auditor) loadRecords(db *advisorydb.Database) ([]*advisory.Record, error) {
	if a.progress == nil {
		return db.LoadRecords(nil)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(a.progress),
		progressbar.OptionSetDescription("loading advisories"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish() // nolint:errcheck
	return db.LoadRecords(bar)
}

func (a *Auditor) lockfileName() string {
	if a.cfg.LockfilePath == lockfile.Stdin {
		return "<stdin>"
	}
	return a.cfg.LockfilePath
}
