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
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

// DefaultBranch is the branch the advisory database publishes to.
const DefaultBranch = "main"

type Commit struct {
	Hash string
	Time time.Time
}

// Fetcher synchronizes the local mirror and reads its HEAD.
type Fetcher interface {
	Fetch(ctx context.Context, path, url string) error
	Head(path string) (Commit, error)
}

type GitFetcher struct {
	branch   string
	progress io.Writer
}

// NewGitFetcher returns a Fetcher backed by go-git. progress may be nil.
func NewGitFetcher(branch string, progress io.Writer) *GitFetcher {
	if branch == "" {
		branch = DefaultBranch
	}
	return &GitFetcher{branch: branch, progress: progress}
}

// Fetch clones into path if there is no mirror yet. Otherwise it fetches the
// branch from url and hard resets the worktree to it.
func (g *GitFetcher) Fetch(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return g.clone(ctx, path, url)
	}

	r, err := git.PlainOpen(path)
	if err != nil {
		return errors.Wrap(err, "could not open repository")
	}

	remoteRef := plumbing.NewRemoteReferenceName("origin", g.branch)
	err = r.FetchContext(ctx, &git.FetchOptions{
		RemoteURL: url,
		RefSpecs: []config.RefSpec{
			config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(g.branch), remoteRef)),
		},
		Force:    true,
		Progress: g.progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrap(err, "could not fetch repository")
	}

	ref, err := r.Reference(remoteRef, true)
	if err != nil {
		return errors.Wrapf(err, "could not resolve %s", remoteRef)
	}

	w, err := r.Worktree()
	if err != nil {
		return errors.Wrap(err, "could not get worktree")
	}
	err = w.Reset(&git.ResetOptions{
		Commit: ref.Hash(),
		Mode:   git.HardReset,
	})
	if err != nil {
		return errors.Wrap(err, "could not reset worktree")
	}
	return nil
}

func (g *GitFetcher) clone(ctx context.Context, path, url string) error {
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(g.branch),
		SingleBranch:  true,
		Progress:      g.progress,
	})
	if err != nil {
		// do not leave a half cloned mirror behind
		os.RemoveAll(path) // nolint:errcheck
		return errors.Wrap(err, "could not clone repository")
	}
	return nil
}

func (g *GitFetcher) Head(path string) (Commit, error) {
	r, err := git.PlainOpen(path)
	if err != nil {
		return Commit{}, errors.Wrap(err, "could not open repository")
	}
	ref, err := r.Head()
	if err != nil {
		return Commit{}, errors.Wrap(err, "could not resolve HEAD")
	}
	commit, err := r.CommitObject(ref.Hash())
	if err != nil {
		return Commit{}, errors.Wrap(err, "could not read HEAD commit")
	}
	return Commit{
		Hash: commit.Hash.String(),
		Time: commit.Committer.When,
	}, nil
}
