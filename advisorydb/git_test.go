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
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initMirror creates a git repository containing files with a single commit at when.
func initMirror(t *testing.T, files map[string]string, when time.Time) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch)},
	})
	require.NoError(t, err)

	commitFiles(t, dir, files, when)
	return dir
}

// commitFiles writes files into the repository at dir and commits them at when.
func commitFiles(t *testing.T, dir string, files map[string]string, when time.Time) string {
	t.Helper()
	r, err := git.PlainOpen(dir)
	require.NoError(t, err)
	w, err := r.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		_, err := w.Add(name)
		require.NoError(t, err)
	}

	hash, err := w.Commit("update advisories", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: when},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestGitFetcherHead(t *testing.T) {
	t.Run("should read hash and committer time of HEAD", func(t *testing.T) {
		when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		dir := initMirror(t, map[string]string{"README.md": "advisories"}, when)

		commit, err := NewGitFetcher("", nil).Head(dir)
		assert.NoError(t, err)
		assert.Len(t, commit.Hash, 40)
		assert.True(t, when.Equal(commit.Time))
	})

	t.Run("should fail on a directory which is no repository", func(t *testing.T) {
		_, err := NewGitFetcher("", nil).Head(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("should fail on a repository without commits", func(t *testing.T) {
		dir := t.TempDir()
		_, err := git.PlainInit(dir, false)
		require.NoError(t, err)

		_, err = NewGitFetcher("", nil).Head(dir)
		assert.Error(t, err)
	})
}

func TestGitFetcherFetch(t *testing.T) {
	t.Run("should not leave a partial mirror behind if the clone fails", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "advisory-db")
		err := NewGitFetcher("", nil).Fetch(t.Context(), target, filepath.Join(t.TempDir(), "does-not-exist"))
		assert.Error(t, err)

		_, statErr := os.Stat(target)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("should clone a missing mirror and move it to the new upstream head on the next fetch", func(t *testing.T) {
		first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		upstream := initMirror(t, map[string]string{"README.md": "v1"}, first)
		target := filepath.Join(t.TempDir(), "advisory-db")
		fetcher := NewGitFetcher("", nil)

		require.NoError(t, fetcher.Fetch(t.Context(), target, upstream))
		cloned, err := fetcher.Head(target)
		require.NoError(t, err)
		assert.True(t, first.Equal(cloned.Time))

		second := first.Add(48 * time.Hour)
		hash := commitFiles(t, upstream, map[string]string{"README.md": "v2"}, second)

		require.NoError(t, fetcher.Fetch(t.Context(), target, upstream))
		updated, err := fetcher.Head(target)
		require.NoError(t, err)
		assert.Equal(t, hash, updated.Hash)
		assert.True(t, second.Equal(updated.Time))

		readme, err := os.ReadFile(filepath.Join(target, "README.md"))
		require.NoError(t, err)
		assert.Equal(t, "v2", string(readme))
	})

	t.Run("should succeed if the mirror is already up to date", func(t *testing.T) {
		upstream := initMirror(t, map[string]string{"README.md": "v1"}, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
		target := filepath.Join(t.TempDir(), "advisory-db")
		fetcher := NewGitFetcher("", nil)

		require.NoError(t, fetcher.Fetch(t.Context(), target, upstream))
		assert.NoError(t, fetcher.Fetch(t.Context(), target, upstream))
	})
}

func TestLock(t *testing.T) {
	t.Run("should not allow a second lock", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "advisory-db")
		l, err := acquireLock(path)
		require.NoError(t, err)
		assert.True(t, isLocked(path))

		_, err = acquireLock(path)
		assert.ErrorIs(t, err, ErrLocked)
		assert.ErrorContains(t, err, lockPath(path))
		assert.ErrorContains(t, err, fmt.Sprintf("pid %d", os.Getpid()))
		assert.ErrorContains(t, err, "remove it if no other lockaudit process is running")

		assert.NoError(t, l.release())
		assert.False(t, isLocked(path))
	})
}

func TestLockedError(t *testing.T) {
	t.Run("should name an unknown holder if the lock file is empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "advisory-db")
		require.NoError(t, os.WriteFile(lockPath(path), nil, 0o644))

		err := lockedError(path)
		assert.ErrorIs(t, err, ErrLocked)
		assert.ErrorContains(t, err, "held by an unknown process")
	})
}
