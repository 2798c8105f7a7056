package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/l3montree-dev/lockaudit/config"
	"github.com/l3montree-dev/lockaudit/report"
	"github.com/l3montree-dev/lockaudit/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const advisoryFile = "```toml\n" + `[advisory]
id = "RUSTSEC-2024-0001"
package = "foo"
date = "2024-01-01"
cvss = "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"

[versions]
patched = [">= 1.3.0"]
` + "```\n\n# Memory corruption in foo\n"

const lockfileContent = `version = 3

[[package]]
name = "foo"
version = "1.2.0"

[[package]]
name = "baz"
version = "2.0.0"
`

func initMirror(t *testing.T, when time.Time) string {
	t.Helper()
	dir := t.TempDir()
	r, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err := r.Worktree()
	require.NoError(t, err)

	name := "crates/foo/RUSTSEC-2024-0001.md"
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "crates", "foo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(advisoryFile), 0o644))
	_, err = w.Add(name)
	require.NoError(t, err)

	_, err = w.Commit("add advisory", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: when},
	})
	require.NoError(t, err)
	return dir
}

func writeLockfile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Cargo.lock")
	require.NoError(t, os.WriteFile(p, []byte(lockfileContent), 0o644))
	return p
}

func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	return exitCode(root.Execute()), out.String()
}

func TestOverlayFromFlags(t *testing.T) {
	parse := func(t *testing.T, args ...string) config.Overlay {
		cmd := NewAuditCommand()
		require.NoError(t, cmd.ParseFlags(args))
		overlay, err := overlayFromFlags(cmd.Flags(), auditFlags)
		require.NoError(t, err)
		return overlay
	}

	t.Run("should leave everything untouched without flags", func(t *testing.T) {
		assert.Equal(t, config.Overlay{}, parse(t))
	})

	t.Run("should map every flag onto the overlay", func(t *testing.T) {
		overlay := parse(t,
			"-D", "/tmp/db", "-u", "https://example.com/db.git", "-n", "--stale",
			"-f", "-", "--ignore", "RUSTSEC-2020-0001", "--ignore", "RUSTSEC-2020-0002",
			"--include-withdrawn", "--target-arch", "x86_64", "--target-os", "linux",
			"--json", "-q", "-c", "never", "--deny-warnings",
		)

		assert.Equal(t, config.Overlay{
			DBPath:           utils.Ptr("/tmp/db"),
			DBURL:            utils.Ptr("https://example.com/db.git"),
			NoFetch:          true,
			AllowStale:       true,
			Ignore:           []string{"RUSTSEC-2020-0001", "RUSTSEC-2020-0002"},
			IncludeWithdrawn: true,
			Arch:             utils.Ptr("x86_64"),
			OS:               utils.Ptr("linux"),
			Quiet:            true,
			Format:           utils.Ptr("json"),
			Color:            utils.Ptr("never"),
			DenyWarnings:     true,
			LockfilePath:     utils.Ptr("-"),
		}, overlay)
	})

	t.Run("should ignore boolean flags set to false", func(t *testing.T) {
		assert.False(t, parse(t, "--no-fetch=false").NoFetch)
	})

	t.Run("should register every flag of the schema", func(t *testing.T) {
		cmd := NewAuditCommand()
		for _, def := range auditFlags {
			assert.NotNil(t, cmd.Flags().Lookup(def.name), def.name)
		}
	})
}

func TestExitCode(t *testing.T) {
	t.Run("should be 0 without error", func(t *testing.T) {
		assert.Equal(t, 0, exitCode(nil))
	})

	t.Run("should use the code of an exit code error", func(t *testing.T) {
		assert.Equal(t, 1, exitCode(&exitCodeError{code: report.ExitVulnerabilitiesFound}))
	})

	t.Run("should be 2 for any other error", func(t *testing.T) {
		assert.Equal(t, 2, exitCode(errors.New("boom")))
	})
}

func TestAuditCommand(t *testing.T) {
	t.Run("should exit with 1 and print json if a vulnerability is found", func(t *testing.T) {
		db := initMirror(t, time.Now())

		code, out := run(t, "audit", "--no-fetch", "--db", db, "--file", writeLockfile(t), "--json", "-q")
		assert.Equal(t, 1, code)

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &payload))
		assert.Contains(t, out, "RUSTSEC-2024-0001")
	})

	t.Run("should exit with 0 if the vulnerability is ignored", func(t *testing.T) {
		db := initMirror(t, time.Now())

		code, out := run(t, "audit", "--no-fetch", "--db", db, "--file", writeLockfile(t), "--ignore", "RUSTSEC-2024-0001", "-q", "--color", "never")
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "no vulnerabilities found")
	})

	t.Run("should exit with 2 on a stale database", func(t *testing.T) {
		db := initMirror(t, time.Now().Add(-200*24*time.Hour))

		code, _ := run(t, "audit", "--no-fetch", "--db", db, "--file", writeLockfile(t), "-q")
		assert.Equal(t, 2, code)
	})

	t.Run("should accept a stale database with --stale", func(t *testing.T) {
		db := initMirror(t, time.Now().Add(-200*24*time.Hour))

		code, _ := run(t, "audit", "--no-fetch", "--stale", "--db", db, "--file", writeLockfile(t), "-q")
		assert.Equal(t, 1, code)
	})

	t.Run("should exit with 2 on a missing database", func(t *testing.T) {
		code, _ := run(t, "audit", "--no-fetch", "--db", filepath.Join(t.TempDir(), "missing"), "--file", writeLockfile(t), "-q")
		assert.Equal(t, 2, code)
	})

	t.Run("should exit with 2 on an invalid ignore id", func(t *testing.T) {
		code, _ := run(t, "audit", "--no-fetch", "--ignore", "RUSTSEC-20-1", "-q")
		assert.Equal(t, 2, code)
	})

	t.Run("should exit with 2 on an unknown flag", func(t *testing.T) {
		code, _ := run(t, "audit", "--does-not-exist")
		assert.Equal(t, 2, code)
	})
}

func TestVersionCommand(t *testing.T) {
	code, out := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Version:    dev")
}
