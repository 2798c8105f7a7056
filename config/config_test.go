package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l3montree-dev/lockaudit/advisory"
	"github.com/l3montree-dev/lockaudit/advisorydb"
	"github.com/l3montree-dev/lockaudit/utils"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	base := AuditConfig{
		Database:   DatabaseConfig{Path: "/from/file", URL: "https://example.com/db.git", AllowStale: true},
		Advisories: AdvisoriesConfig{Ignore: []string{"RUSTSEC-2020-0001", "RUSTSEC-2020-0002"}},
		Output:     OutputConfig{Format: "json"},
	}

	t.Run("should let command line scalars win", func(t *testing.T) {
		merged := Merge(base, Overlay{DBPath: utils.Ptr("/from/flag"), Format: utils.Ptr("terminal")})
		assert.Equal(t, "/from/flag", merged.Database.Path)
		assert.Equal(t, "terminal", merged.Output.Format)
		assert.Equal(t, "https://example.com/db.git", merged.Database.URL)
	})

	t.Run("should unite ignore lists without duplicates", func(t *testing.T) {
		merged := Merge(base, Overlay{Ignore: []string{"RUSTSEC-2020-0002", "RUSTSEC-2020-0003"}})
		assert.Equal(t, []string{"RUSTSEC-2020-0001", "RUSTSEC-2020-0002", "RUSTSEC-2020-0003"}, merged.Advisories.Ignore)
	})

	t.Run("should or-combine boolean switches", func(t *testing.T) {
		merged := Merge(base, Overlay{NoFetch: true, Quiet: true})
		assert.True(t, merged.Database.NoFetch)
		assert.True(t, merged.Output.Quiet)
		// a false flag never turns off a switch from the file
		assert.True(t, merged.Database.AllowStale)
	})

	t.Run("should not modify its arguments", func(t *testing.T) {
		overlay := Overlay{Ignore: []string{"RUSTSEC-2020-0003"}, DBPath: utils.Ptr("/from/flag")}
		Merge(base, overlay)
		assert.Equal(t, []string{"RUSTSEC-2020-0001", "RUSTSEC-2020-0002"}, base.Advisories.Ignore)
		assert.Equal(t, "/from/file", base.Database.Path)
		assert.Equal(t, []string{"RUSTSEC-2020-0003"}, overlay.Ignore)
	})
}

func TestResolve(t *testing.T) {
	t.Run("should fill in defaults", func(t *testing.T) {
		r, err := Resolve(AuditConfig{})
		require.NoError(t, err)

		home, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".cargo", "advisory-db"), r.DBPath)
		assert.Equal(t, advisorydb.DefaultURL, r.DBURL)
		assert.Equal(t, "Cargo.lock", r.LockfilePath)
		assert.True(t, r.Fetch)
		assert.Equal(t, FormatTerminal, r.Format)
		assert.Equal(t, ColorAuto, r.Color)
		assert.Nil(t, r.Arch)
		assert.Nil(t, r.OS)
	})

	t.Run("should parse ignores and platforms", func(t *testing.T) {
		r, err := Resolve(AuditConfig{
			Advisories: AdvisoriesConfig{Ignore: []string{"rustsec-2020-0001", "RUSTSEC-2020-0001"}},
			Target:     TargetConfig{Arch: "x86_64", OS: "darwin"},
			Database:   DatabaseConfig{NoFetch: true},
			Lockfile:   LockfileConfig{Path: "-"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, r.Ignore.Len())
		assert.True(t, r.Ignore.Contains("RUSTSEC-2020-0001"))
		assert.Equal(t, advisory.Arch("x86_64"), *r.Arch)
		assert.Equal(t, advisory.OS("macos"), *r.OS)
		assert.False(t, r.Fetch)
		assert.Equal(t, "-", r.LockfilePath)

		filters := r.Filters()
		assert.Equal(t, r.Arch, filters.Arch)
		assert.True(t, filters.Ignore.Contains("RUSTSEC-2020-0001"))
	})

	t.Run("should reject a malformed ignore id", func(t *testing.T) {
		_, err := Resolve(AuditConfig{Advisories: AdvisoriesConfig{Ignore: []string{"RUSTSEC-XX"}}})
		var cfgErr *Error
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "advisories.ignore", cfgErr.Field)
		assert.Equal(t, "RUSTSEC-XX", cfgErr.Value)
	})

	t.Run("should reject unknown platforms", func(t *testing.T) {
		_, err := Resolve(AuditConfig{Target: TargetConfig{OS: "beos"}})
		var cfgErr *Error
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "target.os", cfgErr.Field)
	})

	t.Run("should reject an unknown output format", func(t *testing.T) {
		_, err := Resolve(AuditConfig{Output: OutputConfig{Format: "xml"}})
		var cfgErr *Error
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Field, "Format")
	})

	t.Run("should reject an invalid url", func(t *testing.T) {
		_, err := Resolve(AuditConfig{Database: DatabaseConfig{URL: "not a url"}})
		var cfgErr *Error
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("should reject paths with invalid characters", func(t *testing.T) {
		_, err := Resolve(AuditConfig{Lockfile: LockfileConfig{Path: "Cargo.lock?"}})
		var cfgErr *Error
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "lockfile.path", cfgErr.Field)
	})
}

func TestLoad(t *testing.T) {
	t.Run("should read a toml config file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), ".lockaudit.toml")
		require.NoError(t, os.WriteFile(file, []byte(`
[database]
path = "/srv/advisory-db"
noFetch = true

[advisories]
ignore = ["RUSTSEC-2020-0001"]

[output]
format = "json"
`), 0o644))

		cfg, err := Load(viper.New(), file)
		require.NoError(t, err)
		assert.Equal(t, "/srv/advisory-db", cfg.Database.Path)
		assert.True(t, cfg.Database.NoFetch)
		assert.Equal(t, []string{"RUSTSEC-2020-0001"}, cfg.Advisories.Ignore)
		assert.Equal(t, "json", cfg.Output.Format)
	})

	t.Run("should let the environment override the file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), ".lockaudit.toml")
		require.NoError(t, os.WriteFile(file, []byte("[target]\nos = \"linux\"\n"), 0o644))
		t.Setenv("LOCKAUDIT_TARGET_OS", "windows")
		t.Setenv("LOCKAUDIT_DATABASE_URL", "https://example.com/db.git")

		cfg, err := Load(viper.New(), file)
		require.NoError(t, err)
		assert.Equal(t, "windows", cfg.Target.OS)
		assert.Equal(t, "https://example.com/db.git", cfg.Database.URL)
	})

	t.Run("should fail on a missing explicit file", func(t *testing.T) {
		_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
		var cfgErr *Error
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("should fail on a broken config file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), ".lockaudit.toml")
		require.NoError(t, os.WriteFile(file, []byte("[database\npath ="), 0o644))

		_, err := Load(viper.New(), file)
		var cfgErr *Error
		assert.ErrorAs(t, err, &cfgErr)
	})
}
