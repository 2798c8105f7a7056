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

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/l3montree-dev/lockaudit/report"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

// logLevel is shared by every handler installed by initLogger, so --quiet can
// raise it after the flags are parsed.
var logLevel = new(slog.LevelVar)

// exitCodeError carries a non-zero exit code without printing anything.
type exitCodeError struct {
	code report.ExitCode
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		SilenceUsage:      true,
		SilenceErrors:     true,
		Use:               "lockaudit",
		Short:             "Audit Cargo.lock files for crates with security advisories",
		Version:           version,
		DisableAutoGenTag: true,
		Long: `Audit Cargo.lock files for crates with security advisories

lockaudit mirrors the RustSec advisory database into a local git checkout and
reports every locked crate version with a known vulnerability. Informational
advisories (unmaintained, unsound, notice) are reported as warnings. Configuration
can be provided via a ./.lockaudit config file or environment variables
(prefix LOCKAUDIT_).`,
		Example: `  # Audit the Cargo.lock of the current directory
  lockaudit audit

  # Audit a lockfile from stdin without touching the network
  cat Cargo.lock | lockaudit audit --no-fetch --file -

  # Ignore an advisory and print json
  lockaudit audit --ignore RUSTSEC-2020-0071 --json`,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString("logLevel")
			if err != nil {
				return err
			}

			switch level {
			case "debug":
				initLogger(slog.LevelDebug)
			case "info":
				initLogger(slog.LevelInfo)
			case "warn":
				initLogger(slog.LevelWarn)
			case "error":
				initLogger(slog.LevelError)
			default:
				initLogger(slog.LevelInfo)
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lockaudit\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", commit)
			fmt.Fprintf(out, "Built:      %s\n", date)
			fmt.Fprintf(out, "Built by:   %s\n", builtBy)
		},
	}

	rootCmd.AddCommand(
		versionCmd,
		NewAuditCommand(),
	)

	rootCmd.PersistentFlags().StringP("logLevel", "l", "info", "Set the log level. Options: debug, info, warn, error")
	return rootCmd
}

// Execute runs the command line and returns the process exit code: 0 for a
// clean run, 1 if vulnerabilities were found and 2 for every other error.
func Execute() int {
	return exitCode(NewRootCommand().Execute())
}

func exitCode(err error) int {
	if err == nil {
		return int(report.ExitClean)
	}
	var codeErr *exitCodeError
	if errors.As(err, &codeErr) {
		return int(codeErr.code)
	}
	slog.Error("audit failed", "err", err)
	return int(report.ExitError)
}

// initLogger installs a tint handler writing to stderr. stdout is reserved
// for the report.
func initLogger(level slog.Level) {
	logLevel.Set(level)
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}),
	))
}
