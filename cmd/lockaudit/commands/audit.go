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
	"log/slog"
	"os"
	"os/signal"

	"github.com/l3montree-dev/lockaudit/audit"
	"github.com/l3montree-dev/lockaudit/config"
	"github.com/l3montree-dev/lockaudit/report"
	"github.com/l3montree-dev/lockaudit/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagSpec maps a command line flag onto the config overlay. Exactly one of
// the setters is set, it decides the flag type.
type flagSpec struct {
	name      string
	shorthand string
	usage     string

	setString func(o *config.Overlay, v string)
	setArray  func(o *config.Overlay, v []string)
	setBool   func(o *config.Overlay)
}

var auditFlags = []flagSpec{
	{name: "db", shorthand: "D", usage: "Path to the local advisory database mirror (default ~/.cargo/advisory-db)",
		setString: func(o *config.Overlay, v string) { o.DBPath = utils.Ptr(v) }},
	{name: "url", shorthand: "u", usage: "URL of the advisory database git repository",
		setString: func(o *config.Overlay, v string) { o.DBURL = utils.Ptr(v) }},
	{name: "no-fetch", shorthand: "n", usage: "Do not fetch the advisory database, use the local mirror as is",
		setBool: func(o *config.Overlay) { o.NoFetch = true }},
	{name: "stale", usage: "Allow an advisory database which was not updated for more than 90 days",
		setBool: func(o *config.Overlay) { o.AllowStale = true }},
	{name: "file", shorthand: "f", usage: "Cargo.lock file to audit, '-' reads from stdin (default Cargo.lock)",
		setString: func(o *config.Overlay, v string) { o.LockfilePath = utils.Ptr(v) }},
	{name: "ignore", usage: "Advisory id to ignore, can be repeated",
		setArray: func(o *config.Overlay, v []string) { o.Ignore = v }},
	{name: "include-withdrawn", usage: "Report withdrawn advisories as well",
		setBool: func(o *config.Overlay) { o.IncludeWithdrawn = true }},
	{name: "target-arch", usage: "Only report advisories affecting this CPU architecture, e.g. x86_64",
		setString: func(o *config.Overlay, v string) { o.Arch = utils.Ptr(v) }},
	{name: "target-os", usage: "Only report advisories affecting this operating system, e.g. linux",
		setString: func(o *config.Overlay, v string) { o.OS = utils.Ptr(v) }},
	{name: "json", usage: "Print the report as json",
		setBool: func(o *config.Overlay) { o.Format = utils.Ptr(string(config.FormatJSON)) }},
	{name: "quiet", shorthand: "q", usage: "Only print the report and warnings",
		setBool: func(o *config.Overlay) { o.Quiet = true }},
	{name: "color", shorthand: "c", usage: "Colorize the terminal report. Options: auto, always, never",
		setString: func(o *config.Overlay, v string) { o.Color = utils.Ptr(v) }},
	{name: "deny-warnings", usage: "Treat informational advisories as vulnerabilities",
		setBool: func(o *config.Overlay) { o.DenyWarnings = true }},
}

func NewAuditCommand() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit a Cargo.lock file",
		Long: `Audit a Cargo.lock file against the advisory database.

The exit code is 0 if no vulnerability was found, 1 if at least one was found
and 2 if the audit could not be performed.`,
		Args: cobra.NoArgs,
		RunE: runAudit,
	}

	registerFlags(auditCmd.Flags(), auditFlags)
	auditCmd.Flags().String("config", "", "Config file (default ./.lockaudit.{toml,yaml,json})")
	return auditCmd
}

func registerFlags(flags *pflag.FlagSet, defs []flagSpec) {
	for _, def := range defs {
		switch {
		case def.setString != nil:
			flags.StringP(def.name, def.shorthand, "", def.usage)
		case def.setArray != nil:
			flags.StringArrayP(def.name, def.shorthand, nil, def.usage)
		default:
			flags.BoolP(def.name, def.shorthand, false, def.usage)
		}
	}
}

// overlayFromFlags only considers flags given on the command line, so
// defaults never shadow config file values.
func overlayFromFlags(flags *pflag.FlagSet, defs []flagSpec) (config.Overlay, error) {
	overlay := config.Overlay{}
	for _, def := range defs {
		if !flags.Changed(def.name) {
			continue
		}
		switch {
		case def.setString != nil:
			v, err := flags.GetString(def.name)
			if err != nil {
				return config.Overlay{}, err
			}
			def.setString(&overlay, v)
		case def.setArray != nil:
			v, err := flags.GetStringArray(def.name)
			if err != nil {
				return config.Overlay{}, err
			}
			def.setArray(&overlay, v)
		default:
			v, err := flags.GetBool(def.name)
			if err != nil {
				return config.Overlay{}, err
			}
			if v {
				def.setBool(&overlay)
			}
		}
	}
	return overlay, nil
}

func resolveConfig(cmd *cobra.Command) (config.Resolved, error) {
	overlay, err := overlayFromFlags(cmd.Flags(), auditFlags)
	if err != nil {
		return config.Resolved{}, err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Resolved{}, err
	}

	base, err := config.Load(viper.New(), configFile)
	if err != nil {
		return config.Resolved{}, err
	}
	return config.Resolve(config.Merge(base, overlay))
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Quiet && logLevel.Level() < slog.LevelWarn {
		logLevel.Set(slog.LevelWarn)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var opts []audit.Option
	if isTerminal(os.Stderr) {
		opts = append(opts, audit.WithProgressWriter(os.Stderr))
	}

	r, err := audit.NewAuditor(cfg, opts...).Audit(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch cfg.Format {
	case config.FormatJSON:
		err = report.RenderJSON(out, r)
	default:
		err = report.RenderTable(out, r, report.TableOptions{Color: useColor(cfg.Color, out == os.Stdout)})
	}
	if err != nil {
		return err
	}

	if code := r.ExitDisposition(); code != report.ExitClean {
		return &exitCodeError{code: code}
	}
	return nil
}

func useColor(mode config.ColorMode, toStdout bool) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return toStdout && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
