// Package main is the migrasquiel CLI: dump, restore, migrate and
// import subcommands built on cobra, grounded on the teacher's
// cmd/smf root command wiring (diffCmd/migrateCmd/applyCmd each
// return a *cobra.Command populated from a small flags struct, with
// RunE delegating to a runX function) and generalized to the four
// drivers this tool composes instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"migrasquiel/internal/config"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/logging"
)

// rootFlags holds the flags shared by every subcommand.
type rootFlags struct {
	provider string
	config   string
	jsonLogs bool
	debug    bool
}

func main() {
	root := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:     "migrasquiel",
		Short:   "Move relational database schema and data between a source, a SQL file, and a destination",
		Version: "0.1.0",
	}
	rootCmd.PersistentFlags().StringVar(&root.provider, "provider", "mysql", "Database provider: mysql, postgres or sqlserver")
	rootCmd.PersistentFlags().StringVar(&root.config, "config", "", "Optional TOML file supplying default flag values")
	rootCmd.PersistentFlags().BoolVar(&root.jsonLogs, "json-logs", false, "Emit structured JSON log lines instead of console output")
	rootCmd.PersistentFlags().BoolVar(&root.debug, "debug", false, "Enable debug-level logging")

	rootCmd.AddCommand(newDumpCmd(root))
	rootCmd.AddCommand(newRestoreCmd(root))
	rootCmd.AddCommand(newMigrateCmd(root))
	rootCmd.AddCommand(newImportCmd(root))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a top-level error to its process exit code. Every
// driver path wraps its failures in *errs.Error before returning, so an
// error that reaches here unwrapped is cobra's own flag/arg validation
// (missing required flag, wrong positional-arg count, unknown flag) or
// a connection URL that session.ParseURL rejected — a usage error, not
// errs.As's general SQLExecution fallback for errors of unknown provenance.
func exitCodeFor(err error) int {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Kind.ExitCode()
	}
	return errs.Usage.ExitCode()
}

// rootContext returns a context cancelled on SIGINT/SIGTERM, the
// cancellation-awareness spec §5 requires of the whole process.
func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads root.config, if set, returning a zero File when
// no --config flag was given.
func loadConfig(root *rootFlags) (*config.File, error) {
	if root.config == "" {
		return &config.File{}, nil
	}
	cfg, err := config.Load(root.config)
	if err != nil {
		return nil, errs.Wrap(errs.Usage, err, "load --config file", "", "")
	}
	return cfg, nil
}

// applyStringDefault sets *dst to cfgVal when the flag named name was
// not explicitly passed on the command line and cfgVal is non-empty,
// so a --config file supplies defaults a real flag always overrides.
func applyStringDefault(cmd *cobra.Command, name string, dst *string, cfgVal string) {
	if cfgVal != "" && !cmd.Flags().Changed(name) {
		*dst = cfgVal
	}
}

func applyIntDefault(cmd *cobra.Command, name string, dst *int, cfgVal int) {
	if cfgVal != 0 && !cmd.Flags().Changed(name) {
		*dst = cfgVal
	}
}

func applyBoolDefault(cmd *cobra.Command, name string, dst *bool, cfgVal bool) {
	if cfgVal && !cmd.Flags().Changed(name) {
		*dst = cfgVal
	}
}

func fatalUsage(format string, args ...any) error {
	return errs.New(errs.Usage, "parse flags", fmt.Sprintf(format, args...))
}
