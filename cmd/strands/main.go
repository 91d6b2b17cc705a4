// Command strands runs the autonomous SRE incident-response controller:
// the alert-to-decision pipeline (C1-C11), its operator HTTP console, and
// the offline replay/playbook tooling built around the same pipeline.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/strands-sre/strands/pkg/version"
)

// Exit codes: 0 success, 1 configuration error, 2 runtime
// error, 3 upstream unavailable.
const (
	exitOK                = 0
	exitConfigError       = 1
	exitRuntimeError      = 2
	exitUpstreamUnavailable = 3
)

var configDir string

var rootCmd = &cobra.Command{
	Use:     "strands",
	Short:   "Strands autonomous SRE incident-response controller",
	Version: version.Full(),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(playbookCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a top-level command error to an exit-code
// scheme. Subcommands that need a specific code (e.g. replay's unsafe-
// bypass detection) call os.Exit directly instead of returning an error,
// so this fallback only ever classifies configuration vs. generic runtime
// failures.
func exitCodeFor(err error) int {
	if isConfigError(err) {
		return exitConfigError
	}
	if isUpstreamUnavailable(err) {
		return exitUpstreamUnavailable
	}
	return exitRuntimeError
}

// newLogger builds the process-wide slog.Logger, following this codebase's
// pattern of configuring one logger in main and handing component-scoped
// children (slog.Default().With(...)) down through constructors.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
