// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tbxtools/tbxgraph/internal/config"
	"github.com/tbxtools/tbxgraph/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// colorScheme drives markdown rendering, set from config on load
	colorScheme = config.ColorSchemeAuto

	app = NewApp(Dependencies{})

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "tbxgraph",
		Short: "Dependency graph resolver for multi-repository source distributions",
		Long: TitleStyle.Render("tbxgraph") + SubtitleStyle.Render(" - Dependency graph resolver for multi-repository source distributions") + `

tbxgraph scans a source distribution for modules, merges their
descriptors with the build-info rule document, and resolves the
full target dependency graph in a deterministic order.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Point tbxgraph at your distribution root
  2. Keep cross-cutting rules in a build_info.cue document
  3. Resolve the graph with: tbxgraph graph <root>

` + SubtitleStyle.Render("Examples:") + `
  tbxgraph graph .          Resolve the graph for the current directory
  tbxgraph reconcile .      Report generated-file drift
  tbxgraph config show      Show current configuration
  tbxgraph issues           List known fatal problems and fixes`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig, initLogging)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir's config.cue)")

	// Add subcommands
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(issuesCmd)
}

// initRootConfig reads the configuration early so UI settings apply to
// every command. Load errors are surfaced as a warning here and again as a
// hard failure by whichever command actually needs the config.
func initRootConfig() {
	cfg, err := app.Config.Load(context.Background(), config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}

	if !verbose {
		verbose = cfg.UI.Verbose
	}
	colorScheme = cfg.UI.ColorScheme
}

// formatErrorForDisplay formats an error for user display. ActionableError
// values render their suggestions; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// initLogging installs a charm log handler as the slog default so package
// logging inherits the CLI's styling and level.
func initLogging() {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Level:           level,
	})
	slog.SetDefault(slog.New(handler))
}

// glamourStyle maps the configured color scheme to a glamour style name.
func glamourStyle() string {
	switch colorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
