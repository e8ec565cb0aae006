// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbxtools/tbxgraph/internal/config"
	"github.com/tbxtools/tbxgraph/internal/issue"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tbxgraph configuration",
	Long: `Manage tbxgraph configuration.

Configuration is stored in:
  - Linux: ~/.config/tbxgraph/config.cue
  - macOS: ~/Library/Application Support/tbxgraph/config.cue
  - Windows: %APPDATA%\tbxgraph\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: cfgFile})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})
}

func (a *App) showConfig(ctx context.Context) error {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		a.renderIssue(issue.ConfigLoadFailedId)
		return err
	}

	keyStyle := TargetStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(a.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(a.stdout)

	// The provider does not cache resolved paths; derive the file location
	// from the standard config directory.
	if cfgDir, dirErr := config.ConfigDir(); dirErr == nil {
		path := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
		fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(a.stdout)

	fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("repositories"), valueStyle.Render(strings.Join(cfg.Repositories, ", ")))
	fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("build_info"), valueStyle.Render(cfg.BuildInfo))
	fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("lock_file"), valueStyle.Render(cfg.LockFile))

	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("ignore_missing"))
	if len(cfg.IgnoreMissing) == 0 {
		fmt.Fprintf(a.stdout, "  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		for _, name := range cfg.IgnoreMissing {
			fmt.Fprintf(a.stdout, "  - %s\n", valueStyle.Render(name))
		}
	}

	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("externals"))
	if len(cfg.Externals) == 0 {
		fmt.Fprintf(a.stdout, "  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		for _, ext := range cfg.Externals {
			fmt.Fprintf(a.stdout, "  - %s: %s\n", valueStyle.Render(ext.Name), valueStyle.Render(fmt.Sprintf("%v", ext.Available)))
		}
	}

	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(a.stdout, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(a.stdout, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func initConfigFile() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err := config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"),
		filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

func setConfigValue(ctx context.Context, a *App, key, value string) error {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return err
	}

	switch key {
	case "build_info":
		cfg.BuildInfo = value

	case "lock_file":
		cfg.LockFile = value

	case "ui.verbose":
		cfg.UI.Verbose = value == "true" || value == "1"

	case "ui.color_scheme":
		scheme := config.ColorScheme(value)
		if err := scheme.Validate(); err != nil {
			return err
		}
		cfg.UI.ColorScheme = scheme

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: build_info, lock_file, ui.verbose, ui.color_scheme", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(a.stdout, "%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}
