// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tbxtools/tbxgraph/internal/config"
	"github.com/tbxtools/tbxgraph/internal/discovery"
	"github.com/tbxtools/tbxgraph/internal/issue"
	"github.com/tbxtools/tbxgraph/pkg/buildinfo"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: all Cobra command handlers receive an App
	// reference and delegate work through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp; tests supply
	// buffers and fakes.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// session is one opened distribution: its configuration, rule store,
	// and scanned module inventory.
	session struct {
		root  string
		cfg   *config.Config
		rules *buildinfo.BuildInfo
		inv   *discovery.Inventory
		diags []discovery.Diagnostic
	}
)

// NewApp builds the CLI composition root, filling unset dependencies with
// production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// openDistribution loads configuration, reads the rule store, and scans the
// distribution root. Scanner diagnostics are reported to stderr; only the
// scan itself can fail.
func (a *App) openDistribution(ctx context.Context, root, buildInfoOverride string) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		a.renderIssue(issue.ConfigLoadFailedId)
		return nil, err
	}
	colorScheme = cfg.UI.ColorScheme

	biPath := cfg.BuildInfo
	if buildInfoOverride != "" {
		biPath = buildInfoOverride
	}
	if !filepath.IsAbs(biPath) {
		biPath = filepath.Join(root, biPath)
	}

	rules, err := loadRules(biPath)
	if err != nil {
		a.renderIssue(issue.SchemaErrorId)
		return nil, err
	}

	scanner := discovery.NewScanner(discovery.Options{
		Repositories:  cfg.Repositories,
		IgnoreMissing: cfg.IgnoreMissing,
	})
	inv, diags, err := scanner.Scan(root, rules.ForcedLocations())
	if err != nil {
		a.renderIssue(issue.DistributionNotFoundId)
		return nil, err
	}

	a.reportDiagnostics(diags)

	return &session{root: root, cfg: cfg, rules: rules, inv: inv, diags: diags}, nil
}

// loadRules reads the rule store. A missing document is not an error: the
// distribution simply has no extra rules beyond its module descriptors.
func loadRules(path string) (*buildinfo.BuildInfo, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return buildinfo.Parse(nil, path)
	}
	return buildinfo.Load(path)
}

// reportDiagnostics prints scanner diagnostics to stderr, color-coded by
// severity.
func (a *App) reportDiagnostics(diags []discovery.Diagnostic) {
	for _, d := range diags {
		style := WarningStyle
		label := "Warning: "
		if d.Severity == discovery.SeverityError {
			style = ErrorStyle
			label = "Error: "
		}
		msg := d.Message
		if d.Path != "" {
			msg += " (" + d.Path + ")"
		}
		fmt.Fprintln(a.stderr, style.Render(label)+msg)
	}
}

// renderIssue prints the catalog guidance for a known fatal problem.
func (a *App) renderIssue(id issue.Id) {
	entry := issue.Lookup(id)
	if entry == nil {
		return
	}
	out, err := entry.Render(glamourStyle())
	if err != nil {
		// Fall back to the raw markdown rather than hiding the guidance.
		out = string(entry.MarkdownMsg())
	}
	fmt.Fprint(a.stderr, out)
}
