// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbxtools/tbxgraph/internal/reconcile"
)

var (
	reconcileBuildInfo string
	reconcileOutput    string

	reconcileCmd = &cobra.Command{
		Use:   "reconcile [root]",
		Short: "Report drift between declared and present generated files",
		Long: `Compare the generated files that the build-info rules declare against
what is actually present in the distribution. The report is written as
TOML to stdout, or to a file with -o. Drift is a warning signal, never
an error: missing generated files are produced by the refresh step.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return app.runReconcile(cmd.Context(), root)
		},
	}
)

func init() {
	reconcileCmd.Flags().StringVar(&reconcileBuildInfo, "build-info", "", "path to the build-info rule document (overrides config)")
	reconcileCmd.Flags().StringVarP(&reconcileOutput, "output", "o", "", "write the TOML report to a file instead of stdout")
}

func (a *App) runReconcile(ctx context.Context, root string) error {
	sess, err := a.openDistribution(ctx, root, reconcileBuildInfo)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	report := reconcile.Reconcile(sess.inv, sess.rules)

	out := a.stdout
	if reconcileOutput != "" {
		f, err := os.Create(reconcileOutput)
		if err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("failed to create report file: %w", err)}
		}
		defer f.Close()
		out = f
	}
	if err := report.EncodeTOML(out); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("failed to encode report: %w", err)}
	}

	drifted := report.Drifted()
	switch {
	case len(drifted) == 0:
		fmt.Fprintln(a.stderr, SuccessStyle.Render("✓ ")+"No generated-file drift")
	default:
		fmt.Fprintln(a.stderr, WarningStyle.Render(fmt.Sprintf("%d drifted entries:", len(drifted))))
		for _, rec := range drifted {
			fmt.Fprintln(a.stderr, "  "+TargetStyle.Render(rec.Module)+" "+rec.Path+SubtitleStyle.Render(" ("+string(rec.Status)+")"))
		}
	}
	for _, name := range report.UndeclaredRefresh {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+"module "+name+" carries a refresh script the rules do not declare")
	}
	return nil
}
