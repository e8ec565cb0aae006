// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbxtools/tbxgraph/internal/issue"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List known fatal problems and how to fix them",
	Long: `Print the catalog of known fatal problems. Each entry explains what
went wrong and what to try. The same guidance is rendered automatically
when a command hits the corresponding error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.listIssues()
	},
}

func (a *App) listIssues() error {
	for _, entry := range issue.All() {
		out, err := entry.Render(glamourStyle())
		if err != nil {
			out = string(entry.MarkdownMsg())
		}
		fmt.Fprint(a.stdout, out)
	}
	return nil
}
