// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbxtools/tbxgraph/internal/dag"
	"github.com/tbxtools/tbxgraph/internal/issue"
	"github.com/tbxtools/tbxgraph/internal/lockfile"
	"github.com/tbxtools/tbxgraph/internal/resolver"
	"github.com/tbxtools/tbxgraph/pkg/buildinfo"
)

var (
	graphBuildInfo string
	graphBuildRoot string
	graphIncludes  bool
	graphNoLock    bool

	graphCmd = &cobra.Command{
		Use:   "graph [root]",
		Short: "Resolve the target dependency graph of a distribution",
		Long: `Scan the distribution root for modules, merge their descriptors with
the build-info rules, and resolve every target's dependency closure in a
deterministic order. The resolved graph is compared against the lock file
and the lock file is rewritten when the graph changed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return app.runGraph(cmd.Context(), root)
		},
	}
)

func init() {
	graphCmd.Flags().StringVar(&graphBuildInfo, "build-info", "", "path to the build-info rule document (overrides config)")
	graphCmd.Flags().StringVar(&graphBuildRoot, "build-root", "", "build output root used to anchor #build include paths")
	graphCmd.Flags().BoolVar(&graphIncludes, "includes", false, "print resolved include directories per target")
	graphCmd.Flags().BoolVar(&graphNoLock, "no-lock", false, "skip reading and writing the lock file")
}

func (a *App) runGraph(ctx context.Context, root string) error {
	sess, err := a.openDistribution(ctx, root, graphBuildInfo)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	probe := resolver.AvailabilityProbe(resolver.AllAvailable)
	if table := sess.cfg.Probe(); len(table) > 0 {
		probe = resolver.StaticProbe(table)
	}

	graph, err := resolver.New(sess.inv, sess.rules, probe).Resolve()
	if err != nil {
		a.renderIssue(issueForResolveError(err))
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+err.Error())
		return &ExitError{Code: 1, Err: err}
	}

	a.printGraph(sess, graph)

	if graphNoLock {
		return nil
	}
	return a.updateLock(sess, graph)
}

// issueForResolveError maps a fatal resolution error to its catalog entry.
func issueForResolveError(err error) issue.Id {
	var (
		schemaErr *buildinfo.SchemaError
		missing   *resolver.MissingRequiredModuleError
		cycle     *dag.CycleError
		duplicate *resolver.DuplicateTargetNameError
	)
	switch {
	case errors.As(err, &schemaErr):
		return issue.SchemaErrorId
	case errors.As(err, &missing):
		return issue.MissingRequiredModuleId
	case errors.As(err, &cycle):
		return issue.CyclicDependencyId
	case errors.As(err, &duplicate):
		return issue.DuplicateTargetNameId
	}
	return issue.Id(0)
}

func (a *App) printGraph(sess *session, graph *resolver.ResolvedGraph) {
	fmt.Fprintln(a.stdout, TitleStyle.Render("Resolved dependency graph"))
	fmt.Fprintln(a.stdout, SubtitleStyle.Render(fmt.Sprintf("%d modules, %d targets", sess.inv.Len(), graph.Len())))
	fmt.Fprintln(a.stdout)

	buildRoot := graphBuildRoot
	if buildRoot == "" {
		buildRoot = filepath.Join(sess.root, "build")
	}

	for _, name := range graph.Order() {
		target, ok := graph.Target(name)
		if !ok {
			continue
		}
		line := TargetStyle.Render(name)
		if len(target.Required) > 0 {
			line += SubtitleStyle.Render(" <- " + strings.Join(target.Required, ", "))
		}
		fmt.Fprintln(a.stdout, "  "+line)
		if graphIncludes {
			for _, inc := range target.Includes {
				fmt.Fprintln(a.stdout, "      "+inc.Locate(sess.root, buildRoot))
			}
		}
	}

	bypassed := 0
	for _, target := range graph.Targets() {
		if target.Bypassed {
			bypassed++
			fmt.Fprintln(a.stdout, "  "+WarningStyle.Render(target.Name)+SubtitleStyle.Render(" (bypassed: "+target.BypassReason+")"))
		}
	}
	if bypassed > 0 {
		fmt.Fprintln(a.stdout)
	}

	for _, w := range graph.Warnings() {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+w.Message)
	}
}

// updateLock compares the resolved graph against the previous snapshot and
// rewrites the lock file when the graph changed.
func (a *App) updateLock(sess *session, graph *resolver.ResolvedGraph) error {
	lockPath := sess.cfg.LockFile
	if !filepath.IsAbs(lockPath) {
		lockPath = filepath.Join(sess.root, lockPath)
	}

	previous, err := lockfile.Load(lockPath)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("failed to read lock file: %w", err)}
	}

	current := lockfile.FromGraph(graph)
	if current.Equal(previous) {
		fmt.Fprintln(a.stdout, SuccessStyle.Render("✓ ")+"Lock file is up to date")
		return nil
	}

	if err := current.Save(lockPath); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("failed to write lock file: %w", err)}
	}
	fmt.Fprintln(a.stdout, SuccessStyle.Render("✓ ")+"Lock file updated: "+lockPath)
	return nil
}
