// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	SchemaErrorId Id = iota + 1
	MissingRequiredModuleId
	CyclicDependencyId
	DuplicateTargetNameId
	DistributionNotFoundId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

// Renderer renders markdown to styled terminal output.
type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

// Issue describes one known fatal configuration problem with guidance on
// how to fix it.
type Issue struct {
	id       Id          // ID used to look up the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links, may be empty
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	schemaErrorIssue = &Issue{
		id: SchemaErrorId,
		mdMsg: `
# Build information document is malformed!

The build-info document failed schema validation, so resolution was not
attempted. The error above names the offending key.

## Common issues:
- A dependency value that is neither a name nor a list of names
- An include path with an unknown anchor prefix (only ` + "`#build`" + ` and ` + "`#base`" + ` exist)
- A libtbx_refresh entry that is neither a file list nor the literal ` + "`true`" + `

## Things you can try:
- Validate the document syntax:
~~~
$ cue vet build_info.cue
~~~
- Compare against the annotated default document shipped with tbxgraph`,
	}

	missingRequiredModuleIssue = &Issue{
		id: MissingRequiredModuleId,
		mdMsg: `
# Required module not found!

A target or module declares a hard dependency on a module that was not
discovered in the distribution and has no forced location.

## Things you can try:
- Check out the missing module into the distribution root
- Add a ` + "`forced_locations`" + ` entry if the module lives in a
  non-conventional directory:
~~~cue
forced_locations: annlib_adaptbx: "cctbx_project/annlib_adaptbx"
~~~
- If the dependency is genuinely optional, move it to
  ` + "`optional_dependencies`" + ``,
	}

	cyclicDependencyIssue = &Issue{
		id: CyclicDependencyId,
		mdMsg: `
# Dependency cycle detected!

The required-dependency relation must be acyclic. The cycle trace above
names every member in order.

## Things you can try:
- Demote one edge of the cycle to ` + "`optional_dependencies`" + `
  (optional edges never participate in cycle detection)
- Check the module descriptors of the named modules for a mutual
  ` + "`modules_required_for_use`" + ` entry`,
	}

	duplicateTargetNameIssue = &Issue{
		id: DuplicateTargetNameId,
		mdMsg: `
# Duplicate target name!

Two discovered modules declare a target with the same name. Target names
must be unique across the whole distribution.

## Things you can try:
- Rename one of the targets in its module descriptor
- If one of the directories is a stale checkout, remove it or exclude it
  from the distribution root`,
	}

	distributionNotFoundIssue = &Issue{
		id: DistributionNotFoundId,
		mdMsg: `
# Distribution root not found!

The module root path does not exist or is not a directory.

## Things you can try:
- Check the path for typos
- Point tbxgraph at the directory where the distribution's modules live:
~~~
$ tbxgraph graph /path/to/modules
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your config.cue contains syntax errors or invalid values.

## Things you can try:
- Show the effective configuration:
~~~
$ tbxgraph config show
~~~
- Remove the config file to fall back to defaults`,
	}

	issues = map[Id]*Issue{
		SchemaErrorId:           schemaErrorIssue,
		MissingRequiredModuleId: missingRequiredModuleIssue,
		CyclicDependencyId:      cyclicDependencyIssue,
		DuplicateTargetNameId:   duplicateTargetNameIssue,
		DistributionNotFoundId:  distributionNotFoundIssue,
		ConfigLoadFailedId:      configLoadFailedIssue,
	}
)

// Lookup returns the catalog issue for an id, or nil if unknown.
func Lookup(id Id) *Issue {
	return issues[id]
}

// All returns every issue in the catalog, ordered by id.
func All() []*Issue {
	all := maps.Values(issues)
	slices.SortFunc(all, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return all
}
