// SPDX-License-Identifier: MPL-2.0

package buildinfo

import (
	"fmt"
	"strings"
)

const (
	// AnchorModule resolves relative to the conventional parent-of-module
	// location. This is the default for unprefixed paths.
	AnchorModule Anchor = iota
	// AnchorBuild resolves relative to the build output root ("#build").
	AnchorBuild
	// AnchorBase resolves relative to the distribution root ("#base").
	AnchorBase
)

type (
	// Anchor selects the root an include path is resolved against.
	Anchor int

	// IncludePath is one parsed include-path rule. Private paths are visible
	// only to the declaring target's own sources and never propagate
	// transitively to dependents.
	IncludePath struct {
		// Path is the slash-separated remainder after any prefixes.
		Path string
		// Anchor selects the resolution root.
		Anchor Anchor
		// Private marks the path as non-propagating ("!" prefix).
		Private bool
	}
)

// String returns the anchor's prefix form.
func (a Anchor) String() string {
	switch a {
	case AnchorBuild:
		return "#build"
	case AnchorBase:
		return "#base"
	default:
		return ""
	}
}

// String reassembles the rule in its document form.
func (p IncludePath) String() string {
	s := p.Path
	switch p.Anchor {
	case AnchorBuild, AnchorBase:
		s = p.Anchor.String() + "/" + s
	}
	if p.Private {
		s = "!" + s
	}
	return s
}

// ParseIncludePath parses a raw include-path rule. A leading "!" marks the
// path private; a "#build" or "#base" prefix changes the anchor. Any other
// "#" prefix is a schema error.
func ParseIncludePath(raw string) (IncludePath, error) {
	p := IncludePath{Anchor: AnchorModule}
	rest := raw

	if strings.HasPrefix(rest, "!") {
		p.Private = true
		rest = rest[1:]
	}

	if strings.HasPrefix(rest, "#") {
		switch {
		case rest == "#build" || strings.HasPrefix(rest, "#build/"):
			p.Anchor = AnchorBuild
			rest = strings.TrimPrefix(strings.TrimPrefix(rest, "#build"), "/")
		case rest == "#base" || strings.HasPrefix(rest, "#base/"):
			p.Anchor = AnchorBase
			rest = strings.TrimPrefix(strings.TrimPrefix(rest, "#base"), "/")
		default:
			return IncludePath{}, fmt.Errorf("unknown anchor prefix in include path %q", raw)
		}
	}

	if rest == "" && p.Anchor == AnchorModule {
		return IncludePath{}, fmt.Errorf("empty include path %q", raw)
	}

	p.Path = rest
	return p, nil
}
