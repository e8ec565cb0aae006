// SPDX-License-Identifier: MPL-2.0

// Package lockfile persists a resolved dependency graph as a CUE snapshot
// so consecutive runs can detect graph drift without re-reading the whole
// distribution. The snapshot is advisory: resolution never reads it to
// influence results, only to compare them.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/tbxtools/tbxgraph/internal/resolver"
	"github.com/tbxtools/tbxgraph/pkg/cueutil"
)

// FormatVersion is the snapshot format version.
const FormatVersion = "1"

type (
	// Snapshot is the persisted form of a resolved graph.
	Snapshot struct {
		// Version is the snapshot format version.
		Version string `json:"version"`
		// GeneratedAt is the RFC 3339 timestamp of the resolution run.
		GeneratedAt string `json:"generated_at"`
		// Order is the topological build order of the active targets.
		Order []string `json:"order,omitempty"`
		// Targets maps target name to its locked record.
		Targets map[string]Target `json:"targets"`
	}

	// Target is one locked target record.
	Target struct {
		Module       string   `json:"module"`
		Required     []string `json:"required,omitempty"`
		Optional     []string `json:"optional,omitempty"`
		Externals    []string `json:"externals,omitempty"`
		Definitions  []string `json:"definitions,omitempty"`
		Bypassed     bool     `json:"bypassed,omitempty"`
		BypassReason string   `json:"bypass_reason,omitempty"`
	}
)

// FromGraph captures a resolved graph as a snapshot.
func FromGraph(graph *resolver.ResolvedGraph) *Snapshot {
	snap := &Snapshot{
		Version:     FormatVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Order:       graph.Order(),
		Targets:     make(map[string]Target, graph.Len()),
	}
	for _, t := range graph.Targets() {
		snap.Targets[t.Name] = Target{
			Module:       t.Module,
			Required:     t.Required,
			Optional:     t.Optional,
			Externals:    t.Externals,
			Definitions:  t.Definitions,
			Bypassed:     t.Bypassed,
			BypassReason: t.BypassReason,
		}
	}
	return snap
}

// Load reads a snapshot from disk. A missing file yields an empty snapshot
// rather than an error, so first runs need no special casing.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{Version: FormatVersion, Targets: map[string]Target{}}, nil
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}
	snap, err := cueutil.CompileAndDecode[Snapshot](data, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	if snap.Targets == nil {
		snap.Targets = map[string]Target{}
	}
	return snap, nil
}

// Save writes the snapshot atomically using a temp file and rename, so a
// crashed run never leaves a truncated lock file behind.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(s.toCUE()), 0o644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename lock file: %w", err)
	}
	return nil
}

// Equal reports whether two snapshots describe the same graph. Timestamps
// are ignored: a re-resolution that changes nothing is not drift.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if other == nil {
		return false
	}
	return s.Version == other.Version &&
		reflect.DeepEqual(s.Order, other.Order) &&
		reflect.DeepEqual(s.Targets, other.Targets)
}

// toCUE serializes the snapshot with sorted target keys so the output is
// byte-stable for identical graphs.
func (s *Snapshot) toCUE() string {
	var sb strings.Builder

	sb.WriteString("// Auto-generated dependency graph snapshot.\n")
	sb.WriteString("// DO NOT EDIT MANUALLY\n\n")
	sb.WriteString(fmt.Sprintf("version:      %q\n", s.Version))
	sb.WriteString(fmt.Sprintf("generated_at: %q\n\n", s.GeneratedAt))

	if len(s.Order) > 0 {
		sb.WriteString("order: ")
		writeList(&sb, s.Order)
		sb.WriteString("\n\n")
	}

	if len(s.Targets) == 0 {
		sb.WriteString("targets: {}\n")
		return sb.String()
	}

	names := make([]string, 0, len(s.Targets))
	for name := range s.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("targets: {\n")
	for _, name := range names {
		t := s.Targets[name]
		sb.WriteString(fmt.Sprintf("\t%q: {\n", name))
		sb.WriteString(fmt.Sprintf("\t\tmodule: %q\n", t.Module))
		writeField(&sb, "required", t.Required)
		writeField(&sb, "optional", t.Optional)
		writeField(&sb, "externals", t.Externals)
		writeField(&sb, "definitions", t.Definitions)
		if t.Bypassed {
			sb.WriteString("\t\tbypassed: true\n")
			sb.WriteString(fmt.Sprintf("\t\tbypass_reason: %q\n", t.BypassReason))
		}
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n")

	return sb.String()
}

func writeField(sb *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\t\t%s: ", key))
	writeList(sb, values)
	sb.WriteString("\n")
}

func writeList(sb *strings.Builder, values []string) {
	sb.WriteString("[")
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%q", v))
	}
	sb.WriteString("]")
}
