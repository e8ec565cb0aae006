// SPDX-License-Identifier: MPL-2.0

// Package reconcile implements the generated-file reconciler: it checks the
// rule store's generated-file manifests against the scanned module
// inventory and produces a report of {module, path, status} records. The
// report feeds an external regeneration step; this package never invokes
// generation itself.
package reconcile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tbxtools/tbxgraph/internal/discovery"
	"github.com/tbxtools/tbxgraph/pkg/buildinfo"
)

// Reconciliation statuses.
const (
	// StatusExpectedPresent means the generated file already exists.
	StatusExpectedPresent Status = "expected-present"
	// StatusExpectedGeneratable means the file does not exist yet but the
	// module's directory structure is consistent with producing it.
	StatusExpectedGeneratable Status = "expected-generatable"
	// StatusModuleMissing means the manifest names a module the scanner
	// never found.
	StatusModuleMissing Status = "module-missing"
)

type (
	// Status classifies one manifest entry.
	Status string

	// Record is one reconciled manifest entry.
	Record struct {
		// Module is the manifest's module name.
		Module string `toml:"module"`
		// Path is the expected file, relative to the module root. Empty
		// for self-managed modules that went missing.
		Path string `toml:"path,omitempty"`
		// Status classifies the entry.
		Status Status `toml:"status"`
		// Drift marks an entry whose implied directory structure is absent:
		// the file is still listed as generatable, but the layout has
		// diverged from the manifest.
		Drift bool `toml:"drift,omitempty"`
	}

	// Report is the full reconciliation result, encodable as TOML for the
	// regeneration-trigger tooling.
	Report struct {
		// GeneratedAt is the reconciliation timestamp.
		GeneratedAt time.Time `toml:"generated_at"`
		// Records are the per-file results, ordered by module then
		// manifest declaration order.
		Records []Record `toml:"records,omitempty"`
		// SelfManaged lists discovered modules that register their own
		// generation; no file list is checked for them.
		SelfManaged []string `toml:"self_managed_modules,omitempty"`
		// UndeclaredRefresh lists modules whose manifest declares generated
		// files although the module carries no refresh script. This is a
		// drift signal, never an error.
		UndeclaredRefresh []string `toml:"undeclared_refresh,omitempty"`
		// OtherGenerated echoes files produced outside the refresh
		// mechanism, informational only.
		OtherGenerated []string `toml:"other_generated,omitempty"`
	}
)

// Reconcile checks every generated-file manifest in the rule store against
// the module inventory. It never fails: inconsistencies become records and
// drift flags so callers decide what to regenerate.
func Reconcile(inventory *discovery.Inventory, rules *buildinfo.BuildInfo) *Report {
	report := &Report{
		GeneratedAt:    time.Now().UTC(),
		OtherGenerated: rules.OtherGenerated(),
	}

	for _, name := range rules.RefreshModules() {
		manifest, _ := rules.RefreshFor(name)
		module, known := inventory.Module(name)

		if manifest.SelfManaged {
			if !known {
				report.Records = append(report.Records, Record{Module: name, Status: StatusModuleMissing})
				continue
			}
			report.SelfManaged = append(report.SelfManaged, name)
			continue
		}

		if known && !module.HasRefresh {
			report.UndeclaredRefresh = append(report.UndeclaredRefresh, name)
		}

		for _, rel := range manifest.Files {
			record := Record{Module: name, Path: rel}
			switch {
			case !known:
				record.Status = StatusModuleMissing
			default:
				record.Status, record.Drift = classify(module.AbsPath, rel)
			}
			report.Records = append(report.Records, record)
		}
	}

	return report
}

// classify checks one expected file against the module directory. The file
// itself may legitimately not exist yet (it is regenerated), but its parent
// directory should.
func classify(moduleDir, rel string) (Status, bool) {
	abs := filepath.Join(moduleDir, filepath.FromSlash(rel))
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return StatusExpectedPresent, false
	}
	parent := filepath.Dir(abs)
	if info, err := os.Stat(parent); err == nil && info.IsDir() {
		return StatusExpectedGeneratable, false
	}
	return StatusExpectedGeneratable, true
}

// Drifted returns the records flagged as drift plus every module-missing
// record, the subset a regeneration step cannot satisfy as-is.
func (r *Report) Drifted() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Drift || rec.Status == StatusModuleMissing {
			out = append(out, rec)
		}
	}
	return out
}

// EncodeTOML writes the report as TOML.
func (r *Report) EncodeTOML(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("failed to encode reconciliation report: %w", err)
	}
	return nil
}

// DecodeTOML reads a report previously written by EncodeTOML.
func DecodeTOML(rd io.Reader) (*Report, error) {
	var report Report
	if err := toml.NewDecoder(rd).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode reconciliation report: %w", err)
	}
	return &report, nil
}
