// SPDX-License-Identifier: MPL-2.0

// Package disttest builds throwaway multi-repository distribution trees for
// tests: module directories with libtbx_config descriptors and refresh
// scripts, all rooted in a t.TempDir.
package disttest

import (
	"os"
	"path/filepath"
	"testing"
)

// Tree is a distribution root under construction. All paths are
// slash-separated and relative to Root.
type Tree struct {
	t    testing.TB
	Root string
}

// New creates an empty distribution tree in a fresh temporary directory.
func New(t testing.TB) *Tree {
	t.Helper()
	return &Tree{t: t, Root: t.TempDir()}
}

// Module creates a module directory. When descriptor is non-empty it is
// written as the module's libtbx_config; otherwise the module is marked
// with an empty libtbx_refresh.py so the scanner still classifies it.
func (tr *Tree) Module(relPath, descriptor string) *Tree {
	tr.t.Helper()
	dir := tr.abs(relPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		tr.t.Fatalf("failed to create module directory %s: %v", relPath, err)
	}
	if descriptor != "" {
		tr.File(relPath+"/libtbx_config", descriptor)
	} else {
		tr.File(relPath+"/libtbx_refresh.py", "")
	}
	return tr
}

// Dir creates a bare directory without any module markers.
func (tr *Tree) Dir(relPath string) *Tree {
	tr.t.Helper()
	if err := os.MkdirAll(tr.abs(relPath), 0o755); err != nil {
		tr.t.Fatalf("failed to create directory %s: %v", relPath, err)
	}
	return tr
}

// File writes a file, creating parent directories as needed.
func (tr *Tree) File(relPath, content string) *Tree {
	tr.t.Helper()
	path := tr.abs(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tr.t.Fatalf("failed to create parent directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tr.t.Fatalf("failed to write %s: %v", relPath, err)
	}
	return tr
}

func (tr *Tree) abs(relPath string) string {
	return filepath.Join(tr.Root, filepath.FromSlash(relPath))
}
