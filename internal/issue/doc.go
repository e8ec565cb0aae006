// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error plumbing: a catalog of known
// fatal configuration issues with rendered markdown guidance, and an
// ActionableError type carrying operation/resource/suggestion context.
//
// The fatal taxonomy (schema error, missing required module, cyclic
// dependency, duplicate target name) lives here; recoverable diagnostics
// are per-package types returned alongside results.
package issue
