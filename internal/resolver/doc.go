// SPDX-License-Identifier: MPL-2.0

// Package resolver is the dependency graph engine. It combines the module
// inventory from the scanner with the rule store into a directed graph of
// target -> {required targets, optional targets, external requirements,
// include paths, definitions}, applying two-phase name resolution (target
// namespace first, then module namespace), availability-based target
// bypass, and cycle detection over required edges.
//
// File organization:
//   - resolver.go: Resolver and the Resolve pipeline
//   - graph.go: ResolvedGraph and ResolvedTarget result types
//   - probe.go: external-capability availability probes
//   - errors.go: fatal resolution errors and recoverable warnings
package resolver
