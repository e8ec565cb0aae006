// SPDX-License-Identifier: MPL-2.0

// Package discovery implements the module layout scanner: it walks a
// distribution root, classifies candidate directories as modules, parses
// their descriptors, and produces the normalized inventory (module name ->
// location, module name -> owned targets) that the resolver consumes.
//
// This package intentionally combines two related concerns:
//   - Directory classification: deciding which directories are modules
//   - Descriptor parsing: reading libtbx_config files into typed form
//
// These are tightly coupled because classification depends on descriptor
// presence and the inventory depends on both.
//
// File organization:
//   - discovery.go: Scanner, Inventory, collision errors, the Scan walk
//   - module.go: Module type and descriptor parsing
//   - diagnostic.go: structured recoverable diagnostics
package discovery
