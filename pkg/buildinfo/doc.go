// SPDX-License-Identifier: MPL-2.0

// Package buildinfo loads and validates the declarative build-information
// document (build_info.cue): explicit dependencies, optional dependencies,
// required-but-optional externals, forced module locations, include-path
// rules, generated-file manifests, and injected preprocessor definitions.
//
// The document is validated against an embedded CUE schema at load time;
// "name or list of names" union values are normalized into ordered sets,
// and include paths are parsed into typed anchor/visibility form. A
// malformed entry fails the load with a SchemaError naming the offending
// key, and no resolution is attempted on a bad document.
//
// The special scope key "all" under optional_dependencies and
// required_optional_external applies to every target implicitly; accessors
// return the explicit union of the "all" set with target-specific entries.
// Under any other category the key has no meaning and fails the load.
package buildinfo
