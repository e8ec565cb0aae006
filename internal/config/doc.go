// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates the tbxgraph configuration: the
// repository search list, the rule store location, the external capability
// table, and UI preferences. Files are CUE documents validated against an
// embedded schema and merged into Viper so defaults and explicit settings
// layer predictably.
package config
