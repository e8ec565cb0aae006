// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityWarning indicates a recoverable scan warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal scan error diagnostic.
	SeverityError Severity = "error"
)

// Diagnostic codes emitted by the scanner.
const (
	CodeForcedLocationMissing  = "forced_location_missing"
	CodeForcedLocationShadows  = "forced_location_shadows"
	CodeDescriptorParseSkipped = "descriptor_parse_skipped"
	CodeUnknownDescriptorKey   = "unknown_descriptor_key"
	CodeBootstrapModuleMissing = "bootstrap_module_missing"
)

type (
	// Severity represents scan diagnostic severity.
	Severity string

	// Diagnostic represents a structured scan diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering
	// policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "forced_location_missing").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)
