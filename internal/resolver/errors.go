// SPDX-License-Identifier: MPL-2.0

package resolver

import "fmt"

// Warning codes accumulated alongside a successful resolution.
const (
	// WarnDanglingRuleReference marks a rule keyed by a name that is
	// neither a discovered target nor a discovered module.
	WarnDanglingRuleReference = "dangling_rule_reference"
	// WarnRequiredOptionalUnavailable marks a target bypassed because an
	// external capability it requires is not present.
	WarnRequiredOptionalUnavailable = "required_optional_unavailable"
)

type (
	// Warning is a recoverable resolution issue. Warnings never invalidate
	// the returned graph; they exist so nothing is silently dropped.
	Warning struct {
		// Code is a machine-readable identifier.
		Code string
		// Name is the target, module, or rule key the warning is about.
		Name string
		// Message is the human-readable description.
		Message string
	}

	// DuplicateTargetNameError reports two modules claiming the same target
	// name. Target names are unique across the whole distribution.
	DuplicateTargetNameError struct {
		Target       string
		FirstModule  string
		SecondModule string
	}

	// MissingRequiredModuleError reports a required dependency that resolved
	// in neither the target namespace nor the module namespace.
	MissingRequiredModuleError struct {
		// Name is the unresolvable dependency.
		Name string
		// RequiredBy is the target or module that declared it.
		RequiredBy string
	}
)

func (e *DuplicateTargetNameError) Error() string {
	return fmt.Sprintf("duplicate target name %q: declared by both module %q and module %q",
		e.Target, e.FirstModule, e.SecondModule)
}

func (e *MissingRequiredModuleError) Error() string {
	return fmt.Sprintf("required dependency %q of %q is neither a known target nor a known module",
		e.Name, e.RequiredBy)
}
