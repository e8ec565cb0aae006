// SPDX-License-Identifier: MPL-2.0

package resolver

// AvailabilityProbe reports whether an external capability (a threading
// library, a GPU stack, a linear-algebra package) is present in the build
// environment. The probe is supplied by the surrounding build-system
// integration; resolution only consumes its verdicts.
type AvailabilityProbe interface {
	Available(name string) bool
}

// ProbeFunc adapts a plain function to the AvailabilityProbe interface.
type ProbeFunc func(name string) bool

// Available implements AvailabilityProbe.
func (f ProbeFunc) Available(name string) bool { return f(name) }

// StaticProbe answers from a fixed capability table. Names absent from the
// table are unavailable.
type StaticProbe map[string]bool

// Available implements AvailabilityProbe.
func (p StaticProbe) Available(name string) bool { return p[name] }

// AllAvailable is the permissive probe: every capability is present. Useful
// for dry runs and for environments that vet externals elsewhere.
var AllAvailable = ProbeFunc(func(string) bool { return true })
