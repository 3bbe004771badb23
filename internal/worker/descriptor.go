// Package worker manages interchangeable parse backends and routes each
// compile request to a compatible one.
package worker

import "github.com/groovy-tools/gls/internal/parse"

// Capability is a feature a worker declares support for.
type Capability string

const (
	CapHover        Capability = "hover"
	CapDefinition   Capability = "definition"
	CapCompletion   Capability = "completion"
	CapTypeChecking Capability = "type-checking"
)

// Descriptor describes one parse backend instance. Descriptors are
// immutable after construction; outcomes from different descriptors are not
// interchangeable even for identical source text.
type Descriptor struct {
	// ID uniquely names the worker (e.g. "jvm-4.0", "sitter").
	ID string

	// Versions is the language-version range this worker supports.
	Versions VersionRange

	// Capabilities are the features this worker supports.
	Capabilities []Capability

	// ScriptBaseType is the fully qualified name of the implicit script
	// wrapper superclass this backend substitutes when a declared
	// superclass cannot be resolved.
	ScriptBaseType string

	// Connector performs the actual parse.
	Connector parse.Backend
}

// Has reports whether the worker declares the capability.
func (d *Descriptor) Has(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}

	return false
}
