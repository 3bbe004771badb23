// Package parse defines the contract between the language server core and
// the parse backends that turn script source into semantic results.
//
// Outcome values are immutable once a backend returns them: they are shared
// between the compilation cache and any number of concurrent readers and
// must never be mutated.
package parse

import "github.com/groovy-tools/gls/internal/source"

// Severity of a diagnostic, most severe first.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Position is a zero-based line/column pair.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open [Start, End) span in a file.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is a single problem reported against a file.
type Diagnostic struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Range    Range    `json:"range"`
}

// Phase selects how far the backend takes compilation. Later phases are more
// expensive but produce richer semantic information.
type Phase int

const (
	// PhaseConversion stops after the source is converted to an AST.
	PhaseConversion Phase = iota
	// PhaseSemanticAnalysis additionally resolves names and imports.
	PhaseSemanticAnalysis
	// PhaseCanonicalization runs the full front end, including class-node
	// completion. This is the default for editor-facing compiles.
	PhaseCanonicalization
)

func (p Phase) String() string {
	switch p {
	case PhaseConversion:
		return "conversion"
	case PhaseSemanticAnalysis:
		return "semantic-analysis"
	case PhaseCanonicalization:
		return "canonicalization"
	default:
		return "unknown"
	}
}

// DeclKind classifies an indexed declaration.
type DeclKind string

const (
	DeclClass    DeclKind = "class"
	DeclMethod   DeclKind = "method"
	DeclField    DeclKind = "field"
	DeclProperty DeclKind = "property"
)

// Declaration is one named declaration inside a type.
type Declaration struct {
	Name      string   `json:"name"`
	Kind      DeclKind `json:"kind"`
	Range     Range    `json:"range"`
	Container string   `json:"container,omitempty"`
}

// TypeDecl is a top-level type in a module's AST model.
type TypeDecl struct {
	Name         string        `json:"name"`
	Superclass   string        `json:"superclass,omitempty"`
	Range        Range         `json:"range"`
	Declarations []Declaration `json:"declarations,omitempty"`
}

// Module is the AST model handle a backend produces for one file. It carries
// just enough structure to build a symbol index and to recognize the
// degraded script-wrapper shape (see compile.Orchestrator).
type Module struct {
	Types []TypeDecl `json:"types"`
}

// Outcome is the immutable result of one backend invocation.
type Outcome struct {
	// AST is the backend's opaque tree handle; nil on total failure.
	AST any
	// Diagnostics are the problems found, in report order.
	Diagnostics []Diagnostic
	// SymbolTable is the backend's opaque resolved-symbol handle.
	SymbolTable any
	// Model is the structured AST model used for symbol indexing.
	Model *Module
	// TokenIndex is the backend's opaque token lookup handle.
	TokenIndex any
	// Successful reports whether the source compiled without errors.
	// Diagnostics may be present either way.
	Successful bool
}

// Request describes one parse invocation.
type Request struct {
	Key     source.Key
	Content string
	// Classpath and SourceRoots come from the workspace configuration.
	Classpath   []string
	SourceRoots []string
	// WorkspaceSources lists every known script file so the backend can
	// resolve cross-file references. Empty for lightweight indexing parses.
	WorkspaceSources []source.Key
	// LocatorCandidates are the deduplicated strings the backend may use to
	// match this request's file against WorkspaceSources.
	LocatorCandidates []string
	Phase             Phase
}
