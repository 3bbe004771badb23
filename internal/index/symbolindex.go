// Package index derives and maintains per-file symbol indices from parse
// outcomes. Indices live in two stores keyed independently by file: a
// bounded LRU of recently touched files and an unbounded workspace-wide map
// populated by explicit bulk indexing (and persisted via bbolt).
package index

import (
	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
)

// DeclSite locates one declaration.
type DeclSite struct {
	Key       source.Key     `json:"key"`
	Range     parse.Range    `json:"range"`
	Kind      parse.DeclKind `json:"kind"`
	Container string         `json:"container,omitempty"`
}

// SymbolIndex maps declared symbol names to their declaration sites for one
// file. Immutable once built.
type SymbolIndex struct {
	Key     source.Key          `json:"key"`
	Symbols map[string]DeclSite `json:"symbols"`
}

// Lookup returns the declaration site for a symbol name.
func (si *SymbolIndex) Lookup(name string) (DeclSite, bool) {
	site, ok := si.Symbols[name]
	return site, ok
}

// Len returns the number of indexed symbols.
func (si *SymbolIndex) Len() int {
	return len(si.Symbols)
}

// Build derives a symbol index from a file's AST model. Later declarations
// with the same name shadow earlier ones, matching script scoping.
func Build(key source.Key, model *parse.Module) *SymbolIndex {
	si := &SymbolIndex{
		Key:     key,
		Symbols: make(map[string]DeclSite),
	}

	if model == nil {
		return si
	}

	for _, typ := range model.Types {
		if typ.Name != "" {
			si.Symbols[typ.Name] = DeclSite{
				Key:   key,
				Range: typ.Range,
				Kind:  parse.DeclClass,
			}
		}

		for _, decl := range typ.Declarations {
			if decl.Name == "" {
				continue
			}

			si.Symbols[decl.Name] = DeclSite{
				Key:       key,
				Range:     decl.Range,
				Kind:      decl.Kind,
				Container: decl.Container,
			}
		}
	}

	return si
}
