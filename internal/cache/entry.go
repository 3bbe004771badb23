package cache

import (
	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
)

// Entry pairs a cached parse outcome with the exact source text that
// produced it. A lookup is a hit only when the requested content equals
// Content byte for byte.
type Entry struct {
	// Key identifies the source file.
	Key source.Key

	// Content is the exact text the outcome was compiled from.
	Content string

	// Outcome is the backend result for Content. Shared, never mutated.
	Outcome *parse.Outcome
}
