package compile

import (
	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
)

// Result is the normalized answer of a compile operation. Expected failures
// (compile diagnostics, backend invocation errors) always come back as a
// Result, never as a raw error.
type Result struct {
	// Key identifies the compiled file.
	Key source.Key

	// Outcome is the backend result used to build this Result; nil when
	// the backend invocation itself failed.
	Outcome *parse.Outcome

	// Diagnostics are the outcome's diagnostics, or the single synthetic
	// diagnostic describing an invocation failure.
	Diagnostics []parse.Diagnostic

	// FromCache reports whether Outcome was served from the cache.
	FromCache bool
}

// Successful reports whether the compile produced a clean outcome.
func (r Result) Successful() bool {
	return r.Outcome != nil && r.Outcome.Successful
}

func resultFrom(key source.Key, outcome *parse.Outcome, fromCache bool) Result {
	return Result{
		Key:         key,
		Outcome:     outcome,
		Diagnostics: outcome.Diagnostics,
		FromCache:   fromCache,
	}
}

// failureResult builds the failure-shaped result for a backend invocation
// error, carrying one synthetic diagnostic.
func failureResult(key source.Key, err error) Result {
	return Result{
		Key:         key,
		Diagnostics: []parse.Diagnostic{parse.SyntheticDiagnostic(err)},
	}
}
