package parse

import "context"

// Backend is a parse worker. Implementations must be safe for concurrent
// use; every call is independent.
//
// Expected compile problems (syntax errors, unresolved names) are reported
// through the returned Outcome's Diagnostics with Successful=false, not as
// errors. An error return means the invocation itself failed and should be
// a *BackendError when the failure category is known.
type Backend interface {
	Parse(ctx context.Context, req Request) (*Outcome, error)
}

// BackendFunc adapts a function to the Backend interface. Used heavily in
// tests to stub workers.
type BackendFunc func(ctx context.Context, req Request) (*Outcome, error)

func (f BackendFunc) Parse(ctx context.Context, req Request) (*Outcome, error) {
	return f(ctx, req)
}
