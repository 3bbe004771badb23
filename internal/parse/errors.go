package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrorKind is the failure category of a backend invocation. It drives the
// synthetic diagnostic the orchestrator produces at its error boundary.
type ErrorKind int

const (
	// KindUnexpected covers anything not classified below.
	KindUnexpected ErrorKind = iota
	// KindSyntax marks syntax-like failures the backend raised instead of
	// reporting as diagnostics.
	KindSyntax
	// KindInvalidArgument marks malformed requests (bad path, bad phase).
	KindInvalidArgument
	// KindInvalidState marks backend lifecycle problems (not started, shut
	// down, no compatible worker).
	KindInvalidState
	// KindIO marks filesystem and transport failures.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindInvalidState:
		return "invalid-state"
	case KindIO:
		return "io"
	default:
		return "unexpected"
	}
}

// BackendError is a classified backend invocation failure.
type BackendError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError builds a classified backend failure.
func NewBackendError(kind ErrorKind, message string, err error) *BackendError {
	return &BackendError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure category from an error, defaulting to
// KindUnexpected for unclassified errors.
func KindOf(err error) ErrorKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}

	return KindUnexpected
}

// positionPattern tolerantly matches "line N" with an optional
// ", column M" (or ", col M") suffix in backend error text. Positions in
// messages are 1-based.
var positionPattern = regexp.MustCompile(`(?i)line\s+(\d+)(?:\s*,\s*col(?:umn)?\s+(\d+))?`)

// PositionFromMessage extracts a best-effort zero-based position from a raw
// backend message. Missing or unparsable positions yield (0,0); parsed
// values are clamped at zero.
func PositionFromMessage(msg string) Position {
	m := positionPattern.FindStringSubmatch(msg)
	if m == nil {
		return Position{}
	}

	pos := Position{}
	if line, err := strconv.Atoi(m[1]); err == nil {
		pos.Line = max(line-1, 0)
	}

	if m[2] != "" {
		if col, err := strconv.Atoi(m[2]); err == nil {
			pos.Column = max(col-1, 0)
		}
	}

	return pos
}

// SyntheticDiagnostic converts a backend failure into the single diagnostic
// a failure-shaped compilation result carries.
func SyntheticDiagnostic(err error) Diagnostic {
	pos := PositionFromMessage(err.Error())

	return Diagnostic{
		Message:  fmt.Sprintf("%s failure: %v", KindOf(err), err),
		Severity: SeverityError,
		Range:    Range{Start: pos, End: pos},
	}
}
