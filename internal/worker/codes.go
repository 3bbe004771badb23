package worker

import "github.com/groovy-tools/gls/internal/parse"

// exitKinds maps JVM worker exit codes to backend failure categories. The
// worker protocol reserves 0 for success (including compiles that produced
// error diagnostics) and the codes below for invocation failures.
var exitKinds = map[int]parse.ErrorKind{
	10: parse.KindSyntax,
	11: parse.KindInvalidArgument,
	12: parse.KindInvalidState,
	13: parse.KindIO,
}

// kindForExit classifies a worker process exit code.
func kindForExit(code int) parse.ErrorKind {
	if kind, ok := exitKinds[code]; ok {
		return kind
	}

	return parse.KindUnexpected
}

// kindForName classifies an error kind string reported inside a worker
// response body.
func kindForName(name string) parse.ErrorKind {
	switch name {
	case "syntax":
		return parse.KindSyntax
	case "invalid-argument":
		return parse.KindInvalidArgument
	case "invalid-state":
		return parse.KindInvalidState
	case "io":
		return parse.KindIO
	default:
		return parse.KindUnexpected
	}
}
