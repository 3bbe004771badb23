package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/groovy-tools/gls/internal/parse"
)

// Commander abstracts the worker process invocation for testing.
type Commander interface {
	Output() ([]byte, error)
	SetStdin(r *bytes.Reader)
}

type execCmd struct {
	*exec.Cmd
}

func (c execCmd) SetStdin(r *bytes.Reader) {
	c.Stdin = r
}

// ProcBackend invokes an external JVM parse worker per request. The request
// is written as JSON to the worker's stdin and the outcome read as JSON from
// its stdout; invocation failures are reported either through the process
// exit code or an error object in the response body.
type ProcBackend struct {
	command     []string
	logger      *slog.Logger
	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// NewProcBackend creates a backend that runs command (program + args) for
// every parse request.
func NewProcBackend(command []string, logger *slog.Logger) *ProcBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProcBackend{
		command: command,
		logger:  logger,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return execCmd{exec.CommandContext(ctx, name, args...)}
		},
	}
}

// wireRequest is the JSON request body sent to the worker process.
type wireRequest struct {
	File             string   `json:"file"`
	Content          string   `json:"content"`
	Classpath        []string `json:"classpath,omitempty"`
	SourceRoots      []string `json:"source_roots,omitempty"`
	WorkspaceSources []string `json:"workspace_sources,omitempty"`
	Locators         []string `json:"locators,omitempty"`
	Phase            string   `json:"phase"`
}

// wireResponse is the JSON outcome body read from the worker process.
type wireResponse struct {
	Successful  bool               `json:"successful"`
	Diagnostics []parse.Diagnostic `json:"diagnostics,omitempty"`
	Module      *parse.Module      `json:"module,omitempty"`
	Error       *wireError         `json:"error,omitempty"`
}

type wireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (b *ProcBackend) Parse(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
	if len(b.command) == 0 {
		return nil, parse.NewBackendError(parse.KindInvalidState, "worker command not configured", nil)
	}

	sources := make([]string, len(req.WorkspaceSources))
	for i, key := range req.WorkspaceSources {
		sources[i] = key.String()
	}

	body, err := json.Marshal(wireRequest{
		File:             req.Key.String(),
		Content:          req.Content,
		Classpath:        req.Classpath,
		SourceRoots:      req.SourceRoots,
		WorkspaceSources: sources,
		Locators:         req.LocatorCandidates,
		Phase:            req.Phase.String(),
	})
	if err != nil {
		return nil, parse.NewBackendError(parse.KindInvalidArgument, "encode worker request", err)
	}

	cmd := b.execCommand(ctx, b.command[0], b.command[1:]...)
	cmd.SetStdin(bytes.NewReader(body))

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			b.logger.Warn("worker process failed", "exit_code", code, "file", req.Key)

			return nil, parse.NewBackendError(kindForExit(code),
				fmt.Sprintf("worker exited with code %d", code), err)
		}

		return nil, parse.NewBackendError(parse.KindIO, "run worker process", err)
	}

	var resp wireResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, parse.NewBackendError(parse.KindUnexpected, "decode worker response", err)
	}

	if resp.Error != nil {
		return nil, parse.NewBackendError(kindForName(resp.Error.Kind), resp.Error.Message, nil)
	}

	return outcomeFromWire(&resp), nil
}

// outcomeFromWire builds an immutable parse outcome from a decoded worker
// response. The module doubles as the opaque AST handle: an absent module
// means the worker could not produce a tree at all.
func outcomeFromWire(resp *wireResponse) *parse.Outcome {
	outcome := &parse.Outcome{
		Diagnostics: resp.Diagnostics,
		Model:       resp.Module,
		Successful:  resp.Successful,
	}

	if resp.Module != nil {
		outcome.AST = resp.Module
	}

	return outcome
}
