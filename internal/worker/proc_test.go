package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
)

// fakeCommander stubs the worker process invocation.
type fakeCommander struct {
	stdout []byte
	err    error
	stdin  []byte
}

func (f *fakeCommander) Output() ([]byte, error) {
	return f.stdout, f.err
}

func (f *fakeCommander) SetStdin(r *bytes.Reader) {
	buf := make([]byte, r.Len())
	_, _ = r.Read(buf)
	f.stdin = buf
}

func procWithFake(fake *fakeCommander) *ProcBackend {
	b := NewProcBackend([]string{"java", "-jar", "worker.jar"}, nil)
	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		return fake
	}

	return b
}

func request() parse.Request {
	return parse.Request{
		Key:     source.Key("/workspace/App.groovy"),
		Content: "class App {}",
		Phase:   parse.PhaseCanonicalization,
	}
}

func TestProcBackend_Success(t *testing.T) {
	resp := wireResponse{
		Successful: true,
		Module: &parse.Module{
			Types: []parse.TypeDecl{{Name: "App", Superclass: "Object"}},
		},
	}
	body, err := json.Marshal(resp)
	require.NoError(t, err)

	fake := &fakeCommander{stdout: body}
	b := procWithFake(fake)

	outcome, err := b.Parse(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, outcome.Successful)
	assert.NotNil(t, outcome.AST)
	require.NotNil(t, outcome.Model)
	require.Len(t, outcome.Model.Types, 1)
	assert.Equal(t, "App", outcome.Model.Types[0].Name)

	// The request went to the worker's stdin as JSON
	var sent wireRequest
	require.NoError(t, json.Unmarshal(fake.stdin, &sent))
	assert.Equal(t, "/workspace/App.groovy", sent.File)
	assert.Equal(t, "class App {}", sent.Content)
	assert.Equal(t, "canonicalization", sent.Phase)
}

func TestProcBackend_ErrorObjectInResponse(t *testing.T) {
	body, err := json.Marshal(wireResponse{
		Error: &wireError{Kind: "invalid-argument", Message: "unknown phase"},
	})
	require.NoError(t, err)

	b := procWithFake(&fakeCommander{stdout: body})

	_, err = b.Parse(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, parse.KindInvalidArgument, parse.KindOf(err))
	assert.Contains(t, err.Error(), "unknown phase")
}

func TestProcBackend_MalformedResponse(t *testing.T) {
	b := procWithFake(&fakeCommander{stdout: []byte("not json")})

	_, err := b.Parse(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, parse.KindUnexpected, parse.KindOf(err))
}

func TestProcBackend_NoCommand(t *testing.T) {
	b := NewProcBackend(nil, nil)

	_, err := b.Parse(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, parse.KindInvalidState, parse.KindOf(err))
}

func TestKindForExit(t *testing.T) {
	assert.Equal(t, parse.KindSyntax, kindForExit(10))
	assert.Equal(t, parse.KindInvalidArgument, kindForExit(11))
	assert.Equal(t, parse.KindInvalidState, kindForExit(12))
	assert.Equal(t, parse.KindIO, kindForExit(13))
	assert.Equal(t, parse.KindUnexpected, kindForExit(1))
	assert.Equal(t, parse.KindUnexpected, kindForExit(42))
}

func TestKindForName(t *testing.T) {
	assert.Equal(t, parse.KindSyntax, kindForName("syntax"))
	assert.Equal(t, parse.KindIO, kindForName("io"))
	assert.Equal(t, parse.KindUnexpected, kindForName("whatever"))
}

func TestProcBackend_ExitError(t *testing.T) {
	// A real *exec.ExitError can't be constructed portably; classify the
	// plain-error path instead: non-exit errors map to IO.
	b := procWithFake(&fakeCommander{err: exec.ErrNotFound})

	_, err := b.Parse(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, parse.KindIO, parse.KindOf(err))
}
