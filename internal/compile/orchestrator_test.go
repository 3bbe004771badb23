package compile

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-tools/gls/internal/cache"
	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
	"github.com/groovy-tools/gls/internal/worker"
)

const scriptBase = "groovy.lang.Script"

type stubWorkspace struct {
	roots   []string
	sources []source.Key
}

func (s stubWorkspace) ClasspathFor(source.Key, string) []string { return nil }
func (s stubWorkspace) SourceRoots() []string                    { return s.roots }
func (s stubWorkspace) WorkspaceSources() []source.Key           { return s.sources }

// countingBackend counts invocations and delegates to fn.
type countingBackend struct {
	calls atomic.Int32
	fn    parse.BackendFunc
}

func (b *countingBackend) Parse(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
	b.calls.Add(1)
	return b.fn(ctx, req)
}

func outcomeWith(typeName, superclass string) *parse.Outcome {
	module := &parse.Module{
		Types: []parse.TypeDecl{{Name: typeName, Superclass: superclass}},
	}

	return &parse.Outcome{AST: module, Model: module, Successful: true}
}

func testWorker(id, versions string, backend parse.Backend) *worker.Descriptor {
	r, err := worker.ParseRange(versions)
	if err != nil {
		panic(err)
	}

	return &worker.Descriptor{
		ID:             id,
		Versions:       r,
		ScriptBaseType: scriptBase,
		Connector:      backend,
	}
}

type rig struct {
	cache  *cache.CompilationCache
	router *worker.Router
	orch   *Orchestrator
}

func newRig(backend parse.Backend, hint *worker.Version, workers ...*worker.Descriptor) *rig {
	if len(workers) == 0 {
		workers = []*worker.Descriptor{testWorker("jvm-4", "4.0+", backend)}
	}

	c := cache.New()
	r := worker.NewRouter(nil, workers...)

	o := NewOrchestrator(Options{
		Cache:       c,
		Router:      r,
		Workspace:   stubWorkspace{roots: []string{"/workspace/src"}},
		VersionHint: hint,
	})

	return &rig{cache: c, router: r, orch: o}
}

func TestCompile_ServesExactMatchFromCache(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	first, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.True(t, first.Successful())

	second, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.True(t, second.FromCache)

	// Identical content must not reach the backend again, and the cached
	// read hands out the very same outcome object.
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Same(t, first.Outcome, second.Outcome)
}

func TestCompile_ContentChangeInvokesBackend(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	_, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)

	result, err := r.orch.Compile(context.Background(), key, "class App { int n }", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, int32(2), backend.calls.Load())

	// Only the newest content stays cached.
	assert.Equal(t, 1, r.orch.Stats().CachedResults)
}

func TestCompile_DegradedOutcomeSelfHeals(t *testing.T) {
	var healed atomic.Bool
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		if healed.Load() {
			return outcomeWith("MyScript", "com.example.BaseScript"), nil
		}

		// The shape the backend produces when it cannot resolve the declared
		// superclass: the script wrapper is silently substituted.
		return outcomeWith("MyScript", scriptBase), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/MyScript.groovy")
	content := "class MyScript extends BaseScript {}"

	first, err := r.orch.Compile(context.Background(), key, content, parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.Equal(t, scriptBase, first.Outcome.Model.Types[0].Superclass)

	// The classpath is now available: the exact-match hit is bypassed and
	// the fresh outcome overwrites the degraded one.
	healed.Store(true)

	second, err := r.orch.Compile(context.Background(), key, content, parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.Equal(t, "com.example.BaseScript", second.Outcome.Model.Types[0].Superclass)
	assert.Equal(t, int32(2), backend.calls.Load())

	// The healed outcome no longer looks degraded and is served from cache.
	third, err := r.orch.Compile(context.Background(), key, content, parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.Equal(t, int32(2), backend.calls.Load())
}

func TestCompile_BackendFailureBecomesResult(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return nil, parse.NewBackendError(parse.KindSyntax, "unexpected token at line 3, column 7", nil)
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/Broken.groovy")

	result, err := r.orch.Compile(context.Background(), key, "class {", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.False(t, result.Successful())
	assert.Nil(t, result.Outcome)
	require.Len(t, result.Diagnostics, 1)

	diag := result.Diagnostics[0]
	assert.Equal(t, parse.SeverityError, diag.Severity)
	assert.Equal(t, 2, diag.Range.Start.Line)
	assert.Equal(t, 6, diag.Range.Start.Column)

	// Failures are never cached.
	assert.Equal(t, 0, r.orch.Stats().CachedResults)
}

func TestCompile_CallerCancellationPropagates(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return nil, ctx.Err()
	}}
	r := newRig(backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.orch.Compile(ctx, source.Key("/workspace/src/App.groovy"), "class App {}", parse.PhaseCanonicalization)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompile_NoCompatibleWorker(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	hint := &worker.Version{Major: 2, Minor: 0}
	r := newRig(backend, hint, testWorker("jvm-4", "4.0+", backend))

	result, err := r.orch.Compile(context.Background(), source.Key("/workspace/src/App.groovy"), "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.False(t, result.Successful())
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "no compatible worker")
	assert.Equal(t, int32(0), backend.calls.Load())
}

func TestWorkerSwitch_ClearsCache(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	w3 := testWorker("jvm-3", "3.0-3.9", backend)
	w4 := testWorker("jvm-4", "4.0+", backend)
	r := newRig(backend, nil, w3, w4)

	_, err := r.orch.Compile(context.Background(), source.Key("/workspace/src/App.groovy"), "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)
	require.Equal(t, 1, r.orch.Stats().CachedResults)

	// Force a selection change: the current worker cannot serve 3.5.
	require.Same(t, w3, r.router.Select(&worker.Version{Major: 3, Minor: 5}))

	assert.Equal(t, 0, r.orch.Stats().CachedResults)
}

func TestCompileTransient_BypassesCache(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	outcome, err := r.orch.CompileTransient(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.True(t, outcome.Successful)

	stats := r.orch.Stats()
	assert.Equal(t, 0, stats.CachedResults)
	assert.Equal(t, 0, stats.ActiveCompilations)
}

func TestParseLightweight_OmitsWorkspaceSources(t *testing.T) {
	var seen []source.Key
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		seen = req.WorkspaceSources
		return outcomeWith("App", "java.lang.Object"), nil
	}}

	workers := []*worker.Descriptor{testWorker("jvm-4", "4.0+", backend)}
	c := cache.New()
	router := worker.NewRouter(nil, workers...)
	o := NewOrchestrator(Options{
		Cache:  c,
		Router: router,
		Workspace: stubWorkspace{
			roots:   []string{"/workspace/src"},
			sources: []source.Key{"/workspace/src/A.groovy", "/workspace/src/B.groovy"},
		},
	})

	key := source.Key("/workspace/src/A.groovy")

	_, err := o.ParseLightweight(context.Background(), key, "class A {}", parse.PhaseConversion)
	require.NoError(t, err)
	assert.Empty(t, seen)

	_, err = o.Compile(context.Background(), key, "class A {}", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestCompileAsync_CoalescesInFlightRequests(t *testing.T) {
	release := make(chan struct{})
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		<-release
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	first := r.orch.CompileAsync(context.Background(), key, "class App {}")
	second := r.orch.CompileAsync(context.Background(), key, "class App { int n }")

	// The second request joins the in-flight job: same future, and the
	// eventual result reflects the content the job was started with.
	require.Same(t, first, second)
	assert.Equal(t, 1, r.orch.Stats().ActiveCompilations)

	close(release)

	result, err := first.Await(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Successful())
	assert.Equal(t, int32(1), backend.calls.Load())

	// The job is untracked once resolved.
	assert.Eventually(t, func() bool {
		return r.orch.Stats().ActiveCompilations == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCompile_InvalidateForcesReinvocation(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	_, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)

	r.cache.Invalidate(key)

	// Same content, but the entry is gone: the backend runs again.
	result, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, int32(2), backend.calls.Load())
}

func TestCompileAsync_InvalidateKeepsSuccessorJobTracked(t *testing.T) {
	releaseFirst := make(chan struct{})
	releaseSecond := make(chan struct{})
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		if req.Content == "class App {}" {
			<-releaseFirst
		} else {
			<-releaseSecond
		}

		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	first := r.orch.CompileAsync(context.Background(), key, "class App {}")

	// A disk change drops the in-flight job from the registry; the next
	// request starts a fresh one.
	r.cache.Invalidate(key)
	second := r.orch.CompileAsync(context.Background(), key, "class App { int n }")
	require.NotSame(t, first, second)

	close(releaseFirst)
	_, err := first.Await(context.Background())
	require.NoError(t, err)

	// The displaced job finishing must not remove the live job's
	// registration: callers keep coalescing onto it.
	assert.Never(t, func() bool {
		return r.orch.Stats().ActiveCompilations == 0
	}, 100*time.Millisecond, 10*time.Millisecond)
	assert.Same(t, second, r.orch.CompileAsync(context.Background(), key, "class App { int n }"))

	close(releaseSecond)
	_, err = second.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.calls.Load())

	assert.Eventually(t, func() bool {
		return r.orch.Stats().ActiveCompilations == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCompileAsync_NewJobAfterCompletion(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	first := r.orch.CompileAsync(context.Background(), key, "class App {}")
	_, err := first.Await(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return r.orch.Stats().ActiveCompilations == 0
	}, time.Second, 5*time.Millisecond)

	second := r.orch.CompileAsync(context.Background(), key, "class App {}")
	assert.NotSame(t, first, second)

	_, err = second.Await(context.Background())
	require.NoError(t, err)
}

func TestEnsureCompiled_AwaitsActiveJob(t *testing.T) {
	release := make(chan struct{})
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		<-release
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	r.orch.CompileAsync(context.Background(), key, "class App {}")

	type answer struct {
		result Result
		ok     bool
	}
	got := make(chan answer, 1)

	go func() {
		result, ok := r.orch.EnsureCompiled(context.Background(), key)
		got <- answer{result, ok}
	}()

	close(release)

	select {
	case a := <-got:
		require.True(t, a.ok)
		assert.True(t, a.result.Successful())
	case <-time.After(time.Second):
		t.Fatal("EnsureCompiled did not resolve")
	}
}

func TestEnsureCompiled_FallsBackToCache(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	_, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)

	result, ok := r.orch.EnsureCompiled(context.Background(), key)
	require.True(t, ok)
	assert.True(t, result.FromCache)
	assert.True(t, result.Successful())
}

func TestEnsureCompiled_NothingKnown(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)

	result, ok := r.orch.EnsureCompiled(context.Background(), source.Key("/workspace/src/Unknown.groovy"))
	assert.False(t, ok)
	assert.Equal(t, Result{}, result)
}

func TestEnsureCompiled_CancelledJobFallsBackToCache(t *testing.T) {
	var fail atomic.Bool
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		if fail.Load() {
			return nil, context.Canceled
		}

		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	key := source.Key("/workspace/src/App.groovy")

	// Seed the cache with a good outcome, then run a job whose own task is
	// cancelled. EnsureCompiled must still answer from the cache.
	_, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)

	fail.Store(true)
	job := r.orch.CompileAsync(context.Background(), key, "class App { int n }")
	<-job.Done()

	result, ok := r.orch.EnsureCompiled(context.Background(), key)
	require.True(t, ok)
	assert.True(t, result.FromCache)
}

type recordingSink struct {
	got chan source.Key
}

func (s *recordingSink) AcceptOutcome(key source.Key, model *parse.Module) {
	s.got <- key
}

func TestCompile_HandsOutcomeToSink(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, req parse.Request) (*parse.Outcome, error) {
		return outcomeWith("App", "java.lang.Object"), nil
	}}
	r := newRig(backend, nil)
	sink := &recordingSink{got: make(chan source.Key, 1)}
	r.orch.SetSink(sink)

	key := source.Key("/workspace/src/App.groovy")

	_, err := r.orch.Compile(context.Background(), key, "class App {}", parse.PhaseCanonicalization)
	require.NoError(t, err)

	select {
	case got := <-sink.got:
		assert.Equal(t, key, got)
	case <-time.After(time.Second):
		t.Fatal("sink never received the outcome")
	}
}
