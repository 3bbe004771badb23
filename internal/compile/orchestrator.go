// Package compile implements the compilation workflow between editor
// requests and parse backends: cache consultation, degraded-result
// detection, worker routing, write-through and symbol-index hand-off.
package compile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/groovy-tools/gls/internal/cache"
	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
	"github.com/groovy-tools/gls/internal/worker"
)

// cancelRetryBackoff is how long EnsureCompiled waits before re-awaiting a
// job whose own task was cancelled under it.
const cancelRetryBackoff = 50 * time.Millisecond

// WorkspaceContext supplies the external compilation context for a request.
type WorkspaceContext interface {
	// ClasspathFor returns the classpath for compiling the given file.
	ClasspathFor(key source.Key, content string) []string
	// SourceRoots returns the workspace's script source roots.
	SourceRoots() []string
	// WorkspaceSources lists every known script file in the workspace.
	WorkspaceSources() []source.Key
}

// SymbolSink receives successful outcomes for symbol indexing.
type SymbolSink interface {
	AcceptOutcome(key source.Key, model *parse.Module)
}

// Orchestrator coordinates compilations: it consults the cache, routes
// cache misses (and degraded hits) through the worker router, writes
// results back and hands them to the symbol indexer.
type Orchestrator struct {
	cache     *cache.CompilationCache
	router    *worker.Router
	workspace WorkspaceContext
	sink      SymbolSink
	logger    *slog.Logger

	// versionHint is the configured language version used for worker
	// selection; nil means "any".
	versionHint *worker.Version

	// startMu serializes the check-then-track step of CompileAsync so two
	// racing callers cannot both start a job for the same key.
	startMu sync.Mutex
}

// Options configures an Orchestrator.
type Options struct {
	Cache       *cache.CompilationCache
	Router      *worker.Router
	Workspace   WorkspaceContext
	Sink        SymbolSink
	Logger      *slog.Logger
	VersionHint *worker.Version
}

// NewOrchestrator wires an orchestrator and registers the cache-clearing
// hook on the router: outcomes from different workers are not
// interchangeable, so any selection change empties the cache.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		cache:       opts.Cache,
		router:      opts.Router,
		workspace:   opts.Workspace,
		sink:        opts.Sink,
		logger:      logger,
		versionHint: opts.VersionHint,
	}

	o.router.OnSelectionChanged(func(old, new *worker.Descriptor) {
		o.cache.Clear()
	})

	return o
}

// SetSink installs the symbol sink. Wiring-time only: the indexing service
// needs the orchestrator's parse path, so the two are connected after both
// exist and before any compile runs.
func (o *Orchestrator) SetSink(sink SymbolSink) {
	o.sink = sink
}

// Compile returns the current meaning of (key, content). Cached outcomes
// are served when the content matches exactly and the outcome does not look
// degraded; everything else goes through the selected backend. Backend
// failures come back as a failure-shaped Result, never as an error; the
// only error returned is the caller's own context cancellation.
func (o *Orchestrator) Compile(ctx context.Context, key source.Key, content string, phase parse.Phase) (Result, error) {
	w := o.router.Select(o.versionHint)

	if cached := o.cache.Lookup(key, content); cached != nil {
		if !o.looksDegraded(cached, w) {
			return resultFrom(key, cached, true), nil
		}

		// Recompute and overwrite rather than marking the entry: once the
		// classpath is available the fresh result self-heals the cache.
		o.logger.Info("cached outcome looks degraded, recompiling", "file", key)
	}

	outcome, err := o.invoke(ctx, w, key, content, phase, o.workspace.WorkspaceSources())
	if err != nil {
		if isCancellation(err) {
			return Result{}, err
		}

		o.logger.Warn("backend invocation failed", "file", key, "kind", parse.KindOf(err).String(), "err", err)
		return failureResult(key, err), nil
	}

	if outcome.AST != nil {
		o.cache.Store(key, content, outcome)

		if o.sink != nil && outcome.Model != nil {
			// Indexing is off the request path; the outcome is immutable
			// so sharing it with the sink is safe.
			go o.sink.AcceptOutcome(key, outcome.Model)
		}
	}

	return resultFrom(key, outcome, false), nil
}

// CompileTransient compiles without reading or writing the cache and
// without touching job tracking. Used for speculative compiles such as
// completion against modified-in-memory content.
func (o *Orchestrator) CompileTransient(ctx context.Context, key source.Key, content string, phase parse.Phase) (*parse.Outcome, error) {
	w := o.router.Select(o.versionHint)
	return o.invoke(ctx, w, key, content, phase, o.workspace.WorkspaceSources())
}

// ParseLightweight compiles outside the cache with an empty workspace
// source list, preventing the backend from recursively expanding the whole
// workspace. This is the indexing service's parse path.
func (o *Orchestrator) ParseLightweight(ctx context.Context, key source.Key, content string, phase parse.Phase) (*parse.Outcome, error) {
	w := o.router.Select(o.versionHint)
	return o.invoke(ctx, w, key, content, phase, nil)
}

// CompileAsync starts (or joins) the asynchronous compilation of key. If a
// job is already in flight for key it is returned unchanged, even when the
// caller holds newer content than the job was started with — such a caller
// receives a result for the old content and must invalidate and re-request
// if it needs freshness. The job is untracked on every exit path.
func (o *Orchestrator) CompileAsync(ctx context.Context, key source.Key, content string) *Job {
	o.startMu.Lock()

	if existing, ok := o.cache.ActiveJob(key).(*Job); ok && existing != nil {
		o.startMu.Unlock()
		return existing
	}

	job := newJob(key)
	o.cache.TrackJob(key, job)
	o.startMu.Unlock()

	go func() {
		defer o.cache.UntrackJob(key, job)

		result, err := o.Compile(ctx, key, content, parse.PhaseCanonicalization)
		job.complete(result, err)
	}()

	return job
}

// EnsureCompiled returns whatever is known about key: the result of the
// active job if one is running, else a content-agnostic cache read. When
// awaiting a job that is itself cancelled, the await is retried once after
// a short backoff before falling back to the cache. ok=false means nothing
// is known yet — that is not an error.
func (o *Orchestrator) EnsureCompiled(ctx context.Context, key source.Key) (Result, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		job, _ := o.cache.ActiveJob(key).(*Job)
		if job == nil {
			break
		}

		result, err := job.Await(ctx)
		if err == nil {
			return result, true
		}

		if ctx.Err() != nil {
			// The caller itself is gone; nothing useful to return.
			return Result{}, false
		}

		// The job's own task was cancelled. Back off briefly and retry the
		// await once — a replacement job may already be running.
		if attempt == 0 {
			select {
			case <-time.After(cancelRetryBackoff):
			case <-ctx.Done():
				return Result{}, false
			}
		}
	}

	if outcome := o.cache.LookupAny(key); outcome != nil {
		return resultFrom(key, outcome, true), true
	}

	return Result{}, false
}

// Stats exposes cache statistics for operational introspection.
func (o *Orchestrator) Stats() cache.Statistics {
	return o.cache.Stats()
}

// looksDegraded applies the degraded-script heuristic: a module with
// exactly one top-level type whose superclass is the backend's script base
// type is the shape the backend produces when it cannot resolve a declared
// superclass and silently substitutes the script wrapper. A file that
// genuinely extends the script base type is indistinguishable and gets
// recompiled too — idempotent, just extra work.
func (o *Orchestrator) looksDegraded(outcome *parse.Outcome, w *worker.Descriptor) bool {
	if w == nil || w.ScriptBaseType == "" || outcome.Model == nil {
		return false
	}

	types := outcome.Model.Types
	return len(types) == 1 && types[0].Superclass == w.ScriptBaseType
}

// invoke runs the backend call with a fully built request. A nil worker is
// reported as an invalid-state failure, not a crash.
func (o *Orchestrator) invoke(ctx context.Context, w *worker.Descriptor, key source.Key, content string, phase parse.Phase, sources []source.Key) (*parse.Outcome, error) {
	if w == nil {
		return nil, parse.NewBackendError(parse.KindInvalidState,
			"no compatible worker for language version", nil)
	}

	roots := o.workspace.SourceRoots()

	req := parse.Request{
		Key:               key,
		Content:           content,
		Classpath:         o.workspace.ClasspathFor(key, content),
		SourceRoots:       roots,
		WorkspaceSources:  sources,
		LocatorCandidates: key.Candidates(roots),
		Phase:             phase,
	}

	outcome, err := w.Connector.Parse(ctx, req)
	if err != nil {
		return nil, err
	}

	if outcome == nil {
		return nil, parse.NewBackendError(parse.KindUnexpected, "backend returned no outcome", nil)
	}

	return outcome, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
