package index

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
)

const (
	// DefaultRecentSize bounds the recently-used index cache.
	DefaultRecentSize = 100

	// DefaultBatchSize is how many files a bulk-indexing batch holds.
	DefaultBatchSize = 10

	// DefaultWorkers bounds concurrent parses within a batch.
	DefaultWorkers = 4
)

// Parser is the lightweight parse path the service uses when it has to
// derive an index from scratch. The workspace source list is empty on this
// path so indexing one file never fans out into the whole workspace.
type Parser interface {
	ParseLightweight(ctx context.Context, key source.Key, content string, phase parse.Phase) (*parse.Outcome, error)
}

// ProgressFunc receives bulk-indexing progress: indexed is monotonically
// increasing and reaches total exactly when every file has been processed,
// success or failure.
type ProgressFunc func(indexed, total int)

// Service maintains per-file symbol indices.
type Service struct {
	recent *lru.Cache[source.Key, *SymbolIndex]

	mu        sync.RWMutex
	workspace map[source.Key]*SymbolIndex

	store     *Store
	parser    Parser
	content   source.ContentProvider
	logger    *slog.Logger
	batchSize int
	workers   int
}

// ServiceOptions configures a Service. Zero values take the defaults.
type ServiceOptions struct {
	RecentSize int
	BatchSize  int
	Workers    int
	// Store is the optional persistent backing for the workspace map; its
	// contents seed the map at construction.
	Store   *Store
	Parser  Parser
	Content source.ContentProvider
	Logger  *slog.Logger
}

// NewService creates a symbol indexing service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.RecentSize <= 0 {
		opts.RecentSize = DefaultRecentSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	recent, err := lru.New[source.Key, *SymbolIndex](opts.RecentSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		recent:    recent,
		workspace: make(map[source.Key]*SymbolIndex),
		store:     opts.Store,
		parser:    opts.Parser,
		content:   opts.Content,
		logger:    opts.Logger,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
	}

	if s.store != nil {
		persisted, err := s.store.LoadAll()
		if err != nil {
			s.logger.Warn("failed to load persisted symbol indices", "err", err)
		} else {
			s.workspace = persisted
			if s.workspace == nil {
				s.workspace = make(map[source.Key]*SymbolIndex)
			}
		}
	}

	return s, nil
}

// IndexFile returns the symbol index for key, deriving it from the file's
// current content when the recent cache misses. The derived index lands in
// both stores. Missing or unreadable files return nil without error.
func (s *Service) IndexFile(ctx context.Context, key source.Key) *SymbolIndex {
	if si, ok := s.recent.Get(key); ok {
		return si
	}

	content, ok := s.content.ReadContent(key)
	if !ok {
		return nil
	}

	outcome, err := s.parser.ParseLightweight(ctx, key, content, parse.PhaseConversion)
	if err != nil {
		s.logger.Warn("indexing parse failed", "file", key, "err", err)
		return nil
	}

	si := Build(key, outcome.Model)
	s.storeBoth(key, si)

	return si
}

// SymbolIndexFor returns the recent-cache index for key. On a miss with a
// non-nil supplier, the index is built from the supplied model and stored
// in the recent cache only — this path serves "just compiled this file
// interactively", not bulk indexing.
func (s *Service) SymbolIndexFor(key source.Key, supplier func() *parse.Module) *SymbolIndex {
	if si, ok := s.recent.Get(key); ok {
		return si
	}

	if supplier == nil {
		return nil
	}

	si := Build(key, supplier())
	s.recent.Add(key, si)

	return si
}

// AcceptOutcome ingests a freshly compiled file's model into the recent
// cache. This is the orchestrator's asynchronous hand-off target.
func (s *Service) AcceptOutcome(key source.Key, model *parse.Module) {
	s.recent.Add(key, Build(key, model))
}

// IndexWorkspace bulk-indexes the given files in fixed-size batches. Files
// within a batch are parsed concurrently on a bounded pool and the whole
// batch completes before the next starts. Every file increments the shared
// counter exactly once — failures are logged and skipped, never abort the
// run. onProgress may be called out of input order within a batch, but the
// counter it sees is monotonically increasing.
func (s *Service) IndexWorkspace(ctx context.Context, keys []source.Key, onProgress ProgressFunc) error {
	total := len(keys)
	var indexed atomic.Int64

	for start := 0; start < total; start += s.batchSize {
		end := min(start+s.batchSize, total)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)

		for _, key := range keys[start:end] {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				if si := s.IndexFile(gctx, key); si == nil {
					s.logger.Warn("skipping unindexable file", "file", key)
				}

				done := int(indexed.Add(1))
				if onProgress != nil {
					onProgress(done, total)
				}

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

// AllSymbolIndices merges snapshots of the recent cache and the workspace
// map. On conflicting entries the workspace copy is authoritative; the
// recent copy is reported as stale, not silently replaced.
func (s *Service) AllSymbolIndices() map[source.Key]*SymbolIndex {
	merged := make(map[source.Key]*SymbolIndex)

	for _, key := range s.recent.Keys() {
		if si, ok := s.recent.Peek(key); ok {
			merged[key] = si
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for key, si := range s.workspace {
		if existing, ok := merged[key]; ok && existing != si {
			s.logger.Debug("stale recent-cache symbol index superseded by workspace copy", "file", key)
		}

		merged[key] = si
	}

	return merged
}

// WorkspaceSize returns how many files the workspace map covers.
func (s *Service) WorkspaceSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.workspace)
}

// Invalidate removes key from both stores.
func (s *Service) Invalidate(key source.Key) {
	s.recent.Remove(key)

	s.mu.Lock()
	delete(s.workspace, key)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(key); err != nil {
			s.logger.Warn("failed to delete persisted index", "file", key, "err", err)
		}
	}
}

// Clear empties both stores.
func (s *Service) Clear() {
	s.recent.Purge()

	s.mu.Lock()
	s.workspace = make(map[source.Key]*SymbolIndex)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Clear(); err != nil {
			s.logger.Warn("failed to clear persisted indices", "err", err)
		}
	}
}

// storeBoth records an index in the recent cache, the workspace map, and
// the persistent store when configured.
func (s *Service) storeBoth(key source.Key, si *SymbolIndex) {
	s.recent.Add(key, si)

	s.mu.Lock()
	s.workspace[key] = si
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Put(si); err != nil {
			s.logger.Warn("failed to persist symbol index", "file", key, "err", err)
		}
	}
}
