package cmd

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/groovy-tools/gls/internal/cache"
	"github.com/groovy-tools/gls/internal/compile"
	"github.com/groovy-tools/gls/internal/config"
	"github.com/groovy-tools/gls/internal/index"
	"github.com/groovy-tools/gls/internal/source"
	"github.com/groovy-tools/gls/internal/worker"
)

// scriptSuffixes are the file endings treated as workspace scripts.
var scriptSuffixes = []string{".groovy", ".gradle", ".gvy"}

// services bundles the wired core for one command invocation.
type services struct {
	cfg          *config.Config
	logger       *slog.Logger
	cache        *cache.CompilationCache
	router       *worker.Router
	orchestrator *compile.Orchestrator
	index        *index.Service
	store        *index.Store
}

// close releases held resources.
func (s *services) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

// buildServices loads configuration and wires the compilation core:
// cache, router with configured workers, orchestrator, indexing service.
// withStore controls whether the persistent symbol index is opened.
func buildServices(cmd *cobra.Command, withStore bool) (*services, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.NewLoader().LoadForWorkspace(cmd, cwd)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	workers, err := buildWorkers(cfg, logger)
	if err != nil {
		return nil, err
	}

	router := worker.NewRouter(logger, workers...)

	var hint *worker.Version
	if cfg.LanguageVersion != "" {
		v, err := worker.ParseVersion(cfg.LanguageVersion)
		if err != nil {
			return nil, err
		}

		hint = &v
	}

	compilationCache := cache.New()
	workspace := &workspaceContext{cfg: cfg}

	orchestrator := compile.NewOrchestrator(compile.Options{
		Cache:       compilationCache,
		Router:      router,
		Workspace:   workspace,
		Logger:      logger,
		VersionHint: hint,
	})

	var store *index.Store
	if withStore {
		if err := os.MkdirAll(filepath.Dir(cfg.IndexDB), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}

		store, err = index.OpenStore(cfg.IndexDB)
		if err != nil {
			return nil, err
		}
	}

	indexService, err := index.NewService(index.ServiceOptions{
		RecentSize: cfg.RecentIndexSize,
		BatchSize:  cfg.IndexBatchSize,
		Workers:    cfg.IndexWorkers,
		Store:      store,
		Parser:     orchestrator,
		Content:    source.NewFileProvider(),
		Logger:     logger,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	orchestrator.SetSink(indexService)

	// A worker switch invalidates derived symbol state too, not just the
	// compilation cache.
	router.OnSelectionChanged(func(old, new *worker.Descriptor) {
		indexService.Clear()
	})

	return &services{
		cfg:          cfg,
		logger:       logger,
		cache:        compilationCache,
		router:       router,
		orchestrator: orchestrator,
		index:        indexService,
		store:        store,
	}, nil
}

// buildWorkers turns worker configurations into descriptors. Without any
// configuration the built-in tree-sitter worker serves all versions.
func buildWorkers(cfg *config.Config, logger *slog.Logger) ([]*worker.Descriptor, error) {
	if len(cfg.Workers) == 0 {
		return []*worker.Descriptor{defaultSitterWorker(logger)}, nil
	}

	descriptors := make([]*worker.Descriptor, 0, len(cfg.Workers))
	for _, wc := range cfg.Workers {
		versions, err := worker.ParseRange(wc.Versions)
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", wc.ID, err)
		}

		capabilities := make([]worker.Capability, 0, len(wc.Capabilities))
		for _, c := range wc.Capabilities {
			capabilities = append(capabilities, worker.Capability(c))
		}

		d := &worker.Descriptor{
			ID:             wc.ID,
			Versions:       versions,
			Capabilities:   capabilities,
			ScriptBaseType: wc.ScriptBaseType,
		}

		if len(wc.Command) > 0 {
			d.Connector = worker.NewProcBackend(wc.Command, logger)
		} else {
			d.Connector = worker.NewSitterBackend(logger)
		}

		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

func defaultSitterWorker(logger *slog.Logger) *worker.Descriptor {
	versions, _ := worker.ParseRange("2.0+")

	return &worker.Descriptor{
		ID:             "sitter",
		Versions:       versions,
		Capabilities:   []worker.Capability{worker.CapHover, worker.CapDefinition},
		ScriptBaseType: config.DefaultScriptBaseType,
		Connector:      worker.NewSitterBackend(logger),
	}
}

// workspaceContext adapts the loaded configuration to the orchestrator's
// workspace interface. The source listing is computed per call so newly
// created files are picked up.
type workspaceContext struct {
	cfg *config.Config
}

func (w *workspaceContext) ClasspathFor(key source.Key, content string) []string {
	return w.cfg.Classpath
}

func (w *workspaceContext) SourceRoots() []string {
	return w.cfg.SourceRoots
}

func (w *workspaceContext) WorkspaceSources() []source.Key {
	return collectSources(w.cfg.SourceRoots)
}

// collectSources walks the roots gathering script files, sorted for
// deterministic requests.
func collectSources(roots []string) []source.Key {
	var keys []source.Key

	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable subtree, skip
			}

			if d.IsDir() {
				return nil
			}

			for _, suffix := range scriptSuffixes {
				if strings.HasSuffix(path, suffix) {
					keys = append(keys, source.KeyFor(path))
					break
				}
			}

			return nil
		})
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
