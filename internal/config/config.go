package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultLanguageVersion = "4.0"
	DefaultScriptBaseType  = "groovy.lang.Script"
	DefaultRecentIndexSize = 100
	DefaultIndexBatchSize  = 10
	DefaultIndexWorkers    = 4
	DefaultIndexDB         = ".gls/index.db"
	DefaultVerbose         = false
)

// WorkerConfig describes one configured parse worker.
type WorkerConfig struct {
	// ID uniquely names the worker.
	ID string `mapstructure:"id"`

	// Versions is the supported language-version range, e.g. "3.0-4.0" or
	// "4.0+".
	Versions string `mapstructure:"versions"`

	// Command launches the external worker process; empty for the built-in
	// tree-sitter worker.
	Command []string `mapstructure:"command"`

	// ScriptBaseType is the implicit script superclass this worker
	// substitutes for unresolvable user superclasses.
	ScriptBaseType string `mapstructure:"script_base_type"`

	// Capabilities the worker declares (hover, definition, completion,
	// type-checking).
	Capabilities []string `mapstructure:"capabilities"`
}

// Holds the configuration options for gls
type Config struct {
	// Language version used for worker selection
	LanguageVersion string

	// Classpath entries handed to parse workers
	Classpath []string

	// Workspace script source roots
	SourceRoots []string

	// Capacity of the recently-used symbol index cache
	RecentIndexSize int

	// Files per bulk-indexing batch
	IndexBatchSize int

	// Concurrent parses within a batch
	IndexWorkers int

	// Path of the persistent symbol index database
	IndexDB string

	// Configured parse workers
	Workers []WorkerConfig

	// Enable verbose output
	Verbose bool
}

func Load() (*Config, error) {
	cfg := &Config{
		LanguageVersion: viper.GetString("language_version"),
		Classpath:       viper.GetStringSlice("classpath"),
		SourceRoots:     viper.GetStringSlice("source_roots"),
		RecentIndexSize: viper.GetInt("recent_index_size"),
		IndexBatchSize:  viper.GetInt("index_batch_size"),
		IndexWorkers:    viper.GetInt("index_workers"),
		IndexDB:         viper.GetString("index_db"),
		Verbose:         viper.GetBool("verbose"),
	}

	if err := viper.UnmarshalKey("workers", &cfg.Workers); err != nil {
		return nil, fmt.Errorf("invalid workers configuration: %w", err)
	}

	// Apply defaults if not set
	if cfg.LanguageVersion == "" {
		cfg.LanguageVersion = DefaultLanguageVersion
	}

	if cfg.RecentIndexSize <= 0 {
		cfg.RecentIndexSize = DefaultRecentIndexSize
	}

	if cfg.IndexBatchSize <= 0 {
		cfg.IndexBatchSize = DefaultIndexBatchSize
	}

	if cfg.IndexWorkers <= 0 {
		cfg.IndexWorkers = DefaultIndexWorkers
	}

	if cfg.IndexDB == "" {
		cfg.IndexDB = DefaultIndexDB
	}

	if len(cfg.SourceRoots) == 0 {
		cfg.SourceRoots = []string{"."}
	}

	for i := range cfg.Workers {
		if cfg.Workers[i].ScriptBaseType == "" {
			cfg.Workers[i].ScriptBaseType = DefaultScriptBaseType
		}
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	// Resolve source roots
	for i, root := range c.SourceRoots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("invalid source root %q: %v", root, err)
		}

		c.SourceRoots[i] = abs
	}

	// Resolve classpath entries
	for i, entry := range c.Classpath {
		if entry == "" {
			continue
		}

		abs, err := filepath.Abs(entry)
		if err != nil {
			return fmt.Errorf("invalid classpath entry %q: %v", entry, err)
		}

		c.Classpath[i] = abs
	}

	// Resolve index database path
	if abs, err := filepath.Abs(c.IndexDB); err == nil {
		c.IndexDB = abs
	}

	// Validate worker definitions
	seen := make(map[string]bool, len(c.Workers))
	for _, w := range c.Workers {
		if w.ID == "" {
			return fmt.Errorf("worker without id")
		}

		if seen[w.ID] {
			return fmt.Errorf("duplicate worker id: %s", w.ID)
		}

		seen[w.ID] = true
	}

	return nil
}
