package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForWorkspace loads configuration for a workspace rooted at dir
func (l *Loader) LoadForWorkspace(cmd *cobra.Command, dir string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(dir)
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("language_version", DefaultLanguageVersion)
	viper.SetDefault("recent_index_size", DefaultRecentIndexSize)
	viper.SetDefault("index_batch_size", DefaultIndexBatchSize)
	viper.SetDefault("index_workers", DefaultIndexWorkers)
	viper.SetDefault("index_db", DefaultIndexDB)
	viper.SetDefault("verbose", DefaultVerbose)
}

// loadGlobalConfig loads global configuration from the user config dir
func (l *Loader) loadGlobalConfig() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return
	}

	globalDir := filepath.Join(configDir, "gls")

	for _, ext := range configExtensions {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig loads local configuration from the workspace directory
func (l *Loader) loadLocalConfig(dir string) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return // silently ignore, config.Load() will handle validation
	}

	localPath := FindLocalConfig(absDir)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.ReadInConfig()
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("language_version", cmd.Flags().Lookup("language-version"))
	_ = viper.BindPFlag("classpath", cmd.Flags().Lookup("classpath"))
	_ = viper.BindPFlag("source_roots", cmd.Flags().Lookup("source-root"))
	_ = viper.BindPFlag("index_db", cmd.Flags().Lookup("index-db"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
}
