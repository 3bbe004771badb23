package config

import (
	"os"
	"path/filepath"
)

// configExtensions, in lookup order.
var configExtensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig walks from dir toward the filesystem root and returns the
// first .gls config file found, or "" when no ancestor carries one. The
// nearest file wins so a nested workspace can override a repository-wide
// config.
func FindLocalConfig(dir string) string {
	for {
		if path := localConfigIn(dir); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}

// localConfigIn returns the config file directly inside dir, or "".
func localConfigIn(dir string) string {
	for _, ext := range configExtensions {
		path := filepath.Join(dir, ".gls."+ext)

		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}

	return ""
}
