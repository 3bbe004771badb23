// Package source provides stable identity for workspace script files.
//
// A Key is the canonical string form of a file's location and is the sole
// key used by the compilation cache and the symbol index. Two Keys refer to
// the same file iff their string forms match exactly.
package source

import (
	"path/filepath"
	"sort"
	"strings"
)

// fileScheme is the URI prefix accepted (and stripped) when deriving the
// filesystem path component of a key.
const fileScheme = "file://"

// Key is the canonical identifier of a source file.
type Key string

// KeyFor builds a Key from a raw path or file URI. Relative paths are
// resolved to absolute form so that the same file always yields the same key
// regardless of the caller's working directory.
func KeyFor(raw string) Key {
	path := strings.TrimPrefix(raw, fileScheme)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	return Key(filepath.Clean(path))
}

func (k Key) String() string {
	return string(k)
}

// Path returns the filesystem path component of the key.
func (k Key) Path() string {
	return strings.TrimPrefix(string(k), fileScheme)
}

// Candidates returns the deduplicated locator strings a backend may use to
// match this file against the workspace source list: the key itself, its raw
// path component, the absolute path, and the path relative to each source
// root that contains it. The result is sorted for deterministic requests.
func (k Key) Candidates(sourceRoots []string) []string {
	seen := make(map[string]struct{}, 4)
	add := func(s string) {
		if s != "" {
			seen[s] = struct{}{}
		}
	}

	add(string(k))
	add(k.Path())

	if abs, err := filepath.Abs(k.Path()); err == nil {
		add(abs)

		for _, root := range sourceRoots {
			rel, err := filepath.Rel(root, abs)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}

			add(rel)
		}
	}

	candidates := make([]string, 0, len(seen))
	for s := range seen {
		candidates = append(candidates, s)
	}

	sort.Strings(candidates)
	return candidates
}
