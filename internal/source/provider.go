package source

import (
	"os"
	"sync"
)

// ContentProvider supplies the current text of a file. Implementations may
// read from disk or from an editor's in-memory overlay.
type ContentProvider interface {
	// ReadContent returns the content of the file, or ok=false if the file
	// is missing or unreadable. Absence is not an error.
	ReadContent(key Key) (content string, ok bool)
}

// FileProvider reads file content directly from the filesystem.
type FileProvider struct{}

// NewFileProvider creates a filesystem-backed content provider.
func NewFileProvider() *FileProvider {
	return &FileProvider{}
}

func (p *FileProvider) ReadContent(key Key) (string, bool) {
	data, err := os.ReadFile(key.Path())
	if err != nil {
		return "", false
	}

	return string(data), true
}

// OverlayProvider layers in-memory content (open editor buffers) over a
// fallback provider. Keys without an overlay fall through.
type OverlayProvider struct {
	mu       sync.RWMutex
	overlay  map[Key]string
	fallback ContentProvider
}

// NewOverlayProvider creates an overlay on top of fallback.
func NewOverlayProvider(fallback ContentProvider) *OverlayProvider {
	return &OverlayProvider{
		overlay:  make(map[Key]string),
		fallback: fallback,
	}
}

// Set records in-memory content for a key.
func (p *OverlayProvider) Set(key Key, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.overlay[key] = content
}

// Remove drops the in-memory content for a key.
func (p *OverlayProvider) Remove(key Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.overlay, key)
}

func (p *OverlayProvider) ReadContent(key Key) (string, bool) {
	p.mu.RLock()
	content, ok := p.overlay[key]
	p.mu.RUnlock()

	if ok {
		return content, true
	}

	return p.fallback.ReadContent(key)
}
