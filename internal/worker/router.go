package worker

import (
	"log/slog"
	"sync"
)

// Router selects which descriptor handles parse requests. Selection is
// sticky: as long as the current worker remains compatible with the
// requested version it is kept, avoiding needless switches — a switch
// invalidates every cached outcome workspace-wide.
type Router struct {
	mu      sync.Mutex
	workers []*Descriptor
	current *Descriptor
	hooks   []func(old, new *Descriptor)
	logger  *slog.Logger
}

// NewRouter creates a router over the given descriptors.
func NewRouter(logger *slog.Logger, workers ...*Descriptor) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{workers: workers, logger: logger}
}

// OnSelectionChanged registers a hook invoked whenever the selected
// descriptor actually changes, including the no-worker transitions in both
// directions. Hooks run outside the router lock.
func (r *Router) OnSelectionChanged(fn func(old, new *Descriptor)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, fn)
}

// Current returns the currently selected descriptor, or nil.
func (r *Router) Current() *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// Workers returns the registered descriptors.
func (r *Router) Workers() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Descriptor, len(r.workers))
	copy(out, r.workers)
	return out
}

// Select picks the descriptor for the given version hint. The current
// selection is kept when still compatible; otherwise the compatible worker
// with the newest lower bound wins. A nil hint keeps the current worker if
// any, else selects the newest worker. Returns nil when no worker is
// compatible — callers must surface a diagnostic, not crash.
func (r *Router) Select(hint *Version) *Descriptor {
	r.mu.Lock()

	if r.current != nil && (hint == nil || r.current.Versions.Contains(*hint)) {
		current := r.current
		r.mu.Unlock()
		return current
	}

	var chosen *Descriptor
	for _, w := range r.workers {
		if hint != nil && !w.Versions.Contains(*hint) {
			continue
		}

		if chosen == nil || w.Versions.Min.Compare(chosen.Versions.Min) > 0 {
			chosen = w
		}
	}

	old := r.current
	r.current = chosen
	hooks := r.hooks
	r.mu.Unlock()

	if old != chosen {
		r.logger.Info("worker selection changed",
			"old", describe(old), "new", describe(chosen))

		for _, fn := range hooks {
			fn(old, chosen)
		}
	}

	return chosen
}

func describe(d *Descriptor) string {
	if d == nil {
		return "none"
	}

	return d.ID
}
