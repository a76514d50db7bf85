package agent

import (
	"path/filepath"
	"sort"
	"sync"
)

// ContextTracker records which workspace paths were touched while answering
// the current query, for display in the host UI. Paths are normalized and
// deduplicated; the set grows monotonically until Reset.
type ContextTracker struct {
	mu      sync.Mutex
	paths   map[string]struct{}
	emitter *EventEmitter
}

// NewContextTracker creates a tracker. The emitter may be nil; when set, an
// EventContextFiles event carrying the full deduplicated path list is
// emitted every time the set changes.
func NewContextTracker(emitter *EventEmitter) *ContextTracker {
	return &ContextTracker{
		paths:   make(map[string]struct{}),
		emitter: emitter,
	}
}

// Add records one or more touched paths. Empty strings are ignored.
func (t *ContextTracker) Add(paths ...string) {
	t.mu.Lock()
	changed := false
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if _, ok := t.paths[clean]; !ok {
			t.paths[clean] = struct{}{}
			changed = true
		}
	}
	var snapshot []string
	if changed {
		snapshot = t.pathsLocked()
	}
	t.mu.Unlock()

	if changed && t.emitter != nil {
		t.emitter.Emit(EventContextFiles, map[string]any{"paths": snapshot})
	}
}

// Paths returns the sorted list of touched paths.
func (t *ContextTracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pathsLocked()
}

// Len returns the number of distinct touched paths.
func (t *ContextTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.paths)
}

// Reset clears the tracked set.
func (t *ContextTracker) Reset() {
	t.mu.Lock()
	t.paths = make(map[string]struct{})
	t.mu.Unlock()

	if t.emitter != nil {
		t.emitter.Emit(EventContextFiles, map[string]any{"paths": []string{}})
	}
}

func (t *ContextTracker) pathsLocked() []string {
	out := make([]string, 0, len(t.paths))
	for p := range t.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
