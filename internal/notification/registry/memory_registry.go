package registry

import (
	"context"
	"sync"
)

// MemoryRegistry implements SentRegistry with a process-local set.
// A restart forgets sent keys and re-enables resending; acceptable
// unless the registry is backed by Redis.
type MemoryRegistry struct {
	mu   sync.Mutex
	sent map[string]struct{}
}

// NewMemoryRegistry creates an in-memory sent registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sent: make(map[string]struct{}),
	}
}

// MarkSent records the key and reports whether it was newly recorded
func (r *MemoryRegistry) MarkSent(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sent[key]; ok {
		return false, nil
	}
	r.sent[key] = struct{}{}
	return true, nil
}
