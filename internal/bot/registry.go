package bot

import "sync"

// Registry is a thread-safe userID to engine map. It is injected into
// the Manager so tests and processes construct a fresh one instead of
// sharing module-level state.
type Registry struct {
	mu   sync.RWMutex
	bots map[string]*Engine
}

func NewRegistry() *Registry {
	return &Registry{bots: make(map[string]*Engine)}
}

func (r *Registry) Get(userID string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.bots[userID]

	return e, ok
}

// PutIfAbsent registers the engine unless the user already has one.
// It returns the engine that is registered after the call and whether
// the put took effect.
func (r *Registry) PutIfAbsent(userID string, e *Engine) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bots[userID]; ok {
		return existing, false
	}

	r.bots[userID] = e

	return e, true
}

func (r *Registry) Delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bots, userID)
}

// Snapshot returns the current userID to engine mapping. The map is a
// copy; the engines are shared.
func (r *Registry) Snapshot() map[string]*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Engine, len(r.bots))
	for id, e := range r.bots {
		out[id] = e
	}

	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bots)
}
