package client

import "sync"

// Registry is the set of notification ids already admitted into the store.
// It is scoped to one authenticated session and is never cleared for the
// session's lifetime: clearing the store must not let an in-flight push
// resurrect a notification the user already dismissed. Ids are normalized
// to strings before they reach the registry.
type Registry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Seen reports whether id has already been admitted.
func (r *Registry) Seen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[id]
	return ok
}

// Admit records id and reports whether it was newly admitted. Check and
// insert happen under one lock so two deliveries of the same id cannot
// both win.
func (r *Registry) Admit(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = struct{}{}
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
