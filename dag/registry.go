package dag

import (
	"sort"
	"sync"
)

// Registry maps component names to work functions, for graphs described in YAML.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]WorkFunc
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]WorkFunc)}
}

// Register adds or replaces a named work function.
func (r *Registry) Register(name string, work WorkFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = work
}

// Get retrieves a work function by name.
func (r *Registry) Get(name string) (WorkFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.funcs[name]
	return w, ok
}

// List returns sorted names of all registered components.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
