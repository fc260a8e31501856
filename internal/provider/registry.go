package provider

import "sync"

// Registry manages provider adapters and remembers registration order.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	limits    map[string]int
	order     []string
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		limits:    make(map[string]int),
	}
}

// Register adds a provider with its concurrency ceiling. Registering an
// existing name replaces the adapter but keeps its position.
func (r *Registry) Register(p Provider, maxConcurrent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	r.providers[p.Name()] = p
	r.limits[p.Name()] = maxConcurrent
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// MaxConcurrent returns the ceiling registered for name, 1 if unknown.
func (r *Registry) MaxConcurrent(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.limits[name]; ok {
		return n
	}
	return 1
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// GetAll returns all registered providers in registration order.
func (r *Registry) GetAll() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.providers[name])
	}
	return result
}
