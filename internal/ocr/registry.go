package ocr

import (
	"context"
	"sync"
)

// Factory constructs a backend handle. It runs at most once per registry
// entry; the resulting handle (or construction error) is retained for the
// lifetime of the process so repeated runs resolve backends identically.
type Factory func(ctx context.Context) (Backend, error)

type registryEntry struct {
	factory Factory
	remote  bool

	built   bool
	backend Backend
	err     error
}

// Registry is a process-scoped catalog of recognition backends with lazy,
// cached instantiation. Construction failures (missing credentials, model
// load failure) are cached alongside successes.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry returns an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Register adds a backend factory under the given name. Remote marks
// backends that call out to a hosted API; local-only selection skips them.
// Registering an existing name replaces the entry and drops any cached
// handle.
func (r *Registry) Register(name string, remote bool, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &registryEntry{factory: factory, remote: remote}
}

// Backend resolves a backend by name, instantiating it on first use.
func (r *Registry) Backend(ctx context.Context, name string) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, WrapRecognitionError("Backend", ErrUnknownBackend, name)
	}
	if !e.built {
		e.backend, e.err = e.factory(ctx)
		e.built = true
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.backend, nil
}

// Remote reports whether the named backend calls a hosted API.
// Unknown names report false.
func (r *Registry) Remote(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e.remote
	}
	return false
}

// Has reports whether a backend name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	return ok
}
