package medic

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Registry owns the set of registered components. Registration hands
// exclusive ownership of the component to the registry; aggregate operations
// drive every component's lifecycle and tolerate partial failure — one
// component blowing up never prevents the others from being driven.
//
// Mutations (Register/Unregister) and aggregate operations serialize against
// each other, while Get and All stay readable even when an aggregate is busy
// inside a slow component.
type Registry struct {
	// opMu serializes mutations and aggregate operations
	opMu sync.Mutex

	// mu guards the map itself; held only for map access, never across a
	// component call
	mu         sync.RWMutex
	components map[string]*Component
}

// NewRegistry creates an empty registry. Create one at the application entry
// point and pass it by reference; there is no package-level instance.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*Component),
	}
}

// Register adds a component under its name. Returns false without mutating
// the collection if the name is already taken.
func (r *Registry) Register(c *Component) bool {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[c.Name()]; exists {
		return false
	}

	r.components[c.Name()] = c
	slog.Info("component registered", "component", c.Name(), "id", c.ID())
	return true
}

// Unregister removes the named component, invoking its Cleanup as a side
// effect. The component is removed even when the cleanup reports failure —
// the failure is observable only through the returned Result. The boolean
// reports whether the name was present.
func (r *Registry) Unregister(ctx context.Context, name string) (Result, bool) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.RLock()
	c, ok := r.components[name]
	r.mu.RUnlock()

	if !ok {
		return Result{}, false
	}

	// Cleanup runs before removal, so the component is still visible (as
	// stopping, hence not ready) while it tears down.
	res := c.Cleanup(ctx)

	r.mu.Lock()
	delete(r.components, name)
	r.mu.Unlock()

	slog.Info("component unregistered", "component", name, "cleanup_ok", res.Success)
	return res, true
}

// Get returns the named component.
func (r *Registry) Get(name string) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// All returns a defensive copy of the current name → component mapping.
func (r *Registry) All() map[string]*Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Component, len(r.components))
	for name, c := range r.components {
		out[name] = c
	}
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// InitializeAll drives Initialize on every registered component and returns
// one Result per component. A failure in one component does not prevent the
// others from being initialized. Components registered after the call starts
// are not included.
func (r *Registry) InitializeAll(ctx context.Context) map[string]Result {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	results := make(map[string]Result)
	for _, c := range r.snapshot() {
		results[c.Name()] = c.Initialize(ctx)
	}
	return results
}

// CleanupAll drives Cleanup on every registered component and returns one
// Result per component, tolerating individual failures.
func (r *Registry) CleanupAll(ctx context.Context) map[string]Result {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	results := make(map[string]Result)
	for _, c := range r.snapshot() {
		results[c.Name()] = c.Cleanup(ctx)
	}
	return results
}

// snapshot returns the current components in name order. The map lock is
// released before any component call so registry reads stay cheap while an
// aggregate is inside a slow component.
func (r *Registry) snapshot() []*Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Component, 0, len(names))
	for _, name := range names {
		out = append(out, r.components[name])
	}
	return out
}
