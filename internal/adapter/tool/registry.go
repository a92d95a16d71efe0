// Package tool provides the callable registry and adapters that turn plain
// Go functions and MCP server tools into callables the dispatcher can
// execute.
package tool

import (
	"fmt"
	"sync"

	"modelwire/internal/domain"
)

// Registry holds named callables. It is append-mostly: populated during
// startup, then consulted concurrently by loop invocations. Lookup is safe
// under concurrent registration.
type Registry struct {
	mu        sync.RWMutex
	callables map[string]domain.Callable
	order     []string
}

// NewRegistry creates an empty callable registry.
func NewRegistry() *Registry {
	return &Registry{
		callables: make(map[string]domain.Callable),
	}
}

// Register adds a callable. Returns an error if the name is already taken.
func (r *Registry) Register(c domain.Callable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.callables[name]; exists {
		return fmt.Errorf("callable %q already registered", name)
	}
	r.callables[name] = c
	r.order = append(r.order, name)
	return nil
}

// Resolve implements domain.CallableResolver.
func (r *Registry) Resolve(name string) (domain.Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.callables[name]
	return c, ok
}

// Names returns registered callable names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Declarations returns the function declarations of all registered
// callables, in registration order, for inclusion in a model request.
func (r *Registry) Declarations() []domain.FunctionDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]domain.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.callables[name].Declaration())
	}
	return decls
}

var _ domain.CallableResolver = (*Registry)(nil)

// ScopedRegistry is a read-only view of a registry restricted to an
// allowlist of names. It lets one loop invocation see a subset of the
// process-wide callables.
type ScopedRegistry struct {
	inner   *Registry
	allowed map[string]bool
}

// NewScopedRegistry restricts inner to the given names. Names not present in
// inner are simply never resolvable.
func NewScopedRegistry(inner *Registry, names []string) *ScopedRegistry {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return &ScopedRegistry{inner: inner, allowed: allowed}
}

// Resolve implements domain.CallableResolver.
func (s *ScopedRegistry) Resolve(name string) (domain.Callable, bool) {
	if !s.allowed[name] {
		return nil, false
	}
	return s.inner.Resolve(name)
}

// Declarations returns the declarations of the visible callables, in the
// inner registry's registration order.
func (s *ScopedRegistry) Declarations() []domain.FunctionDeclaration {
	var decls []domain.FunctionDeclaration
	for _, name := range s.inner.Names() {
		if !s.allowed[name] {
			continue
		}
		if c, ok := s.inner.Resolve(name); ok {
			decls = append(decls, c.Declaration())
		}
	}
	return decls
}

var _ domain.CallableResolver = (*ScopedRegistry)(nil)
