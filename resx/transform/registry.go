// Package transform implements the resx-transform: URI scheme (§4.H) and the
// Transformer trait & registry (§4.I).
package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/redbco/redb-resx/resx"
)

// Registry is a name-addressable collection of Transformers, grounded on the
// teacher's services/transformation/internal/engine.TransformationRegistry:
// a mutex-guarded map of names to implementations, with a RegisterBuiltins
// step analogous to that registry's RegisterBuiltIn.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]resx.Transformer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]resx.Transformer)}
}

// Register binds name to t, overwriting any existing binding.
func (r *Registry) Register(name string, t resx.Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = t
}

// Unregister removes name's binding, if any.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
}

// Get resolves name to its Transformer.
func (r *Registry) Get(name string) (resx.Transformer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Names returns every registered transformer name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins registers the built-in transformer set (§4.M of
// SPEC_FULL.md), ported from the teacher's
// services/transformation/internal/engine/functions.go.
func (r *Registry) RegisterBuiltins() {
	for name, t := range builtins() {
		r.Register(name, t)
	}
}

// MustGet panics if name is unregistered; useful in tests and fixture setup.
func (r *Registry) MustGet(name string) resx.Transformer {
	t, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("transform: no such transformer %q", name))
	}
	return t
}
