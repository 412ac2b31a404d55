package store

import (
	"reflect"
	"sync"
)

// Registry maps record types that do not implement Locator to their container.
type Registry struct {
	mu        sync.RWMutex
	locations map[reflect.Type]Location
}

// DefaultRegistry is used by connections built without WithRegistry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		locations: make(map[reflect.Type]Location),
	}
}

// Register binds record type T to loc in r.
// This should be called during init() for each record type.
func Register[T any](r *Registry, loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[reflect.TypeFor[T]()] = loc
}

// Lookup returns the location registered for t.
func (r *Registry) Lookup(t reflect.Type) (Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[t]
	return loc, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.locations)
}

// locate returns the declared location of T: its Locator first (value, then
// pointer receiver), then the registry.
func locate[T any](r *Registry) (Location, bool) {
	var zero T
	if l, ok := any(zero).(Locator); ok {
		loc := l.Location()
		return loc, loc.Valid()
	}
	if l, ok := any(&zero).(Locator); ok {
		loc := l.Location()
		return loc, loc.Valid()
	}
	if r == nil {
		return Location{}, false
	}
	loc, ok := r.Lookup(reflect.TypeFor[T]())
	return loc, ok && loc.Valid()
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().Name()
}
