package kernel

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// ServiceRegistry maps service names to instances. Services registered with
// SetFactory are built on first Get and then cached as singletons.
type ServiceRegistry interface {
	Has(name string) bool
	Get(name string) (any, error)
	Set(name string, service any)
	SetFactory(name string, factory ServiceFactory)
}

// StdServiceRegistry is the default ServiceRegistry. A registry created with
// NewScope reads through to its parent for anything it does not hold itself.
type StdServiceRegistry struct {
	mu        sync.RWMutex
	parent    ServiceRegistry
	services  map[string]any
	factories map[string]ServiceFactory
}

// NewServiceRegistry creates an empty root registry.
func NewServiceRegistry() *StdServiceRegistry {
	return &StdServiceRegistry{
		services:  make(map[string]any),
		factories: make(map[string]ServiceFactory),
	}
}

// NewScope creates a child registry. Services set on the child shadow the
// parent's and never leak back into it.
func (r *StdServiceRegistry) NewScope() *StdServiceRegistry {
	scope := NewServiceRegistry()
	scope.parent = r
	return scope
}

// Has reports whether a service or factory is registered under name, either
// here or in a parent registry.
func (r *StdServiceRegistry) Has(name string) bool {
	r.mu.RLock()
	_, ok := r.services[name]
	if !ok {
		_, ok = r.factories[name]
	}
	r.mu.RUnlock()

	if ok {
		return true
	}
	return r.parent != nil && r.parent.Has(name)
}

// Get returns the service registered under name, building it from its
// factory if needed.
func (r *StdServiceRegistry) Get(name string) (any, error) {
	r.mu.RLock()
	svc, ok := r.services[name]
	factory, hasFactory := r.factories[name]
	r.mu.RUnlock()

	if ok {
		return svc, nil
	}
	if hasFactory {
		return r.build(name, factory)
	}
	if r.parent != nil {
		return r.parent.Get(name)
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
}

func (r *StdServiceRegistry) build(name string, factory ServiceFactory) (any, error) {
	// The factory runs without the lock held so it can resolve its own
	// dependencies through r.
	svc, err := factory(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrServiceFactoryFailed, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.services[name]; ok {
		return existing, nil
	}
	r.services[name] = svc
	delete(r.factories, name)
	return svc, nil
}

// Set registers an instance, replacing any previous instance or factory.
func (r *StdServiceRegistry) Set(name string, service any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
	r.services[name] = service
}

// SetFactory registers a lazily built service, replacing any previous
// registration under the same name.
func (r *StdServiceRegistry) SetFactory(name string, factory ServiceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, name)
	r.factories[name] = factory
}

// Lookup retrieves a service and asserts it to T.
func Lookup[T any](registry ServiceRegistry, name string) (T, error) {
	var zero T
	svc, err := registry.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("%w: service '%s' of type %T cannot be assigned to %s",
			ErrServiceIncompatible, name, svc, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}

type registryContextKey struct{}

// WithServiceRegistry returns a context carrying the registry that is active
// for the current dispatch.
func WithServiceRegistry(ctx context.Context, registry ServiceRegistry) context.Context {
	return context.WithValue(ctx, registryContextKey{}, registry)
}

// ServiceRegistryFromContext returns the registry stored by
// WithServiceRegistry, if any.
func ServiceRegistryFromContext(ctx context.Context) (ServiceRegistry, bool) {
	registry, ok := ctx.Value(registryContextKey{}).(ServiceRegistry)
	return registry, ok && registry != nil
}
