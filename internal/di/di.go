// Package di provides a minimal service container with typed tokens.
// Factories are registered lazily and resolved (then memoized) on first Get.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get resolves a service by key, invoking its factory on first use.
	Get(key string) any
}

// Container is the full registration + resolution interface.
type Container interface {
	ServiceRegistry

	// Register stores an already-constructed service.
	Register(key string, svc any)

	// RegisterFactory stores a lazy constructor for a service.
	RegisterFactory(key string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.RWMutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(key string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[key] = svc
}

func (c *container) RegisterFactory(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[key] = factory
}

func (c *container) Get(key string) any {
	c.mu.RLock()
	if svc, ok := c.services[key]; ok {
		c.mu.RUnlock()
		return svc
	}
	factory, ok := c.factories[key]
	c.mu.RUnlock()

	if !ok {
		panic(fmt.Sprintf("di: no service registered for %q", key))
	}

	svc := factory(c)

	c.mu.Lock()
	c.services[key] = svc
	c.mu.Unlock()

	return svc
}

// Token is a typed handle for a registered service.
type Token[T any] struct {
	key string
}

// NewToken creates a typed token with a unique key.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the underlying registration key.
func (t Token[T]) Key() string {
	return t.key
}

// RegisterToken registers a typed factory under the token's key.
func RegisterToken[T any](c Container, t Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(t.key, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed service; panics on type mismatch, which is
// always a wiring bug in the composition root.
func GetToken[T any](sr ServiceRegistry, t Token[T]) T {
	svc, ok := sr.Get(t.key).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", t.key))
	}
	return svc
}
