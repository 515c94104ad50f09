package app

import (
	"context"
	"sort"
	"sync"

	"github.com/oxarb/flasharb/business/strategy/domain"
	"github.com/oxarb/flasharb/internal/apperror"
)

// Registry owns the strategy controllers and routes control operations
// by strategy id.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]*Controller)}
}

// Register adds a controller. Re-registering an id replaces it.
func (r *Registry) Register(c *Controller) {
	r.mu.Lock()
	r.controllers[c.ID()] = c
	r.mu.Unlock()
}

// Get looks a controller up by id.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	c, ok := r.controllers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperror.New(apperror.CodeStrategyNotFound,
			apperror.WithContext(id))
	}
	return c, nil
}

// Start starts one strategy by id.
func (r *Registry) Start(ctx context.Context, id string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.Start(ctx)
	return nil
}

// Stop stops one strategy by id.
func (r *Registry) Stop(ctx context.Context, id string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.Stop(ctx)
	return nil
}

// Status returns one strategy's state copy.
func (r *Registry) Status(id string) (domain.State, error) {
	c, err := r.Get(id)
	if err != nil {
		return domain.State{}, err
	}
	return c.Status(), nil
}

// ListStatus returns every strategy's state, ordered by id.
func (r *Registry) ListStatus() []domain.State {
	r.mu.RLock()
	states := make([]domain.State, 0, len(r.controllers))
	for _, c := range r.controllers {
		states = append(states, c.Status())
	}
	r.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// StopAll stops every running strategy, for shutdown.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.mu.RUnlock()

	for _, c := range controllers {
		c.Stop(ctx)
	}
}
