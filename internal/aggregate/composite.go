// Package aggregate provides an outer object that presents several inner
// objects under a single identity.
package aggregate

import (
	"errors"
	"fmt"
	"sync"

	"comref/internal/unknown"

	"go.uber.org/zap"
)

// ErrDestroyed is returned when aggregating into a composite whose last
// reference is gone.
var ErrDestroyed = errors.New("composite destroyed")

// Factory builds an inner object whose public methods delegate to outer.
// It runs with the composite locked and must not call back into it.
type Factory func(outer unknown.Unknown) (unknown.NonDelegatingUnknown, error)

// Composite owns one reference on each of its inners and answers identity
// queries on their behalf. Inners that implement unknown.Resolver are asked
// in the order they were aggregated.
type Composite struct {
	*unknown.Base

	// Caller hooks, consulted after the composite's own.
	resolver  unknown.Resolver
	finalizer unknown.Finalizer

	mu     sync.RWMutex
	inners []unknown.NonDelegatingUnknown
}

// New creates an empty composite. Pass unknown.WithOuter to nest it inside
// another aggregate. A resolver given with unknown.WithResolver is asked
// after the inners; a finalizer given with unknown.WithFinalizer runs after
// the inners are released.
func New(opts ...unknown.Option) *Composite {
	c := &Composite{}
	c.resolver, c.finalizer = unknown.Hooks(opts...)

	all := make([]unknown.Option, 0, len(opts)+2)
	all = append(all, opts...)
	all = append(all, unknown.WithResolver(c), unknown.WithFinalizer(c))
	c.Base = unknown.New(c, all...)
	return c
}

// Aggregate builds an inner with the composite's controlling outer and keeps
// a reference to it until the composite is destroyed.
func (c *Composite) Aggregate(factory Factory) (unknown.NonDelegatingUnknown, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Destroyed() {
		return nil, ErrDestroyed
	}

	inner, err := factory(c.Outer())
	if err != nil {
		return nil, fmt.Errorf("failed to create inner: %w", err)
	}
	if inner == nil {
		return nil, fmt.Errorf("failed to create inner: %w", unknown.ErrPointer)
	}

	inner.NonDelegatingAddRef()
	c.inners = append(c.inners, inner)
	c.Logger().Debug("inner aggregated", zap.Int("inners", len(c.inners)), zap.String("type", fmt.Sprintf("%T", inner)))
	return inner, nil
}

// Inners returns a snapshot of the aggregated objects.
func (c *Composite) Inners() []unknown.NonDelegatingUnknown {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]unknown.NonDelegatingUnknown, len(c.inners))
	copy(out, c.inners)
	return out
}

// ResolveInterface asks each inner in turn, then the caller's resolver.
func (c *Composite) ResolveInterface(iid unknown.IID) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, inner := range c.inners {
		r, ok := inner.(unknown.Resolver)
		if !ok {
			continue
		}
		if v, ok := r.ResolveInterface(iid); ok {
			return v, true
		}
	}
	if c.resolver != nil {
		return c.resolver.ResolveInterface(iid)
	}
	return nil, false
}

// Finalize drops the references held on the inners, newest first, then
// runs the caller's finalizer.
func (c *Composite) Finalize() {
	c.mu.Lock()
	inners := c.inners
	c.inners = nil
	c.mu.Unlock()

	for i := len(inners) - 1; i >= 0; i-- {
		inners[i].NonDelegatingRelease()
	}
	c.Logger().Debug("composite finalized", zap.Int("inners", len(inners)))

	if c.finalizer != nil {
		c.finalizer.Finalize()
	}
}
