package unknown

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Base is an embeddable reference-counted object.
//
// The count starts at zero. The first reference is normally taken by a
// QueryInterface for IIDUnknown or an explicit AddRef. When the count drops
// from one to zero the object is destroyed: its finalizer runs exactly once
// and the object never becomes live again.
//
// Types that embed *Base get the delegating Unknown methods for free; they
// forward to Outer(), so an aggregated object never answers lifetime or
// identity queries on its own behalf.
type Base struct {
	refs      atomic.Int32
	destroyed atomic.Bool

	// self is the most-derived object, used so that overridden
	// NonDelegating methods are honoured.
	self      NonDelegatingUnknown
	outer     Unknown
	resolver  Resolver
	finalizer Finalizer
	tracker   Tracker
	logger    *zap.Logger
}

// Option configures a Base.
type Option func(*Base)

// WithOuter sets the aggregating object. A nil outer leaves the object
// unaggregated.
func WithOuter(outer Unknown) Option {
	return func(b *Base) {
		b.outer = outer
	}
}

// WithResolver overrides the resolver picked up from self.
func WithResolver(r Resolver) Option {
	return func(b *Base) {
		b.resolver = r
	}
}

// WithFinalizer overrides the finalizer picked up from self.
func WithFinalizer(f Finalizer) Option {
	return func(b *Base) {
		b.finalizer = f
	}
}

// WithTracker reports creation and destruction to t.
func WithTracker(t Tracker) Option {
	return func(b *Base) {
		b.tracker = t
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Base) {
		if l != nil {
			b.logger = l
		}
	}
}

// Hooks returns the resolver and finalizer opts would install, so a type
// that must keep its own hooks can chain the caller's instead.
func Hooks(opts ...Option) (Resolver, Finalizer) {
	var b Base
	for _, opt := range opts {
		opt(&b)
	}
	return b.resolver, b.finalizer
}

// New creates a Base for self, the object that embeds it. A nil self means
// the Base stands alone. If self implements Resolver or Finalizer those are
// used unless an option says otherwise.
func New(self NonDelegatingUnknown, opts ...Option) *Base {
	b := &Base{logger: zap.NewNop()}
	if self == nil {
		self = b
	}
	b.self = self
	if r, ok := self.(Resolver); ok {
		b.resolver = r
	}
	if f, ok := self.(Finalizer); ok {
		b.finalizer = f
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.outer == nil {
		b.outer = Self{self}
	}
	if b.tracker != nil {
		b.tracker.ObjectCreated()
	}
	return b
}

// NonDelegatingQueryInterface resolves iid against this object only.
// On success the returned handle carries a new reference.
func (b *Base) NonDelegatingQueryInterface(iid IID, out *any) error {
	if out == nil {
		return ErrPointer
	}

	if iid == IIDUnknown {
		b.self.NonDelegatingAddRef()
		*out = b.self
		return nil
	}

	if b.resolver != nil {
		if v, ok := b.resolver.ResolveInterface(iid); ok && v != nil {
			// Public handles count on the outer, like any other caller would.
			if u, ok := v.(Unknown); ok {
				u.AddRef()
			} else {
				b.self.NonDelegatingAddRef()
			}
			*out = v
			return nil
		}
	}

	*out = nil
	return ErrNoInterface
}

// NonDelegatingAddRef increments the count and returns the new value.
func (b *Base) NonDelegatingAddRef() uint32 {
	return uint32(b.refs.Add(1))
}

// NonDelegatingRelease decrements the count and returns the new value.
// The call that takes the count to zero destroys the object.
//
// The count is bumped back to one before the finalizer runs, so balanced
// AddRef/Release pairs made while finalizing cannot trigger a second
// destruction.
func (b *Base) NonDelegatingRelease() uint32 {
	n := b.refs.Add(-1)
	if n > 0 {
		return uint32(n)
	}
	if n < 0 {
		b.logger.Error("reference count released below zero", zap.Int32("refs", n))
		panic(fmt.Errorf("%w: %d", ErrOverRelease, n))
	}

	b.refs.Add(1)
	if !b.destroyed.CompareAndSwap(false, true) {
		return 0
	}

	b.logger.Debug("object destroyed")
	if b.finalizer != nil {
		b.finalizer.Finalize()
	}
	if b.tracker != nil {
		b.tracker.ObjectDestroyed()
	}
	return 0
}

// Outer returns the aggregating object, or Self for an unaggregated one.
func (b *Base) Outer() Unknown {
	return b.outer
}

// QueryInterface forwards to the outer.
func (b *Base) QueryInterface(iid IID, out *any) error {
	return b.outer.QueryInterface(iid, out)
}

// AddRef forwards to the outer.
func (b *Base) AddRef() uint32 {
	return b.outer.AddRef()
}

// Release forwards to the outer.
func (b *Base) Release() uint32 {
	return b.outer.Release()
}

// RefCount returns the current count; zero once destroyed.
func (b *Base) RefCount() int32 {
	if b.destroyed.Load() {
		return 0
	}
	return b.refs.Load()
}

// Logger returns the logger the object was built with.
func (b *Base) Logger() *zap.Logger {
	return b.logger
}

// Destroyed reports whether the last reference has been released.
func (b *Base) Destroyed() bool {
	return b.destroyed.Load()
}
