// Package unknown implements reference-counted objects that can be
// aggregated by an outer object.
//
// Every object has two faces. The public Unknown face delegates to the
// object's outer, so an aggregate presents one identity no matter which inner
// a caller holds. The NonDelegatingUnknown face manipulates the object's own
// reference count and is only handed to the outer that owns it.
package unknown

import (
	"errors"

	"github.com/google/uuid"
)

// IID identifies a capability an object may expose.
type IID = uuid.UUID

// IIDUnknown is the generic identity every object answers to.
var IIDUnknown = uuid.MustParse("00000000-0000-0000-c000-000000000046")

var (
	// ErrPointer is returned when a query has nowhere to write its result.
	ErrPointer = errors.New("invalid output location")
	// ErrNoInterface is returned when an identity is not recognised.
	ErrNoInterface = errors.New("no such interface")
	// ErrOverRelease is the panic value for a release without a matching reference.
	ErrOverRelease = errors.New("reference count released below zero")
)

// Unknown is the public capability set. Implementations embedded in an
// aggregate forward every call to their outer.
type Unknown interface {
	QueryInterface(iid IID, out *any) error
	AddRef() uint32
	Release() uint32
}

// NonDelegatingUnknown is the capability set that acts on the object itself,
// never on its outer.
type NonDelegatingUnknown interface {
	NonDelegatingQueryInterface(iid IID, out *any) error
	NonDelegatingAddRef() uint32
	NonDelegatingRelease() uint32
}

// Resolver widens the set of identities an object answers to.
// ResolveInterface must not take a reference; the caller does that.
type Resolver interface {
	ResolveInterface(iid IID) (any, bool)
}

// Finalizer runs once when the last reference is released.
type Finalizer interface {
	Finalize()
}

// FinalizerFn adapts a function literal to Finalizer.
type FinalizerFn func()

// Finalize calls fn.
func (fn FinalizerFn) Finalize() {
	fn()
}

// Tracker observes object lifetimes.
type Tracker interface {
	ObjectCreated()
	ObjectDestroyed()
}

// Self presents a non-delegating object as its own outer.
type Self struct {
	NonDelegatingUnknown
}

// QueryInterface resolves iid against the wrapped object.
func (s Self) QueryInterface(iid IID, out *any) error {
	return s.NonDelegatingQueryInterface(iid, out)
}

// AddRef increments the wrapped object's own count.
func (s Self) AddRef() uint32 {
	return s.NonDelegatingAddRef()
}

// Release decrements the wrapped object's own count.
func (s Self) Release() uint32 {
	return s.NonDelegatingRelease()
}
