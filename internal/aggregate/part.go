package aggregate

import (
	"comref/internal/unknown"
)

// Part is a simple inner object exposing one named capability.
type Part struct {
	*unknown.Base

	name string
	iid  unknown.IID
}

// PartFactory returns a Factory for a Part answering to iid. opts are
// applied before the outer supplied by the composite.
func PartFactory(name string, iid unknown.IID, opts ...unknown.Option) Factory {
	return func(outer unknown.Unknown) (unknown.NonDelegatingUnknown, error) {
		p := &Part{name: name, iid: iid}
		o := make([]unknown.Option, 0, len(opts)+1)
		o = append(o, opts...)
		p.Base = unknown.New(p, append(o, unknown.WithOuter(outer))...)
		return p, nil
	}
}

// Name returns the label the part was built with.
func (p *Part) Name() string {
	return p.name
}

// IID returns the capability the part answers to.
func (p *Part) IID() unknown.IID {
	return p.iid
}

// ResolveInterface returns the part itself for its own IID.
func (p *Part) ResolveInterface(iid unknown.IID) (any, bool) {
	if iid == p.iid {
		return p, true
	}
	return nil, false
}
