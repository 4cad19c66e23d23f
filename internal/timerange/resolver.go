package timerange

import "time"

// Resolver resolves tokens against an injectable clock.
type Resolver struct {
	now func() time.Time
}

// NewResolver returns a resolver backed by the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverWithClock returns a resolver that reads "now" from clock.
func NewResolverWithClock(clock func() time.Time) *Resolver {
	if clock == nil {
		clock = time.Now
	}
	return &Resolver{now: clock}
}

// Resolve resolves token relative to the resolver's clock.
func (r *Resolver) Resolve(token string) Window {
	return Resolve(token, r.now())
}

// ResolveMinutes builds a window of explicit length relative to the resolver's clock.
func (r *Resolver) ResolveMinutes(minutes int) Window {
	return FromMinutes(minutes, r.now())
}

// Now returns the resolver's current time.
func (r *Resolver) Now() time.Time {
	return r.now()
}
