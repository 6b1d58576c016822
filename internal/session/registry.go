package session

import (
	"context"
	"sync"

	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/service"
)

// Registry holds one projection per signed-in user with an explicit
// init/teardown lifecycle tied to session start and end. It is passed
// by handle, never a package-level singleton.
type Registry struct {
	mu          sync.Mutex
	projections map[string]*Projection

	availability *service.AvailabilityService
	bookings     *service.BookingService
	profile      *service.ProfileService
}

func NewRegistry(
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	profile *service.ProfileService,
) *Registry {
	return &Registry{
		projections:  make(map[string]*Projection),
		availability: availability,
		bookings:     bookings,
		profile:      profile,
	}
}

// Init returns the user's projection, creating and loading it on the
// first call of a session.
func (r *Registry) Init(ctx context.Context, identity auth.Identity) (*Projection, error) {
	r.mu.Lock()
	p, ok := r.projections[identity.UID]
	if !ok {
		p = newProjection(identity, r.availability, r.bookings, r.profile)
		r.projections[identity.UID] = p
	}
	r.mu.Unlock()

	if p.State() == StateUninitialized {
		if err := p.Load(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Teardown discards the user's projection at session end.
func (r *Registry) Teardown(uid string) {
	r.mu.Lock()
	delete(r.projections, uid)
	r.mu.Unlock()
}
