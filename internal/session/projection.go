// Package session keeps an in-memory projection of each signed-in
// user's profile, availability and bookings, consistent with committed
// store writes so callers see post-write state without re-fetching.
package session

import (
	"context"
	"sync"

	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/service"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StatePopulated     State = "populated"
	StateSignedOut     State = "signed-out"
)

// Projection mirrors one user's committed state. Mutators call the
// corresponding service operation and, only on success, replace the
// cached value with the authoritative post-write result; the merge may
// have reshaped it, so the pre-write value is never assumed. On failure
// the cache is untouched and the error propagates.
type Projection struct {
	mu       sync.RWMutex
	state    State
	identity auth.Identity
	user     *model.User
	bookings []model.Booking

	availability *service.AvailabilityService
	bookingsSvc  *service.BookingService
	profile      *service.ProfileService
}

func newProjection(
	identity auth.Identity,
	availability *service.AvailabilityService,
	bookingsSvc *service.BookingService,
	profile *service.ProfileService,
) *Projection {
	return &Projection{
		state:        StateUninitialized,
		identity:     identity,
		availability: availability,
		bookingsSvc:  bookingsSvc,
		profile:      profile,
	}
}

// Load fetches the user document and bookings, moving the projection
// through loading to populated, or to signed-out when no profile exists.
func (p *Projection) Load(ctx context.Context) error {
	p.setState(StateLoading)

	user, err := p.profile.Get(ctx, p.identity.UID)
	if err != nil {
		p.setState(StateUninitialized)
		return err
	}
	if user == nil {
		p.setState(StateSignedOut)
		return nil
	}

	var bookings []model.Booking
	if user.Role == model.RoleStudent {
		bookings, err = p.bookingsSvc.StudentBookings(ctx, p.identity.UID)
	} else {
		bookings, err = p.bookingsSvc.TeacherBookings(ctx, p.identity.UID)
	}
	if err != nil {
		p.setState(StateUninitialized)
		return err
	}

	p.mu.Lock()
	p.user = user
	p.bookings = bookings
	p.state = StatePopulated
	p.mu.Unlock()
	return nil
}

// State returns the projection's lifecycle state.
func (p *Projection) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// User returns the cached profile snapshot.
func (p *Projection) User() *model.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user
}

// Bookings returns the cached reservations.
func (p *Projection) Bookings() []model.Booking {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bookings
}

// UpdateAvailability merges new events and swaps in the authoritative
// post-merge set.
func (p *Projection) UpdateAvailability(ctx context.Context, newEvents []model.AvailabilityEvent) ([]model.AvailabilityEvent, error) {
	merged, err := p.availability.Merge(ctx, p.identity, p.identity.UID, newEvents)
	if err != nil {
		return nil, err
	}
	p.replaceEvents(merged)
	return merged, nil
}

// AddAvailabilitySeries materializes and merges a weekly series.
func (p *Projection) AddAvailabilitySeries(ctx context.Context, base model.AvailabilityEvent, totalClasses int) ([]model.AvailabilityEvent, error) {
	merged, err := p.availability.AddSeries(ctx, p.identity, p.identity.UID, base, totalClasses)
	if err != nil {
		return nil, err
	}
	p.replaceEvents(merged)
	return merged, nil
}

// RemoveAvailability deletes an event or series and swaps in the
// remaining set.
func (p *Projection) RemoveAvailability(ctx context.Context, target model.AvailabilityEvent) ([]model.AvailabilityEvent, error) {
	remaining, err := p.availability.Remove(ctx, p.identity, p.identity.UID, target)
	if err != nil {
		return nil, err
	}
	p.replaceEvents(remaining)
	return remaining, nil
}

func (p *Projection) UpdateNickname(ctx context.Context, nickname string) error {
	return p.replaceUser(p.profile.UpdateNickname(ctx, p.identity, nickname))
}

func (p *Projection) UpdateDescription(ctx context.Context, description string) error {
	return p.replaceUser(p.profile.UpdateDescription(ctx, p.identity, description))
}

func (p *Projection) UpdatePrice(ctx context.Context, price int) error {
	return p.replaceUser(p.profile.UpdatePrice(ctx, p.identity, price))
}

func (p *Projection) UpdateBalance(ctx context.Context, balance int) error {
	return p.replaceUser(p.profile.UpdateBalance(ctx, p.identity, balance))
}

// RefreshBookings re-reads the user's reservations after a confirmation.
func (p *Projection) RefreshBookings(ctx context.Context) error {
	var bookings []model.Booking
	var err error
	if p.identity.Role == model.RoleStudent {
		bookings, err = p.bookingsSvc.StudentBookings(ctx, p.identity.UID)
	} else {
		bookings, err = p.bookingsSvc.TeacherBookings(ctx, p.identity.UID)
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.bookings = bookings
	p.mu.Unlock()
	return nil
}

func (p *Projection) replaceUser(user *model.User, err error) error {
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.user = user
	p.mu.Unlock()
	return nil
}

func (p *Projection) replaceEvents(events []model.AvailabilityEvent) {
	p.mu.Lock()
	if p.user != nil {
		p.user.Events = events
	}
	p.mu.Unlock()
}

func (p *Projection) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}
