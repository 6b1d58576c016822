package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/repository"
	"github.com/tutorlane/server/internal/service"
	"github.com/tutorlane/server/internal/store/storetest"
)

func newRegistryFixture(t *testing.T) (*storetest.Memory, *Registry) {
	t.Helper()
	mem := storetest.NewMemory()
	logger := zap.NewNop()
	userRepo := repository.NewUserRepository(mem)
	bookingRepo := repository.NewBookingRepository(mem)
	availabilityRepo := repository.NewAvailabilityRepository(mem)

	availability := service.NewAvailabilityService(availabilityRepo, userRepo, nil, logger)
	bookings := service.NewBookingService(mem, userRepo, bookingRepo, nil, logger)
	profile := service.NewProfileService(userRepo, logger)

	return mem, NewRegistry(availability, bookings, profile)
}

func seedSessionTeacher(mem *storetest.Memory, events ...model.AvailabilityEvent) {
	mem.Seed("users", "t1", &model.User{
		ID:   "t1",
		Role: model.RoleTeacher,
		TeacherDetails: &model.TeacherDetails{
			Nickname: "Ms. Chen",
			Pricing:  5000,
		},
		Events:    events,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func sessionEvent(day, start, end int) model.AvailabilityEvent {
	return model.AvailabilityEvent{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: day},
		StartTime: start,
		EndTime:   end,
		Status:    model.EventStatusAvailable,
	}
}

func TestInitLoadsExistingUser(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem, sessionEvent(10, 540, 600))

	p, err := reg.Init(context.Background(), auth.Identity{UID: "t1", Role: model.RoleTeacher})
	require.NoError(t, err)

	assert.Equal(t, StatePopulated, p.State())
	require.NotNil(t, p.User())
	assert.Equal(t, "Ms. Chen", p.User().TeacherDetails.Nickname)
	assert.Len(t, p.User().Events, 1)
	assert.Empty(t, p.Bookings())
}

func TestInitMissingUserSignsOut(t *testing.T) {
	_, reg := newRegistryFixture(t)

	p, err := reg.Init(context.Background(), auth.Identity{UID: "ghost", Role: model.RoleStudent})
	require.NoError(t, err)

	assert.Equal(t, StateSignedOut, p.State())
	assert.Nil(t, p.User())
}

func TestInitReturnsSameProjection(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem)

	identity := auth.Identity{UID: "t1", Role: model.RoleTeacher}

	first, err := reg.Init(context.Background(), identity)
	require.NoError(t, err)
	second, err := reg.Init(context.Background(), identity)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestTeardownDiscardsProjection(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem)

	identity := auth.Identity{UID: "t1", Role: model.RoleTeacher}

	first, err := reg.Init(context.Background(), identity)
	require.NoError(t, err)

	reg.Teardown("t1")

	second, err := reg.Init(context.Background(), identity)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestUpdateAvailabilityReplacesCachedEvents(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem, sessionEvent(10, 540, 600))

	p, err := reg.Init(context.Background(), auth.Identity{UID: "t1", Role: model.RoleTeacher})
	require.NoError(t, err)

	merged, err := p.UpdateAvailability(context.Background(), []model.AvailabilityEvent{
		sessionEvent(11, 540, 600),
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	assert.Equal(t, merged, p.User().Events)
}

func TestFailedMutationLeavesCacheUntouched(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem, sessionEvent(10, 540, 600))

	p, err := reg.Init(context.Background(), auth.Identity{UID: "t1", Role: model.RoleTeacher})
	require.NoError(t, err)

	mem.FailSet = func(collection, id string) error {
		return errors.New("store down")
	}

	_, err = p.UpdateAvailability(context.Background(), []model.AvailabilityEvent{
		sessionEvent(11, 540, 600),
	})
	require.Error(t, err)

	require.Len(t, p.User().Events, 1)
	assert.Equal(t, 10, p.User().Events[0].Date.Day)
}

func TestRemoveAvailabilityUpdatesCache(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem, sessionEvent(10, 540, 600), sessionEvent(11, 540, 600))

	p, err := reg.Init(context.Background(), auth.Identity{UID: "t1", Role: model.RoleTeacher})
	require.NoError(t, err)

	remaining, err := p.RemoveAvailability(context.Background(), sessionEvent(10, 540, 600))
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	require.Len(t, p.User().Events, 1)
	assert.Equal(t, 11, p.User().Events[0].Date.Day)
}

func TestUpdateNicknameReplacesUser(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem)

	p, err := reg.Init(context.Background(), auth.Identity{UID: "t1", Role: model.RoleTeacher})
	require.NoError(t, err)

	require.NoError(t, p.UpdateNickname(context.Background(), "Dr. Chen"))
	assert.Equal(t, "Dr. Chen", p.User().TeacherDetails.Nickname)
}

func TestRefreshBookingsPicksUpNewReservations(t *testing.T) {
	mem, reg := newRegistryFixture(t)
	seedSessionTeacher(mem)

	p, err := reg.Init(context.Background(), auth.Identity{UID: "t1", Role: model.RoleTeacher})
	require.NoError(t, err)
	assert.Empty(t, p.Bookings())

	mem.Seed("bookings", "b1", &model.Booking{
		ID:        "b1",
		StudentID: "s1",
		TeacherID: "t1",
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
		Status:    model.BookingStatusConfirmed,
	})

	require.NoError(t, p.RefreshBookings(context.Background()))
	require.Len(t, p.Bookings(), 1)
	assert.Equal(t, "b1", p.Bookings()[0].ID)
}
