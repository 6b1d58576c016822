package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/repository"
	"github.com/tutorlane/server/internal/schedule"
	"github.com/tutorlane/server/internal/store/storetest"
)

var studentActor = auth.Identity{UID: "s1", Role: model.RoleStudent}

func newBookingFixture(t *testing.T) (*storetest.Memory, *BookingService) {
	t.Helper()
	mem := storetest.NewMemory()
	userRepo := repository.NewUserRepository(mem)
	bookingRepo := repository.NewBookingRepository(mem)
	svc := NewBookingService(mem, userRepo, bookingRepo, nil, zap.NewNop())
	return mem, svc
}

func seedTeacherWithEvents(mem *storetest.Memory, pricing int, events ...model.AvailabilityEvent) {
	mem.Seed("users", "t1", &model.User{
		ID:   "t1",
		Role: model.RoleTeacher,
		TeacherDetails: &model.TeacherDetails{
			Nickname: "Ms. Chen",
			Pricing:  pricing,
		},
		Events:    events,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func openEvent(year, month, day, start, end int) model.AvailabilityEvent {
	return model.AvailabilityEvent{
		Date:      model.DateStamp{Year: year, Month: month, Day: day},
		StartTime: start,
		EndTime:   end,
		Status:    model.EventStatusAvailable,
	}
}

func TestBuildBookingsSingle(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000)

	selection := SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	}

	bookings, err := svc.BuildBookings(context.Background(), selection, "t1", "s1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	b := bookings[0]
	assert.Equal(t, "s1", b.StudentID)
	assert.Equal(t, "t1", b.TeacherID)
	assert.Equal(t, 5000, b.Price)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.Empty(t, b.BulkID)
	assert.Zero(t, b.LessonNumber)
	assert.NotEmpty(t, b.ID)
}

func TestBuildBookingsBulkRollsOverMonth(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 4500)

	selection := SlotSelection{
		Date:         model.DateStamp{Year: 2024, Month: 1, Day: 30},
		StartTime:    540,
		EndTime:      600,
		TotalClasses: 3,
	}

	bookings, err := svc.BuildBookings(context.Background(), selection, "t1", "s1")
	require.NoError(t, err)
	require.Len(t, bookings, 3)

	assert.Equal(t, model.DateStamp{Year: 2024, Month: 1, Day: 30}, bookings[0].Date)
	assert.Equal(t, model.DateStamp{Year: 2024, Month: 2, Day: 6}, bookings[1].Date)
	assert.Equal(t, model.DateStamp{Year: 2024, Month: 2, Day: 13}, bookings[2].Date)

	bulkID := bookings[0].BulkID
	require.NotEmpty(t, bulkID)
	for i, b := range bookings {
		assert.Equal(t, bulkID, b.BulkID)
		assert.Equal(t, i+1, b.LessonNumber)
		assert.Equal(t, 3, b.TotalLessons)
		assert.Equal(t, 4500, b.Price)
	}
}

func TestBuildBookingsRejectsBadInput(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000)

	selection := SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 600,
		EndTime:   540,
	}
	_, err := svc.BuildBookings(context.Background(), selection, "t1", "s1")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	selection = SlotSelection{
		Date:         model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime:    540,
		EndTime:      600,
		TotalClasses: schedule.MaxSeriesLength + 1,
	}
	_, err = svc.BuildBookings(context.Background(), selection, "t1", "s1")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = svc.BuildBookings(context.Background(), SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	}, "missing-teacher", "s1")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestConfirmBookingConsumesExactSlot(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000, openEvent(2024, 6, 10, 540, 600))

	selection := SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	}
	bookings, err := svc.BuildBookings(context.Background(), selection, "t1", "s1")
	require.NoError(t, err)

	message, err := svc.ConfirmBooking(context.Background(), studentActor, bookings)
	require.NoError(t, err)
	assert.NotEmpty(t, message)

	var teacher model.User
	require.NoError(t, mem.Get(context.Background(), "users", "t1", &teacher))
	require.Len(t, teacher.Events, 1)
	assert.Equal(t, model.EventStatusBooked, teacher.Events[0].Status)

	// The consumed slot no longer conflicts with anything open.
	var open []model.TimeSlot
	for _, e := range teacher.OpenEvents() {
		open = append(open, e.Slot())
	}
	assert.False(t, schedule.HasOverlap(open, []model.TimeSlot{bookings[0].Slot()}))

	stored, err := svc.StudentBookings(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.BookingStatusConfirmed, stored[0].Status)
}

func TestConfirmBookingRejectsOverlap(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000, openEvent(2024, 6, 10, 540, 600))

	selection := SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 570,
		EndTime:   630,
	}
	bookings, err := svc.BuildBookings(context.Background(), selection, "t1", "s1")
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), studentActor, bookings)
	assert.Equal(t, apperrors.KindOverlap, apperrors.KindOf(err))

	// Nothing was written.
	stored, err := svc.StudentBookings(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	var teacher model.User
	require.NoError(t, mem.Get(context.Background(), "users", "t1", &teacher))
	assert.Equal(t, model.EventStatusAvailable, teacher.Events[0].Status)
}

func TestConfirmBookingRejectsDoubleBooking(t *testing.T) {
	booked := openEvent(2024, 6, 10, 540, 600)
	booked.Status = model.EventStatusBooked

	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000, booked)

	selection := SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	}
	bookings, err := svc.BuildBookings(context.Background(), selection, "t1", "s1")
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), studentActor, bookings)
	assert.Equal(t, apperrors.KindOverlap, apperrors.KindOf(err))
}

func TestConfirmBookingFailedWriteLeavesAvailability(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000, openEvent(2024, 6, 10, 540, 600))

	mem.FailSet = func(collection, id string) error {
		if collection == "bookings" {
			return errors.New("write refused")
		}
		return nil
	}

	selection := SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	}
	bookings, err := svc.BuildBookings(context.Background(), selection, "t1", "s1")
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), studentActor, bookings)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))

	// The slot must not be consumed when the booking write failed.
	var teacher model.User
	require.NoError(t, mem.Get(context.Background(), "users", "t1", &teacher))
	assert.Equal(t, model.EventStatusAvailable, teacher.Events[0].Status)
}

func TestConfirmBookingRequiresOwnership(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000, openEvent(2024, 6, 10, 540, 600))

	bookings, err := svc.BuildBookings(context.Background(), SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	}, "t1", "s1")
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), auth.Identity{UID: "s2", Role: model.RoleStudent}, bookings)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
}

func TestCancelBookingKeepsSlotConsumed(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000, openEvent(2024, 6, 10, 540, 600))

	bookings, err := svc.BuildBookings(context.Background(), SlotSelection{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	}, "t1", "s1")
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), studentActor, bookings)
	require.NoError(t, err)

	require.NoError(t, svc.CancelBooking(context.Background(), studentActor, bookings[0].ID))

	stored, err := svc.StudentBookings(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.BookingStatusCancelled, stored[0].Status)

	// Whether cancellation should reopen the slot is unresolved; it stays booked.
	var teacher model.User
	require.NoError(t, mem.Get(context.Background(), "users", "t1", &teacher))
	assert.Equal(t, model.EventStatusBooked, teacher.Events[0].Status)
}

func TestCompleteElapsed(t *testing.T) {
	mem, svc := newBookingFixture(t)
	seedTeacherWithEvents(mem, 5000,
		openEvent(2024, 6, 10, 540, 600),
		openEvent(2024, 6, 20, 540, 600),
	)

	for _, day := range []int{10, 20} {
		bookings, err := svc.BuildBookings(context.Background(), SlotSelection{
			Date:      model.DateStamp{Year: 2024, Month: 6, Day: day},
			StartTime: 540,
			EndTime:   600,
		}, "t1", "s1")
		require.NoError(t, err)
		_, err = svc.ConfirmBooking(context.Background(), studentActor, bookings)
		require.NoError(t, err)
	}

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	count, err := svc.CompleteElapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := svc.StudentBookings(context.Background(), "s1")
	require.NoError(t, err)

	statuses := map[int]model.BookingStatus{}
	for _, b := range stored {
		statuses[b.Date.Day] = b.Status
	}
	assert.Equal(t, model.BookingStatusCompleted, statuses[10])
	assert.Equal(t, model.BookingStatusConfirmed, statuses[20])
}
