package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/repository"
	"github.com/tutorlane/server/internal/schedule"
	"github.com/tutorlane/server/internal/store"
	"github.com/tutorlane/server/internal/timeutil"
)

// EmailSender dispatches confirmation emails. Best-effort: a send
// failure is logged and never unwinds a committed booking.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SlotSelection is the student's choice: one slot, optionally repeated
// weekly TotalClasses times.
type SlotSelection struct {
	Date         model.DateStamp
	StartTime    int
	EndTime      int
	TotalClasses int
}

type BookingService struct {
	store       store.Client
	userRepo    *repository.UserRepository
	bookingRepo *repository.BookingRepository
	email       EmailSender
	logger      *zap.Logger
	now         nowFunc
}

func NewBookingService(
	st store.Client,
	userRepo *repository.UserRepository,
	bookingRepo *repository.BookingRepository,
	email EmailSender,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:       st,
		userRepo:    userRepo,
		bookingRepo: bookingRepo,
		email:       email,
		logger:      logger,
		now:         defaultNow,
	}
}

// BuildBookings expands a slot selection into one booking per week. A
// multi-week series shares a fresh bulk id; dates step by seven days
// through real calendar arithmetic, so month and year rollover are
// handled. Price comes from the teacher's current pricing.
func (s *BookingService) BuildBookings(ctx context.Context, selection SlotSelection, teacherID, studentID string) ([]model.Booking, error) {
	slot := model.TimeSlot{Date: selection.Date, StartTime: selection.StartTime, EndTime: selection.EndTime}
	if err := timeutil.ValidateSlot(slot); err != nil {
		return nil, err
	}

	total := selection.TotalClasses
	if total < 1 {
		total = 1
	}
	if total > schedule.MaxSeriesLength {
		return nil, apperrors.Validation("series length %d out of range [1,%d]", total, schedule.MaxSeriesLength)
	}

	teacher, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, apperrors.Validation("teacher %s not found", teacherID)
	}

	price := 0
	if teacher.TeacherDetails != nil {
		price = teacher.TeacherDetails.Pricing
	}

	bulkID := ""
	if total > 1 {
		bulkID = uuid.NewString()
	}

	createdAt := s.now().UTC()
	bookings := make([]model.Booking, 0, total)
	for i, date := range schedule.WeeklyDates(selection.Date, total) {
		b := model.Booking{
			ID:        uuid.NewString(),
			StudentID: studentID,
			TeacherID: teacherID,
			Date:      date,
			StartTime: selection.StartTime,
			EndTime:   selection.EndTime,
			Price:     price,
			Status:    model.BookingStatusConfirmed,
			CreatedAt: createdAt,
		}
		if total > 1 {
			b.BulkID = bulkID
			b.LessonNumber = i + 1
			b.TotalLessons = total
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// ConfirmBooking validates the candidate bookings against a fresh
// snapshot of the teacher's events and commits them. Booking documents
// are written before availability is consumed, all inside one
// transaction: a failed booking write leaves every slot untouched.
func (s *BookingService) ConfirmBooking(ctx context.Context, actor auth.Identity, bookings []model.Booking) (string, error) {
	if len(bookings) == 0 {
		return "", apperrors.Validation("no bookings to confirm")
	}

	teacherID := bookings[0].TeacherID
	studentID := bookings[0].StudentID
	if err := auth.RequireOwner(actor, studentID); err != nil {
		return "", err
	}
	for _, b := range bookings {
		if b.TeacherID != teacherID || b.StudentID != studentID {
			return "", apperrors.Validation("bookings mix teachers or students")
		}
	}

	err := s.store.WithTransaction(ctx, func(tx store.DocTx) error {
		teacher, err := s.userRepo.GetInTx(ctx, tx, teacherID)
		if err != nil {
			return err
		}
		if teacher == nil {
			return apperrors.Validation("teacher %s not found", teacherID)
		}

		consumed, err := planConsumption(teacher.Events, bookings)
		if err != nil {
			return err
		}

		// Booking write precedes availability consumption.
		if err := s.bookingRepo.CreateInTx(ctx, tx, bookings); err != nil {
			return err
		}

		for _, idx := range consumed {
			teacher.Events[idx].Status = model.EventStatusBooked
		}
		return s.userRepo.SetInTx(ctx, tx, teacher)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("Booking confirmed",
		zap.String("student_id", studentID),
		zap.String("teacher_id", teacherID),
		zap.Int("lessons", len(bookings)),
		zap.String("bulk_id", bookings[0].BulkID),
	)

	s.sendConfirmationEmail(ctx, studentID, bookings)

	if len(bookings) > 1 {
		return fmt.Sprintf("Booked %d weekly lessons", len(bookings)), nil
	}
	return "Lesson booked", nil
}

// planConsumption matches each candidate against the teacher's events.
// A candidate that exactly matches an open slot consumes it; any other
// intersection with a non-cancelled event is a conflict. Returns the
// indexes of events to mark booked.
func planConsumption(events []model.AvailabilityEvent, bookings []model.Booking) ([]int, error) {
	var consumed []int
	taken := make(map[int]bool)

	for _, b := range bookings {
		matched := -1
		for i, e := range events {
			if taken[i] || e.Status != model.EventStatusAvailable {
				continue
			}
			if e.Slot().SameSlot(b.Slot()) {
				matched = i
				break
			}
		}
		if matched >= 0 {
			taken[matched] = true
			consumed = append(consumed, matched)
			continue
		}

		// No exact open slot: the candidate must not touch anything.
		for i, e := range events {
			if taken[i] || e.Status == model.EventStatusCancelled {
				continue
			}
			if schedule.HasOverlap([]model.TimeSlot{e.Slot()}, []model.TimeSlot{b.Slot()}) {
				return nil, apperrors.Overlap("slot %s %s-%s is taken",
					b.Date, timeutil.FormatClockTime(b.StartTime), timeutil.FormatClockTime(b.EndTime))
			}
		}
	}
	return consumed, nil
}

// CancelBooking flips the booking to cancelled. The consumed
// availability slot keeps its booked status; whether cancellation should
// reopen it is unresolved upstream (see DESIGN.md).
func (s *BookingService) CancelBooking(ctx context.Context, actor auth.Identity, bookingID string) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return apperrors.Validation("booking %s not found", bookingID)
	}
	if actor.UID != booking.StudentID && actor.UID != booking.TeacherID {
		return apperrors.Authorization("user %s cannot cancel booking %s", actor.UID, bookingID)
	}
	if !booking.IsActive() {
		return apperrors.Validation("booking %s is not active", bookingID)
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, model.BookingStatusCancelled); err != nil {
		return err
	}

	s.logger.Info("Booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("user_id", actor.UID),
	)
	return nil
}

// StudentBookings returns the student's own reservations.
func (s *BookingService) StudentBookings(ctx context.Context, studentID string) ([]model.Booking, error) {
	return s.bookingRepo.GetByStudentID(ctx, studentID)
}

// TeacherBookings returns every reservation against the teacher.
func (s *BookingService) TeacherBookings(ctx context.Context, teacherID string) ([]model.Booking, error) {
	return s.bookingRepo.GetByTeacherID(ctx, teacherID)
}

// CompleteElapsed marks confirmed bookings whose end time has passed as
// completed. Driven by the background sweep.
func (s *BookingService) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	confirmed, err := s.bookingRepo.GetByStatus(ctx, model.BookingStatusConfirmed)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range confirmed {
		if timeutil.SlotEnd(b.Slot()).After(now) {
			continue
		}
		if err := s.bookingRepo.UpdateStatus(ctx, b.ID, model.BookingStatusCompleted); err != nil {
			s.logger.Error("Failed to complete booking",
				zap.String("booking_id", b.ID),
				zap.Error(err))
			continue
		}
		completed++
	}

	if completed > 0 {
		s.logger.Info("Completed elapsed bookings", zap.Int("count", completed))
	}
	return completed, nil
}

func (s *BookingService) sendConfirmationEmail(ctx context.Context, studentID string, bookings []model.Booking) {
	if s.email == nil {
		return
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil || student == nil || student.Email == "" {
		return
	}

	first := bookings[0]
	subject := "Your lesson is booked"
	html := fmt.Sprintf("<p>Your lesson on %s at %s is confirmed.</p>",
		first.Date, timeutil.FormatClockTime(first.StartTime))
	if len(bookings) > 1 {
		subject = fmt.Sprintf("Your %d weekly lessons are booked", len(bookings))
	}

	if err := s.email.Send(ctx, student.Email, subject, html); err != nil {
		s.logger.Warn("Confirmation email failed",
			zap.String("student_id", studentID),
			zap.Error(err))
	}
}
