package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/store"
)

const bookingsCollection = "bookings"

type BookingRepository struct {
	store store.Client
}

func NewBookingRepository(st store.Client) *BookingRepository {
	return &BookingRepository{store: st}
}

// GetByID fetches a booking. Returns (nil, nil) when absent.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.store.Get(ctx, bookingsCollection, id, &booking)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// CreateInTx persists booking documents inside an open transaction. The
// confirmation flow calls this before consuming availability so a failed
// booking write leaves the teacher's slots untouched.
func (r *BookingRepository) CreateInTx(ctx context.Context, tx store.DocTx, bookings []model.Booking) error {
	for i := range bookings {
		if err := tx.Set(ctx, bookingsCollection, bookings[i].ID, &bookings[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *BookingRepository) GetByStudentID(ctx context.Context, studentID string) ([]model.Booking, error) {
	return r.list(ctx, "studentId", studentID)
}

func (r *BookingRepository) GetByTeacherID(ctx context.Context, teacherID string) ([]model.Booking, error) {
	return r.list(ctx, "teacherId", teacherID)
}

// GetByStatus returns every booking in the given status, across users.
// Used by the completion sweep.
func (r *BookingRepository) GetByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error) {
	return r.list(ctx, "status", string(status))
}

func (r *BookingRepository) list(ctx context.Context, field, value string) ([]model.Booking, error) {
	docs, err := r.store.List(ctx, bookingsCollection, field, value)
	if err != nil {
		return nil, fmt.Errorf("list bookings by %s: %w", field, err)
	}

	bookings := make([]model.Booking, 0, len(docs))
	for _, doc := range docs {
		var b model.Booking
		if err := json.Unmarshal(doc, &b); err != nil {
			return nil, fmt.Errorf("decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// UpdateStatus flips a booking's status via field merge.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	patch := map[string]any{"status": status}
	if err := r.store.Merge(ctx, bookingsCollection, id, patch); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// MergeFeedback overlays the feedback object onto the booking document.
// Field merge, not full-document replace: concurrent status changes are
// not clobbered.
func (r *BookingRepository) MergeFeedback(ctx context.Context, id string, feedback *model.Feedback) error {
	patch := map[string]any{"feedback": feedback}
	if err := r.store.Merge(ctx, bookingsCollection, id, patch); err != nil {
		return fmt.Errorf("merge feedback: %w", err)
	}
	return nil
}
