package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/repository"
)

type FeedbackService struct {
	bookingRepo *repository.BookingRepository
	logger      *zap.Logger
	now         nowFunc
}

func NewFeedbackService(bookingRepo *repository.BookingRepository, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{
		bookingRepo: bookingRepo,
		logger:      logger,
		now:         defaultNow,
	}
}

// Add attaches a feedback object to a completed booking. Store-level
// field merge only; last-write-wins is fine since only the owning
// student can write it.
func (s *FeedbackService) Add(ctx context.Context, actor auth.Identity, bookingID string, rating int, comment string) error {
	booking, err := s.loadOwnedBooking(ctx, actor, bookingID)
	if err != nil {
		return err
	}
	if err := validateRating(rating); err != nil {
		return err
	}
	if booking.Feedback != nil {
		return apperrors.Validation("booking %s already has feedback", bookingID)
	}

	now := s.now().UTC()
	feedback := &model.Feedback{
		Rating:    rating,
		Comment:   comment,
		StudentID: actor.UID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.bookingRepo.MergeFeedback(ctx, bookingID, feedback); err != nil {
		return err
	}

	s.logger.Info("Feedback added",
		zap.String("booking_id", bookingID),
		zap.Int("rating", rating),
	)
	return nil
}

// Update merges new rating/comment onto existing feedback. CreatedAt is
// preserved; only UpdatedAt moves.
func (s *FeedbackService) Update(ctx context.Context, actor auth.Identity, bookingID string, rating int, comment string) error {
	booking, err := s.loadOwnedBooking(ctx, actor, bookingID)
	if err != nil {
		return err
	}
	if err := validateRating(rating); err != nil {
		return err
	}
	if booking.Feedback == nil {
		return apperrors.Validation("booking %s has no feedback to update", bookingID)
	}

	feedback := *booking.Feedback
	feedback.Rating = rating
	feedback.Comment = comment
	feedback.UpdatedAt = s.now().UTC()

	if err := s.bookingRepo.MergeFeedback(ctx, bookingID, &feedback); err != nil {
		return err
	}

	s.logger.Info("Feedback updated", zap.String("booking_id", bookingID))
	return nil
}

func (s *FeedbackService) loadOwnedBooking(ctx context.Context, actor auth.Identity, bookingID string) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.Validation("booking %s not found", bookingID)
	}
	if booking.StudentID != actor.UID {
		return nil, apperrors.Authorization("user %s does not own booking %s", actor.UID, bookingID)
	}
	if booking.Status != model.BookingStatusCompleted {
		return nil, apperrors.Validation("booking %s is not completed", bookingID)
	}
	return booking, nil
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.Validation("rating %d out of range [1,5]", rating)
	}
	return nil
}
