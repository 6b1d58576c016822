package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/client"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/repository"
	"github.com/tutorlane/server/internal/schedule"
	"github.com/tutorlane/server/internal/timeutil"
)

// MeetingCreator obtains meeting links for new availability events.
type MeetingCreator interface {
	CreateMeeting(ctx context.Context, startTime time.Time) (*client.Meeting, error)
}

type AvailabilityService struct {
	availabilityRepo *repository.AvailabilityRepository
	userRepo         *repository.UserRepository
	meetings         MeetingCreator
	logger           *zap.Logger
}

func NewAvailabilityService(
	availabilityRepo *repository.AvailabilityRepository,
	userRepo *repository.UserRepository,
	meetings MeetingCreator,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		availabilityRepo: availabilityRepo,
		userRepo:         userRepo,
		meetings:         meetings,
		logger:           logger,
	}
}

// Merge validates newEvents, attaches meeting links, and merges them
// into the teacher's availability set transactionally. Returns the full
// resulting set.
func (s *AvailabilityService) Merge(ctx context.Context, actor auth.Identity, teacherID string, newEvents []model.AvailabilityEvent) ([]model.AvailabilityEvent, error) {
	if err := auth.RequireOwner(actor, teacherID); err != nil {
		return nil, err
	}
	if err := auth.RequireRole(actor, model.RoleTeacher); err != nil {
		return nil, err
	}

	for i := range newEvents {
		if err := timeutil.ValidateSlot(newEvents[i].Slot()); err != nil {
			return nil, err
		}
		if newEvents[i].Status == "" {
			newEvents[i].Status = model.EventStatusAvailable
		}
	}

	// Meeting links are obtained before the transactional merge, so a
	// provider failure never leaves a half-created series behind.
	if err := s.attachMeetingLinks(ctx, newEvents); err != nil {
		return nil, err
	}

	merged, err := s.availabilityRepo.Merge(ctx, teacherID, newEvents)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Availability merged",
		zap.String("teacher_id", teacherID),
		zap.Int("new_events", len(newEvents)),
		zap.Int("total_events", len(merged)),
	)

	return merged, nil
}

// AddSeries materializes a weekly recurring series from its first event
// and merges it. Re-submitting the same repeat group replaces the old
// series, so the call is idempotent.
func (s *AvailabilityService) AddSeries(ctx context.Context, actor auth.Identity, teacherID string, base model.AvailabilityEvent, totalClasses int) ([]model.AvailabilityEvent, error) {
	if base.RepeatGroupID == "" {
		base.RepeatGroupID = uuid.NewString()
	}

	events, err := schedule.ExpandSeries(base, totalClasses)
	if err != nil {
		return nil, err
	}

	return s.Merge(ctx, actor, teacherID, events)
}

// Remove deletes a single event, or a whole series when the target is
// repeating. Returns the remaining set.
func (s *AvailabilityService) Remove(ctx context.Context, actor auth.Identity, teacherID string, target model.AvailabilityEvent) ([]model.AvailabilityEvent, error) {
	if err := auth.RequireOwner(actor, teacherID); err != nil {
		return nil, err
	}

	remaining, err := s.availabilityRepo.Remove(ctx, teacherID, target)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Availability removed",
		zap.String("teacher_id", teacherID),
		zap.Bool("series", target.IsRepeating),
		zap.Int("remaining_events", len(remaining)),
	)

	return remaining, nil
}

// Events returns a display snapshot of the teacher's full event history.
// The snapshot may be briefly stale; the booking flow never uses it for
// its overlap check.
func (s *AvailabilityService) Events(ctx context.Context, teacherID string) ([]model.AvailabilityEvent, error) {
	teacher, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, nil
	}
	return teacher.Events, nil
}

func (s *AvailabilityService) attachMeetingLinks(ctx context.Context, events []model.AvailabilityEvent) error {
	if s.meetings == nil {
		return nil
	}
	for i := range events {
		if events[i].MeetingLink != "" {
			continue
		}
		meeting, err := s.meetings.CreateMeeting(ctx, timeutil.SlotStart(events[i].Slot()))
		if err != nil {
			return err
		}
		events[i].MeetingLink = meeting.Link
	}
	return nil
}
