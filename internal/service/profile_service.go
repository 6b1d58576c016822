package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/repository"
)

type ProfileService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewProfileService(userRepo *repository.UserRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{userRepo: userRepo, logger: logger}
}

// Get fetches a user's profile.
func (s *ProfileService) Get(ctx context.Context, uid string) (*model.User, error) {
	return s.userRepo.GetByID(ctx, uid)
}

// UpdateNickname changes the caller's display name and returns the
// authoritative post-write profile.
func (s *ProfileService) UpdateNickname(ctx context.Context, actor auth.Identity, nickname string) (*model.User, error) {
	if nickname == "" {
		return nil, apperrors.Validation("nickname must not be empty")
	}
	return s.updateDetails(ctx, actor, func(u *model.User) {
		if u.TeacherDetails != nil {
			u.TeacherDetails.Nickname = nickname
		}
		if u.StudentDetails != nil {
			u.StudentDetails.Nickname = nickname
		}
	})
}

// UpdateDescription changes a teacher's public description.
func (s *ProfileService) UpdateDescription(ctx context.Context, actor auth.Identity, description string) (*model.User, error) {
	if err := auth.RequireRole(actor, model.RoleTeacher); err != nil {
		return nil, err
	}
	return s.updateDetails(ctx, actor, func(u *model.User) {
		if u.TeacherDetails != nil {
			u.TeacherDetails.Description = description
		}
	})
}

// UpdatePrice changes a teacher's per-lesson price, in cents.
func (s *ProfileService) UpdatePrice(ctx context.Context, actor auth.Identity, price int) (*model.User, error) {
	if err := auth.RequireRole(actor, model.RoleTeacher); err != nil {
		return nil, err
	}
	if price < 0 {
		return nil, apperrors.Validation("price %d must not be negative", price)
	}
	return s.updateDetails(ctx, actor, func(u *model.User) {
		if u.TeacherDetails != nil {
			u.TeacherDetails.Pricing = price
		}
	})
}

// UpdateBalance sets the caller's balance. Display only; no booking
// operation gates on it.
func (s *ProfileService) UpdateBalance(ctx context.Context, actor auth.Identity, balance int) (*model.User, error) {
	if err := s.userRepo.MergeProfile(ctx, actor.UID, map[string]any{"balance": balance}); err != nil {
		return nil, err
	}

	s.logger.Info("Balance updated",
		zap.String("user_id", actor.UID),
		zap.Int("balance", balance),
	)
	return s.userRepo.GetByID(ctx, actor.UID)
}

// updateDetails reads the profile, applies mutate to the detail records,
// and merges only the detail fields back, leaving the events array out
// of the write entirely.
func (s *ProfileService) updateDetails(ctx context.Context, actor auth.Identity, mutate func(*model.User)) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, actor.UID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Validation("user %s not found", actor.UID)
	}

	mutate(user)

	fields := map[string]any{}
	if user.TeacherDetails != nil {
		fields["teacherDetails"] = user.TeacherDetails
	}
	if user.StudentDetails != nil {
		fields["studentDetails"] = user.StudentDetails
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.MergeProfile(ctx, actor.UID, fields); err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated", zap.String("user_id", actor.UID))
	return s.userRepo.GetByID(ctx, actor.UID)
}
