package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/service"
	"github.com/tutorlane/server/internal/session"
)

type mergeAvailabilityRequest struct {
	Events []model.AvailabilityEvent `json:"events" validate:"required,min=1"`
}

type addSeriesRequest struct {
	Event        model.AvailabilityEvent `json:"event" validate:"required"`
	TotalClasses int                     `json:"totalClasses" validate:"required,min=1,max=4"`
}

type removeAvailabilityRequest struct {
	Target model.AvailabilityEvent `json:"target" validate:"required"`
}

type createBookingRequest struct {
	TeacherID    string          `json:"teacherId" validate:"required"`
	Date         model.DateStamp `json:"date" validate:"required"`
	StartTime    int             `json:"startTime" validate:"min=0,max=1439"`
	EndTime      int             `json:"endTime" validate:"min=1,max=1439"`
	TotalClasses int             `json:"totalClasses" validate:"min=0,max=4"`
}

type feedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type updateProfileRequest struct {
	Nickname    *string `json:"nickname,omitempty"`
	Description *string `json:"description,omitempty"`
	Pricing     *int    `json:"pricing,omitempty"`
	Balance     *int    `json:"balance,omitempty"`
}

func (a *API) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("malformed request body: %v", err)
	}
	if err := a.validate.Struct(dst); err != nil {
		return apperrors.Validation("invalid request: %v", err)
	}
	return nil
}

func (a *API) projection(r *http.Request) (*session.Projection, auth.Identity, error) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, auth.Identity{}, apperrors.Authorization("no session")
	}
	p, err := a.sessions.Init(r.Context(), identity)
	if err != nil {
		return nil, identity, err
	}
	return p, identity, nil
}

func (a *API) getAvailability(w http.ResponseWriter, r *http.Request) {
	events, err := a.availability.Events(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) mergeAvailability(w http.ResponseWriter, r *http.Request) {
	p, identity, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	if teacherID := chi.URLParam(r, "teacherID"); teacherID != identity.UID {
		respondError(w, a.logger, apperrors.Authorization("cannot edit another teacher's availability"))
		return
	}

	var req mergeAvailabilityRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	merged, err := p.UpdateAvailability(r.Context(), req.Events)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": merged})
}

func (a *API) addAvailabilitySeries(w http.ResponseWriter, r *http.Request) {
	p, identity, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	if teacherID := chi.URLParam(r, "teacherID"); teacherID != identity.UID {
		respondError(w, a.logger, apperrors.Authorization("cannot edit another teacher's availability"))
		return
	}

	var req addSeriesRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	merged, err := p.AddAvailabilitySeries(r.Context(), req.Event, req.TotalClasses)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": merged})
}

func (a *API) removeAvailability(w http.ResponseWriter, r *http.Request) {
	p, identity, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	if teacherID := chi.URLParam(r, "teacherID"); teacherID != identity.UID {
		respondError(w, a.logger, apperrors.Authorization("cannot edit another teacher's availability"))
		return
	}

	var req removeAvailabilityRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	remaining, err := p.RemoveAvailability(r.Context(), req.Target)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": remaining})
}

func (a *API) createBooking(w http.ResponseWriter, r *http.Request) {
	p, identity, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}

	var req createBookingRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	selection := service.SlotSelection{
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		TotalClasses: req.TotalClasses,
	}
	built, err := a.bookings.BuildBookings(r.Context(), selection, req.TeacherID, identity.UID)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}

	message, err := a.bookings.ConfirmBooking(r.Context(), identity, built)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}

	// Committed; refresh the caller's cached reservations best-effort.
	if err := p.RefreshBookings(r.Context()); err != nil {
		a.logger.Warn("Failed to refresh bookings projection", zap.Error(err))
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":  message,
		"bookings": built,
	})
}

func (a *API) listBookings(w http.ResponseWriter, r *http.Request) {
	p, _, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	if err := p.RefreshBookings(r.Context()); err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"bookings": p.Bookings()})
}

func (a *API) cancelBooking(w http.ResponseWriter, r *http.Request) {
	p, identity, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}

	if err := a.bookings.CancelBooking(r.Context(), identity, chi.URLParam(r, "bookingID")); err != nil {
		respondError(w, a.logger, err)
		return
	}
	if err := p.RefreshBookings(r.Context()); err != nil {
		a.logger.Warn("Failed to refresh bookings projection", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Booking cancelled"})
}

func (a *API) addFeedback(w http.ResponseWriter, r *http.Request) {
	a.handleFeedback(w, r, a.feedback.Add)
}

func (a *API) updateFeedback(w http.ResponseWriter, r *http.Request) {
	a.handleFeedback(w, r, a.feedback.Update)
}

func (a *API) handleFeedback(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor auth.Identity, bookingID string, rating int, comment string) error) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, a.logger, apperrors.Authorization("no session"))
		return
	}

	var req feedbackRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	if err := op(r.Context(), identity, chi.URLParam(r, "bookingID"), req.Rating, req.Comment); err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Feedback saved"})
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	p, _, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"state": p.State(),
		"user":  p.User(),
	})
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	p, _, err := a.projection(r)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}

	var req updateProfileRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	ctx := r.Context()
	if req.Nickname != nil {
		if err := p.UpdateNickname(ctx, *req.Nickname); err != nil {
			respondError(w, a.logger, err)
			return
		}
	}
	if req.Description != nil {
		if err := p.UpdateDescription(ctx, *req.Description); err != nil {
			respondError(w, a.logger, err)
			return
		}
	}
	if req.Pricing != nil {
		if err := p.UpdatePrice(ctx, *req.Pricing); err != nil {
			respondError(w, a.logger, err)
			return
		}
	}
	if req.Balance != nil {
		if err := p.UpdateBalance(ctx, *req.Balance); err != nil {
			respondError(w, a.logger, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": p.User()})
}

func (a *API) teardownSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, a.logger, apperrors.Authorization("no session"))
		return
	}
	a.sessions.Teardown(identity.UID)
	respondJSON(w, http.StatusOK, map[string]any{"message": "Signed out"})
}
