package api

import (
	"net/http"
	"time"

	"github.com/tutorlane/server/internal/apperrors"
)

// The proxy routes keep provider credentials server-side; the UI only
// ever talks to these endpoints.

type createMeetingRequest struct {
	StartTime string `json:"start_time" validate:"required"`
}

func (a *API) proxyCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		respondError(w, a.logger, apperrors.Validation("start_time must be RFC3339: %v", err))
		return
	}

	meeting, err := a.meetings.CreateMeeting(r.Context(), start)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, meeting)
}

func (a *API) proxyMeetingArtifact(w http.ResponseWriter, r *http.Request) {
	meetingID := r.URL.Query().Get("meetingId")
	if meetingID == "" {
		respondError(w, a.logger, apperrors.Validation("meetingId query parameter is required"))
		return
	}

	artifact, err := a.meetings.GetRecording(r.Context(), meetingID)
	if err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, artifact)
}

type sendEmailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	HTML    string `json:"html" validate:"required"`
}

func (a *API) proxySendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := a.decode(r, &req); err != nil {
		respondError(w, a.logger, err)
		return
	}

	if err := a.email.Send(r.Context(), req.To, req.Subject, req.HTML); err != nil {
		respondError(w, a.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
