package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/apperrors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps taxonomy kinds onto HTTP statuses. This is the only
// place errors become user-facing text.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := apperrors.KindOf(err)

	status := http.StatusInternalServerError
	message := "internal error"
	switch kind {
	case apperrors.KindValidation:
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case apperrors.KindOverlap:
		status = http.StatusConflict
		message = "selected time conflicts with an existing slot"
	case apperrors.KindConcurrency:
		status = http.StatusConflict
		message = "too many concurrent changes, please try again"
	case apperrors.KindAuthorization:
		status = http.StatusForbidden
		message = "not allowed"
	case apperrors.KindPersistence:
		status = http.StatusBadGateway
		message = "storage unavailable, please try again later"
	}

	if status >= 500 || kind == apperrors.KindPersistence {
		logger.Error("Request failed", zap.String("kind", string(kind)), zap.Error(err))
	}

	respondJSON(w, status, map[string]any{
		"error":     message,
		"kind":      string(kind),
		"retryable": apperrors.Retryable(err),
	})
}
