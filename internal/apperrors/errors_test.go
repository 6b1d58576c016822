package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindOverlap, KindOf(Overlap("slot taken")))
	assert.Equal(t, KindAuthorization, KindOf(Authorization("not yours")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("confirm booking: %w", Overlap("slot taken"))
	assert.Equal(t, KindOverlap, KindOf(err))
	assert.True(t, IsKind(err, KindOverlap))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause, "write booking")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindPersistence, KindOf(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Concurrency(errors.New("stale"), "retries exhausted")))
	assert.False(t, Retryable(Overlap("slot taken")))
	assert.False(t, Retryable(Persistence(errors.New("down"), "write")))
	assert.False(t, Retryable(errors.New("plain")))
}
