package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/store"
)

// AvailabilityRepository is the only writer of a teacher's events array.
// Every mutation re-reads the current document inside a transaction, so
// concurrent edits from other sessions are merged rather than lost.
type AvailabilityRepository struct {
	store store.Client
}

func NewAvailabilityRepository(st store.Client) *AvailabilityRepository {
	return &AvailabilityRepository{store: st}
}

// Merge adds newEvents to the teacher's availability set and returns the
// resulting full set. Re-submitting a repeating series with the same
// repeat group id replaces that series instead of accumulating
// duplicates; the call is idempotent.
func (r *AvailabilityRepository) Merge(ctx context.Context, teacherID string, newEvents []model.AvailabilityEvent) ([]model.AvailabilityEvent, error) {
	var result []model.AvailabilityEvent

	err := r.store.WithTransaction(ctx, func(tx store.DocTx) error {
		var teacher model.User
		err := tx.Get(ctx, usersCollection, teacherID, &teacher)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			// First availability for a brand-new teacher document.
			teacher = model.User{
				ID:        teacherID,
				Role:      model.RoleTeacher,
				Events:    newEvents,
				CreatedAt: time.Now().UTC(),
			}
			result = newEvents
			return tx.Set(ctx, usersCollection, teacherID, &teacher)
		}

		merged := mergeEvents(teacher.Events, newEvents)
		teacher.Events = merged
		if err := tx.Set(ctx, usersCollection, teacherID, &teacher); err != nil {
			return err
		}
		result = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Remove deletes availability and returns the remaining set. A repeating
// target takes its whole series with it; a single target removes exactly
// the one event matching its (date, startTime, endTime) identity.
func (r *AvailabilityRepository) Remove(ctx context.Context, teacherID string, target model.AvailabilityEvent) ([]model.AvailabilityEvent, error) {
	var result []model.AvailabilityEvent

	err := r.store.WithTransaction(ctx, func(tx store.DocTx) error {
		var teacher model.User
		if err := tx.Get(ctx, usersCollection, teacherID, &teacher); err != nil {
			return err
		}

		teacher.Events = removeEvents(teacher.Events, target)
		if err := tx.Set(ctx, usersCollection, teacherID, &teacher); err != nil {
			return err
		}
		result = teacher.Events
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mergeEvents implements the availability merge: drop the old series when
// the incoming events re-submit a repeat group, concatenate, then
// deduplicate by slot identity with first occurrence winning.
func mergeEvents(current, incoming []model.AvailabilityEvent) []model.AvailabilityEvent {
	if len(incoming) == 0 {
		return current
	}

	kept := current
	if incoming[0].IsRepeating && incoming[0].RepeatGroupID != "" {
		groupID := incoming[0].RepeatGroupID
		kept = make([]model.AvailabilityEvent, 0, len(current))
		for _, e := range current {
			if e.RepeatGroupID != groupID {
				kept = append(kept, e)
			}
		}
	}

	return dedupeEvents(append(kept, incoming...))
}

// dedupeEvents drops later events sharing an earlier event's slot
// identity, preserving insertion order otherwise. Linear scan is fine at
// per-teacher scale (tens to low hundreds of events).
func dedupeEvents(events []model.AvailabilityEvent) []model.AvailabilityEvent {
	type slotKey struct {
		year, month, day, start, end int
	}

	seen := make(map[slotKey]struct{}, len(events))
	out := make([]model.AvailabilityEvent, 0, len(events))
	for _, e := range events {
		key := slotKey{e.Date.Year, e.Date.Month, e.Date.Day, e.StartTime, e.EndTime}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func removeEvents(events []model.AvailabilityEvent, target model.AvailabilityEvent) []model.AvailabilityEvent {
	out := make([]model.AvailabilityEvent, 0, len(events))

	if target.IsRepeating && target.RepeatGroupID != "" {
		for _, e := range events {
			if e.RepeatGroupID != target.RepeatGroupID {
				out = append(out, e)
			}
		}
		return out
	}

	for _, e := range events {
		if !e.Slot().SameSlot(target.Slot()) {
			out = append(out, e)
		}
	}
	return out
}
