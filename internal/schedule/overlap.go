// Package schedule holds the pure scheduling logic: conflict detection
// between time slots and expansion of weekly series.
package schedule

import "github.com/tutorlane/server/internal/model"

// Overlaps reports whether two slots on the same date intersect. Slots
// are half-open [start, end) intervals, so a slot ending exactly when
// another begins does not overlap it.
func Overlaps(a, b model.TimeSlot) bool {
	if !a.Date.Equal(b.Date) {
		return false
	}
	return a.StartTime < b.EndTime && a.EndTime > b.StartTime
}

// HasOverlap reports whether any candidate slot conflicts with any
// existing slot. It returns on the first conflict found; which pair
// conflicts is not reported, only that one exists.
func HasOverlap(existing, candidates []model.TimeSlot) bool {
	for _, c := range candidates {
		for _, e := range existing {
			if Overlaps(e, c) {
				return true
			}
		}
	}
	return false
}
