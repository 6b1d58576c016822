package schedule

import (
	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/timeutil"
)

// MaxSeriesLength bounds a weekly series (availability or bulk booking).
const MaxSeriesLength = 4

// WeeklyDates returns count dates starting at start, one week apart.
// Month and year rollover go through calendar arithmetic.
func WeeklyDates(start model.DateStamp, count int) []model.DateStamp {
	dates := make([]model.DateStamp, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, timeutil.AddDays(start, 7*i))
	}
	return dates
}

// ExpandSeries materializes a weekly availability series from its first
// event. The base event's date is week 0; every produced event shares
// the base's times, title, link and repeat group.
func ExpandSeries(base model.AvailabilityEvent, totalClasses int) ([]model.AvailabilityEvent, error) {
	if totalClasses < 1 || totalClasses > MaxSeriesLength {
		return nil, apperrors.Validation("series length %d out of range [1,%d]", totalClasses, MaxSeriesLength)
	}
	if base.RepeatGroupID == "" {
		return nil, apperrors.Validation("repeating series needs a repeat group id")
	}

	events := make([]model.AvailabilityEvent, 0, totalClasses)
	for i, date := range WeeklyDates(base.Date, totalClasses) {
		e := base
		e.Date = date
		e.IsRepeating = true
		e.RepeatIndex = i
		e.TotalClasses = totalClasses
		events = append(events, e)
	}
	return events, nil
}
