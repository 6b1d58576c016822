// Package timeutil converts between calendar dates, ISO week boundaries
// and minute-of-day integers. All functions are pure.
package timeutil

import (
	"fmt"
	"time"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/model"
)

const MinutesPerDay = 24 * 60

// ToMinutes converts a wall-clock hour/minute pair to minutes since
// midnight.
func ToMinutes(hour, minute int) (int, error) {
	if hour < 0 || hour > 23 {
		return 0, apperrors.Validation("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, apperrors.Validation("minute %d out of range [0,59]", minute)
	}
	return hour*60 + minute, nil
}

// FromMinutes splits minutes since midnight back into hour and minute.
func FromMinutes(minutes int) (hour, minute int) {
	return minutes / 60, minutes % 60
}

// ToDateStamp extracts the calendar day of t.
func ToDateStamp(t time.Time) model.DateStamp {
	return model.DateStamp{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// FromDateStamp returns midnight UTC of the stamped day.
func FromDateStamp(d model.DateStamp) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a date by the given number of days using real calendar
// arithmetic, so month and year rollover are handled.
func AddDays(d model.DateStamp, days int) model.DateStamp {
	return ToDateStamp(FromDateStamp(d).AddDate(0, 0, days))
}

// ValidDate reports whether d names an actual day of its month.
func ValidDate(d model.DateStamp) bool {
	return ToDateStamp(FromDateStamp(d)).Equal(d)
}

// WeekBounds returns the Monday and Sunday of the ISO week that is
// weekOffset weeks away from the week containing now (0 = this week,
// 1 = next, -1 = previous). Monday is day 1 regardless of locale.
func WeekBounds(now time.Time, weekOffset int) (monday, sunday model.DateStamp) {
	// time.Weekday has Sunday = 0; shift so Monday = 0.
	back := (int(now.Weekday()) + 6) % 7
	mon := now.AddDate(0, 0, -back+7*weekOffset)
	return ToDateStamp(mon), ToDateStamp(mon.AddDate(0, 0, 6))
}

// FormatClockTime renders minutes since midnight as 12-hour H:MM AM/PM.
// 0 renders as 12:00 AM and 720 as 12:00 PM. Inputs outside [0,1439]
// are wrapped into the day rather than rejected, so the function never
// fails for any integer.
func FormatClockTime(minutes int) string {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hour, minute := FromMinutes(m)
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

// SlotStart returns the absolute start instant of a slot, in UTC.
func SlotStart(s model.TimeSlot) time.Time {
	return FromDateStamp(s.Date).Add(time.Duration(s.StartTime) * time.Minute)
}

// SlotEnd returns the absolute end instant of a slot, in UTC.
func SlotEnd(s model.TimeSlot) time.Time {
	return FromDateStamp(s.Date).Add(time.Duration(s.EndTime) * time.Minute)
}

// ValidateSlot checks the structural invariants of a time slot.
func ValidateSlot(s model.TimeSlot) error {
	if !ValidDate(s.Date) {
		return apperrors.Validation("invalid date %s", s.Date)
	}
	if s.StartTime < 0 || s.EndTime > MinutesPerDay-1 {
		return apperrors.Validation("slot %d-%d outside the day", s.StartTime, s.EndTime)
	}
	if s.StartTime >= s.EndTime {
		return apperrors.Validation("start %d must be before end %d", s.StartTime, s.EndTime)
	}
	return nil
}
