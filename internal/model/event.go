package model

// TimeSlot is a span of minutes-since-midnight on one calendar day.
// StartTime < EndTime always holds; a slot never spans midnight.
type TimeSlot struct {
	Date      DateStamp `json:"date"`
	StartTime int       `json:"startTime"`
	EndTime   int       `json:"endTime"`
}

// SameSlot reports whether two slots share the identity tuple
// (date, startTime, endTime). Two availability events with the same
// identity are considered the same slot regardless of other fields.
func (s TimeSlot) SameSlot(other TimeSlot) bool {
	return s.Date.Equal(other.Date) && s.StartTime == other.StartTime && s.EndTime == other.EndTime
}

type EventStatus string

const (
	EventStatusAvailable EventStatus = "available"
	EventStatusBooked    EventStatus = "booked"
	EventStatusCancelled EventStatus = "cancelled"
)

// AvailabilityEvent is one teacher-declared slot. Events belonging to a
// weekly recurring series share a RepeatGroupID; RepeatIndex is the
// 0-based position in the series and TotalClasses the series length.
type AvailabilityEvent struct {
	Date          DateStamp   `json:"date"`
	StartTime     int         `json:"startTime"`
	EndTime       int         `json:"endTime"`
	Title         string      `json:"title"`
	MeetingLink   string      `json:"meetingLink"`
	IsRepeating   bool        `json:"isRepeating"`
	RepeatGroupID string      `json:"repeatGroupId,omitempty"`
	RepeatIndex   int         `json:"repeatIndex"`
	TotalClasses  int         `json:"totalClasses"`
	Status        EventStatus `json:"status"`
}

// Slot returns the event's time slot identity.
func (e AvailabilityEvent) Slot() TimeSlot {
	return TimeSlot{Date: e.Date, StartTime: e.StartTime, EndTime: e.EndTime}
}
