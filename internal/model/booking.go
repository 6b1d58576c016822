package model

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is one concrete reservation of a teacher's slot. A bulk-booked
// weekly series shares a BulkID; LessonNumber is 1-based within the series.
type Booking struct {
	ID           string        `json:"id"`
	StudentID    string        `json:"studentId"`
	TeacherID    string        `json:"teacherId"`
	Date         DateStamp     `json:"date"`
	StartTime    int           `json:"startTime"`
	EndTime      int           `json:"endTime"`
	Price        int           `json:"price"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	BulkID       string        `json:"bulkId,omitempty"`
	LessonNumber int           `json:"lessonNumber,omitempty"`
	TotalLessons int           `json:"totalLessons,omitempty"`
	Feedback     *Feedback     `json:"feedback,omitempty"`
	Homework     string        `json:"homework,omitempty"`
}

// Slot returns the booking's time slot identity.
func (b Booking) Slot() TimeSlot {
	return TimeSlot{Date: b.Date, StartTime: b.StartTime, EndTime: b.EndTime}
}

// IsActive reports whether the booking still occupies its slot.
func (b Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed
}
