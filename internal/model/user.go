package model

import "time"

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// TeacherDetails holds a teacher's public profile fields.
type TeacherDetails struct {
	Nickname    string   `json:"nickname"`
	Description string   `json:"description"`
	Pricing     int      `json:"pricing"` // price per lesson, in cents
	Expertise   []string `json:"expertise,omitempty"`
}

// StudentDetails holds a student's profile fields.
type StudentDetails struct {
	Nickname  string   `json:"nickname"`
	Interests []string `json:"interests,omitempty"`
	Goals     string   `json:"goals,omitempty"`
}

// User is the users/{uid} document. A teacher's Events array holds every
// slot ever created (available, booked or cancelled), not just the
// currently open ones; it is only written through the availability
// repository under a transaction.
type User struct {
	ID             string              `json:"id"`
	Email          string              `json:"email"`
	Role           Role                `json:"role"`
	Balance        int                 `json:"balance"`
	TeacherDetails *TeacherDetails     `json:"teacherDetails,omitempty"`
	StudentDetails *StudentDetails     `json:"studentDetails,omitempty"`
	Events         []AvailabilityEvent `json:"events"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// OpenEvents returns the subset of events still open for booking.
func (u *User) OpenEvents() []AvailabilityEvent {
	var open []AvailabilityEvent
	for _, e := range u.Events {
		if e.Status == EventStatusAvailable {
			open = append(open, e)
		}
	}
	return open
}
