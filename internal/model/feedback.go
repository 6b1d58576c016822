package model

import "time"

// Feedback is attached to a completed booking by the owning student.
// CreatedAt is set once; updates only move UpdatedAt.
type Feedback struct {
	Rating    int       `json:"rating"` // 1-5
	Comment   string    `json:"comment"`
	StudentID string    `json:"studentId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
