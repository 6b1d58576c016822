// Package service implements the application operations: availability
// management, the booking build/confirm flow, feedback, and profile
// updates. Services validate, authorize, run the transactional work
// through the repositories, and log outcomes.
package service

import "time"

type nowFunc func() time.Time

func defaultNow() time.Time {
	return time.Now()
}
