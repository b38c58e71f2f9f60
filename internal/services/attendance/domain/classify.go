package domain

import "time"

// DefaultLateTolerance is the grace period after session start during
// which a tap still counts as Presente.
const DefaultLateTolerance = 15 * time.Minute

// Classify resolves a live tap against the session start time. A tap at
// exactly startedAt plus tolerance is still Presente.
func Classify(startedAt, tappedAt time.Time, tolerance time.Duration) AttendanceStatus {
	if tappedAt.After(startedAt.Add(tolerance)) {
		return AttendanceStatusLate
	}
	return AttendanceStatusPresent
}
