package domain

import "time"

// Session is one delivered occurrence of a scheduled class.
type Session struct {
	ID               string
	ScheduledClassID string
	Topic            string
	Status           SessionStatus
	StartedAt        time.Time
	EndedAt          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AttendanceRecord is the per-student outcome for one session. At most
// one record exists per (session, student) pair.
type AttendanceRecord struct {
	ID        string
	SessionID string
	StudentID string
	Status    AttendanceStatus
	EntryAt   *time.Time
	ExitAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subject is a course taught by exactly one instructor. Ownership checks
// resolve through it. GroupLabel distinguishes parallel cohorts of the
// same course.
type Subject struct {
	ID           string
	Name         string
	GroupLabel   string
	InstructorID string
}

// ScheduledClass binds a subject to a recurring timetable slot. Sessions
// hang off scheduled classes, not subjects, so the same course meeting at
// different times keeps separate histories.
type ScheduledClass struct {
	ID         string
	SubjectID  string
	ScheduleID string
}

// Student is a roster member identified at the door by a card code.
type Student struct {
	ID       string
	FullName string
	CardCode string
}
