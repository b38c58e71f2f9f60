// Package storage defines the persistence contracts for the attendance
// service. Implementations translate driver-level uniqueness and
// guarded-update failures into ErrConflict so callers can resolve races
// without knowing the backend.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested row is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness
	// constraints or a guarded update lost its race.
	ErrConflict = errors.New("record conflict")
)

// Stored class-session status values.
const (
	SessionStatusOpen             = "EnProgreso"
	SessionStatusValidationOpen   = "ValidacionAbierta"
	SessionStatusValidationClosed = "ValidacionCerrada"
	SessionStatusClosed           = "Cerrada"
)

// Stored attendance status values.
const (
	AttendanceStatusPresent = "Presente"
	AttendanceStatusLate    = "Tarde"
	AttendanceStatusAbsent  = "Ausente"
)

// SessionRecord stores one class-session row.
type SessionRecord struct {
	ID               string
	ScheduledClassID string
	Topic            string
	Status           string
	StartedAt        time.Time
	EndedAt          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AttendanceRecord stores one per-student attendance row.
type AttendanceRecord struct {
	ID        string
	SessionID string
	StudentID string
	Status    string
	EntryAt   *time.Time
	ExitAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InstructorRecord stores one instructor row.
type InstructorRecord struct {
	ID       string
	FullName string
	Email    string
}

// SubjectRecord stores one subject row. GroupLabel distinguishes
// parallel cohorts of the same course, for example "A" and "B".
type SubjectRecord struct {
	ID           string
	Name         string
	GroupLabel   string
	InstructorID string
}

// ScheduleRecord stores one recurring timetable slot.
type ScheduleRecord struct {
	ID       string
	Weekday  int
	StartsAt string
	EndsAt   string
}

// ScheduledClassRecord binds a subject to a schedule slot.
type ScheduledClassRecord struct {
	ID         string
	SubjectID  string
	ScheduleID string
}

// StudentRecord stores one student row.
type StudentRecord struct {
	ID       string
	FullName string
	CardCode string
}

// SessionStore persists class sessions. The backend enforces at most one
// non-terminal session per scheduled class.
type SessionStore interface {
	PutSession(ctx context.Context, record SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	GetActiveSessionByScheduledClass(ctx context.Context, scheduledClassID string) (SessionRecord, error)
	UpdateSessionStatus(ctx context.Context, id string, fromStatus, toStatus string, endedAt *time.Time, updatedAt time.Time) (SessionRecord, error)
	ListOpenSessionsBySubjects(ctx context.Context, subjectIDs []string) ([]SessionRecord, error)
	ListActiveSessionsByInstructor(ctx context.Context, instructorID string) ([]SessionRecord, error)
}

// AttendanceStore persists attendance rows, unique per (session, student).
type AttendanceStore interface {
	PutAttendance(ctx context.Context, record AttendanceRecord) error
	GetAttendanceBySessionAndStudent(ctx context.Context, sessionID, studentID string) (AttendanceRecord, error)
	MarkAttendanceLate(ctx context.Context, id string, exitAt, updatedAt time.Time) (AttendanceRecord, error)
	ListAttendanceBySession(ctx context.Context, sessionID string) ([]AttendanceRecord, error)
}

// RosterStore persists the academic structure attendance resolves
// against.
type RosterStore interface {
	PutInstructor(ctx context.Context, record InstructorRecord) error
	PutSubject(ctx context.Context, record SubjectRecord) error
	PutSchedule(ctx context.Context, record ScheduleRecord) error
	PutScheduledClass(ctx context.Context, record ScheduledClassRecord) error
	PutStudent(ctx context.Context, record StudentRecord) error
	PutEnrollment(ctx context.Context, subjectID, studentID string) error

	GetSubject(ctx context.Context, id string) (SubjectRecord, error)
	GetScheduledClass(ctx context.Context, id string) (ScheduledClassRecord, error)
	GetScheduledClassBySubjectAndSchedule(ctx context.Context, subjectID, scheduleID string) (ScheduledClassRecord, error)
	GetStudentByCardCode(ctx context.Context, cardCode string) (StudentRecord, error)
	HasEnrollment(ctx context.Context, subjectID, studentID string) (bool, error)
	ListEnrolledStudentIDs(ctx context.Context, subjectID string) ([]string, error)
	ListEnrolledSubjectIDs(ctx context.Context, studentID string) ([]string, error)
}

// Store aggregates the full persistence surface.
type Store interface {
	SessionStore
	AttendanceStore
	RosterStore
}
