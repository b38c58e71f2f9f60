package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by store implementations. Services translate
// them into coded errors at the operation boundary.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or guarded-update violation.
	ErrConflict = errors.New("conflict")
)

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
func isConflict(err error) bool { return errors.Is(err, ErrConflict) }

// SessionStore persists sessions and enforces the single-active-session
// invariant.
type SessionStore interface {
	// CreateSession inserts a session. It returns ErrConflict when another
	// non-terminal session already exists for the same scheduled class.
	CreateSession(ctx context.Context, session Session) error

	// GetSession returns a session by id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (Session, error)

	// FindActiveSession returns the single non-terminal session for a
	// scheduled class, or ErrNotFound.
	FindActiveSession(ctx context.Context, scheduledClassID string) (Session, error)

	// TransitionSession atomically moves a session from one status to
	// another and returns the updated row. EndedAt is set only when
	// non-nil. It returns ErrConflict when the session is no longer in the
	// expected status, and ErrNotFound when the session does not exist.
	TransitionSession(ctx context.Context, id string, from, to SessionStatus, endedAt *time.Time, now time.Time) (Session, error)

	// ListOpenSessionsBySubjects returns sessions in EnProgreso whose
	// scheduled class belongs to any of the given subjects.
	ListOpenSessionsBySubjects(ctx context.Context, subjectIDs []string) ([]Session, error)

	// ListActiveSessionsByInstructor returns all non-terminal sessions for
	// subjects taught by the instructor.
	ListActiveSessionsByInstructor(ctx context.Context, instructorID string) ([]Session, error)
}

// RecordStore persists attendance records.
type RecordStore interface {
	// CreateRecord inserts a record. It returns ErrConflict when a record
	// already exists for the (session, student) pair.
	CreateRecord(ctx context.Context, record AttendanceRecord) error

	// GetRecord returns the record for a (session, student) pair, or
	// ErrNotFound.
	GetRecord(ctx context.Context, sessionID, studentID string) (AttendanceRecord, error)

	// UpgradeRecordToLate atomically moves a record from Ausente to Tarde,
	// stamping the exit time, and returns the updated row. It returns
	// ErrConflict when the record is no longer Ausente, and ErrNotFound
	// when it does not exist.
	UpgradeRecordToLate(ctx context.Context, id string, exitAt time.Time, now time.Time) (AttendanceRecord, error)

	// ListRecordsBySession returns every record for a session.
	ListRecordsBySession(ctx context.Context, sessionID string) ([]AttendanceRecord, error)
}

// RosterStore reads the academic structure the attendance flows resolve
// against. The attendance service never mutates these rows.
type RosterStore interface {
	// GetSubject returns a subject by id, or ErrNotFound.
	GetSubject(ctx context.Context, id string) (Subject, error)

	// GetScheduledClass returns a scheduled class by id, or ErrNotFound.
	GetScheduledClass(ctx context.Context, id string) (ScheduledClass, error)

	// FindScheduledClass returns the scheduled class binding a subject to
	// a schedule slot, or ErrNotFound.
	FindScheduledClass(ctx context.Context, subjectID, scheduleID string) (ScheduledClass, error)

	// GetStudentByCardCode returns the student owning a card code, or
	// ErrNotFound.
	GetStudentByCardCode(ctx context.Context, cardCode string) (Student, error)

	// IsEnrolled reports whether a student is enrolled in a subject.
	IsEnrolled(ctx context.Context, subjectID, studentID string) (bool, error)

	// ListEnrolledStudentIDs returns the ids of every student enrolled in
	// a subject.
	ListEnrolledStudentIDs(ctx context.Context, subjectID string) ([]string, error)

	// ListEnrolledSubjectIDs returns the ids of every subject a student is
	// enrolled in.
	ListEnrolledSubjectIDs(ctx context.Context, studentID string) ([]string, error)
}

// Store aggregates the persistence surface the attendance services need.
type Store interface {
	SessionStore
	RecordStore
	RosterStore
}
