package domain

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/aulatap/aulatap/internal/errors"
	"github.com/aulatap/aulatap/internal/platform/id"
)

// Lifecycle drives class sessions through their state machine. Every
// mutation is gated on the caller owning the subject behind the session.
type Lifecycle struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewLifecycle creates a Lifecycle service. Pass nil for clock or newID
// to use the defaults.
func NewLifecycle(store Store, clock func() time.Time, newID func() (string, error)) *Lifecycle {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Lifecycle{
		store: store,
		clock: clock,
		newID: newID,
	}
}

// StartInput carries the parameters for opening a session.
type StartInput struct {
	InstructorID string
	SubjectID    string
	ScheduleID   string
	Topic        string
}

// Start opens a new session for the scheduled class binding the subject
// to the schedule slot. At most one non-terminal session may exist per
// scheduled class; a concurrent or leftover active session surfaces as
// ACTIVE_SESSION_EXISTS.
func (l *Lifecycle) Start(ctx context.Context, input StartInput) (Session, error) {
	if input.InstructorID == "" {
		return Session{}, apperrors.New(apperrors.CodeUnauthenticated, "instructor id is required")
	}
	if input.SubjectID == "" || input.ScheduleID == "" {
		return Session{}, apperrors.New(apperrors.CodeInvalidArgument, "subject id and schedule id are required")
	}

	if err := l.requireOwnership(ctx, input.SubjectID, input.InstructorID); err != nil {
		return Session{}, err
	}

	class, err := l.store.FindScheduledClass(ctx, input.SubjectID, input.ScheduleID)
	if err != nil {
		if isNotFound(err) {
			return Session{}, apperrors.WithMetadata(apperrors.CodeScheduledClassNotFound,
				"no scheduled class binds the subject to the schedule slot",
				map[string]string{
					"subject_id":  input.SubjectID,
					"schedule_id": input.ScheduleID,
				})
		}
		return Session{}, apperrors.Wrap(apperrors.CodeUnknown, "find scheduled class", err)
	}

	if _, err := l.store.FindActiveSession(ctx, class.ID); err == nil {
		return Session{}, l.activeSessionError(ctx, class.ID)
	} else if !isNotFound(err) {
		return Session{}, apperrors.Wrap(apperrors.CodeUnknown, "find active session", err)
	}

	sessionID, err := l.newID()
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeUnknown, "generate session id", err)
	}

	now := l.now()
	session := Session{
		ID:               sessionID,
		ScheduledClassID: class.ID,
		Topic:            input.Topic,
		Status:           SessionStatusOpen,
		StartedAt:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := l.store.CreateSession(ctx, session); err != nil {
		// A concurrent start slipped past the pre-check and won the insert.
		if isConflict(err) {
			return Session{}, l.activeSessionError(ctx, class.ID)
		}
		return Session{}, apperrors.Wrap(apperrors.CodeUnknown, "create session", err)
	}

	return session, nil
}

// activeSessionError reports the single-active-session violation, naming
// the session currently holding the slot when it can still be read.
func (l *Lifecycle) activeSessionError(ctx context.Context, scheduledClassID string) error {
	metadata := map[string]string{"scheduled_class_id": scheduledClassID}
	if existing, err := l.store.FindActiveSession(ctx, scheduledClassID); err == nil {
		metadata["session_id"] = existing.ID
	}
	return apperrors.WithMetadata(apperrors.CodeActiveSessionExists,
		"an active session already exists for this scheduled class", metadata)
}

// OpenValidation moves a session from EnProgreso to ValidacionAbierta.
func (l *Lifecycle) OpenValidation(ctx context.Context, sessionID, instructorID string) (Session, error) {
	return l.transition(ctx, sessionID, instructorID, SessionStatusOpen, SessionStatusValidationOpen, false)
}

// CloseValidation moves a session from ValidacionAbierta to
// ValidacionCerrada and materializes Ausente records for enrolled
// students with no qualifying tap.
func (l *Lifecycle) CloseValidation(ctx context.Context, sessionID, instructorID string) (Session, error) {
	return l.transition(ctx, sessionID, instructorID, SessionStatusValidationOpen, SessionStatusValidationClosed, true)
}

// Close moves a session from any non-terminal state to Cerrada, stamping
// the end time. The absentee sweep runs first so the record set is
// complete before the session becomes immutable.
func (l *Lifecycle) Close(ctx context.Context, sessionID, instructorID string) (Session, error) {
	if instructorID == "" {
		return Session{}, apperrors.New(apperrors.CodeUnauthenticated, "instructor id is required")
	}

	session, class, err := l.loadOwnedSession(ctx, sessionID, instructorID)
	if err != nil {
		return Session{}, err
	}
	if !CanTransition(session.Status, SessionStatusClosed) {
		return Session{}, apperrors.WithMetadata(apperrors.CodeSessionInvalidState,
			"session is already closed",
			map[string]string{"current": session.Status.String()})
	}

	if err := l.reconcileAbsentees(ctx, class.SubjectID, session.ID); err != nil {
		return Session{}, err
	}

	now := l.now()
	updated, err := l.store.TransitionSession(ctx, session.ID, session.Status, SessionStatusClosed, &now, now)
	if err != nil {
		return Session{}, l.transitionError(ctx, sessionID, session.Status, err)
	}
	return updated, nil
}

// ListActive returns every non-terminal session for subjects taught by
// the instructor.
func (l *Lifecycle) ListActive(ctx context.Context, instructorID string) ([]Session, error) {
	if instructorID == "" {
		return nil, apperrors.New(apperrors.CodeUnauthenticated, "instructor id is required")
	}
	sessions, err := l.store.ListActiveSessionsByInstructor(ctx, instructorID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "list active sessions", err)
	}
	return sessions, nil
}

func (l *Lifecycle) transition(ctx context.Context, sessionID, instructorID string, from, to SessionStatus, sweep bool) (Session, error) {
	if instructorID == "" {
		return Session{}, apperrors.New(apperrors.CodeUnauthenticated, "instructor id is required")
	}

	session, class, err := l.loadOwnedSession(ctx, sessionID, instructorID)
	if err != nil {
		return Session{}, err
	}
	if session.Status != from {
		return Session{}, invalidStateError(session.Status, from)
	}

	now := l.now()
	updated, err := l.store.TransitionSession(ctx, session.ID, from, to, nil, now)
	if err != nil {
		return Session{}, l.transitionError(ctx, sessionID, from, err)
	}

	if sweep {
		if err := l.reconcileAbsentees(ctx, class.SubjectID, session.ID); err != nil {
			return Session{}, err
		}
	}
	return updated, nil
}

// loadOwnedSession fetches a session along with its scheduled class and
// verifies the instructor owns the backing subject.
func (l *Lifecycle) loadOwnedSession(ctx context.Context, sessionID, instructorID string) (Session, ScheduledClass, error) {
	if sessionID == "" {
		return Session{}, ScheduledClass{}, apperrors.New(apperrors.CodeInvalidArgument, "session id is required")
	}

	session, err := l.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return Session{}, ScheduledClass{}, apperrors.WithMetadata(apperrors.CodeSessionNotFound,
				"session not found", map[string]string{"session_id": sessionID})
		}
		return Session{}, ScheduledClass{}, apperrors.Wrap(apperrors.CodeUnknown, "get session", err)
	}

	class, err := l.store.GetScheduledClass(ctx, session.ScheduledClassID)
	if err != nil {
		return Session{}, ScheduledClass{}, apperrors.Wrap(apperrors.CodeUnknown, "get scheduled class", err)
	}

	if err := l.requireOwnership(ctx, class.SubjectID, instructorID); err != nil {
		return Session{}, ScheduledClass{}, err
	}
	return session, class, nil
}

func (l *Lifecycle) requireOwnership(ctx context.Context, subjectID, instructorID string) error {
	subject, err := l.store.GetSubject(ctx, subjectID)
	if err != nil {
		if isNotFound(err) {
			return apperrors.WithMetadata(apperrors.CodeSubjectNotFound,
				"subject not found", map[string]string{"subject_id": subjectID})
		}
		return apperrors.Wrap(apperrors.CodeUnknown, "get subject", err)
	}
	if subject.InstructorID != instructorID {
		return apperrors.WithMetadata(apperrors.CodeSubjectOwnershipRequired,
			"subject is taught by another instructor",
			map[string]string{"subject_id": subjectID})
	}
	return nil
}

// reconcileAbsentees creates an Ausente record for every enrolled
// student with no record at all for the session. Students already
// holding a record of any status are skipped, which makes the sweep
// idempotent across CloseValidation and Close.
func (l *Lifecycle) reconcileAbsentees(ctx context.Context, subjectID, sessionID string) error {
	enrolled, err := l.store.ListEnrolledStudentIDs(ctx, subjectID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "list enrolled students", err)
	}
	records, err := l.store.ListRecordsBySession(ctx, sessionID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "list session records", err)
	}

	recorded := make(map[string]bool, len(records))
	for _, r := range records {
		recorded[r.StudentID] = true
	}

	now := l.now()
	for _, studentID := range enrolled {
		if recorded[studentID] {
			continue
		}
		recordID, err := l.newID()
		if err != nil {
			return apperrors.Wrap(apperrors.CodeUnknown, "generate record id", err)
		}
		record := AttendanceRecord{
			ID:        recordID,
			SessionID: sessionID,
			StudentID: studentID,
			Status:    AttendanceStatusAbsent,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := l.store.CreateRecord(ctx, record); err != nil {
			// A concurrent sweep or a late tap won the insert; either way
			// the pair is covered.
			if isConflict(err) {
				continue
			}
			return apperrors.Wrap(apperrors.CodeUnknown, "create absentee record", err)
		}
	}
	return nil
}

// transitionError maps a failed guarded transition to a coded error,
// re-reading the session to report the status it actually holds.
func (l *Lifecycle) transitionError(ctx context.Context, sessionID string, expected SessionStatus, err error) error {
	switch {
	case isNotFound(err):
		return apperrors.WithMetadata(apperrors.CodeSessionNotFound,
			"session not found", map[string]string{"session_id": sessionID})
	case isConflict(err):
		current := SessionStatusUnspecified
		if session, getErr := l.store.GetSession(ctx, sessionID); getErr == nil {
			current = session.Status
		}
		return invalidStateError(current, expected)
	default:
		return apperrors.Wrap(apperrors.CodeUnknown, "transition session", err)
	}
}

func invalidStateError(current, expected SessionStatus) error {
	return apperrors.WithMetadata(apperrors.CodeSessionInvalidState,
		fmt.Sprintf("session is %s, expected %s", current, expected),
		map[string]string{
			"current":  current.String(),
			"expected": expected.String(),
		})
}

func (l *Lifecycle) now() time.Time {
	if l.clock == nil {
		return time.Now().UTC()
	}
	return l.clock().UTC()
}
