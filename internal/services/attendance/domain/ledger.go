package domain

import (
	"context"
	"strconv"
	"time"

	apperrors "github.com/aulatap/aulatap/internal/errors"
	"github.com/aulatap/aulatap/internal/platform/id"
)

// Ledger ingests card taps and turns them into attendance records. Taps
// are idempotent: a student tapping twice in the same session gets the
// original record back unchanged.
type Ledger struct {
	store     Store
	tolerance time.Duration
	clock     func() time.Time
	newID     func() (string, error)
}

// NewLedger creates a Ledger service. A non-positive tolerance falls
// back to DefaultLateTolerance; pass nil for clock or newID to use the
// defaults.
func NewLedger(store Store, tolerance time.Duration, clock func() time.Time, newID func() (string, error)) *Ledger {
	if tolerance <= 0 {
		tolerance = DefaultLateTolerance
	}
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Ledger{
		store:     store,
		tolerance: tolerance,
		clock:     clock,
		newID:     newID,
	}
}

// TapInput carries one card tap. SessionID is optional; when empty the
// session is resolved from the student's enrollments.
type TapInput struct {
	CardCode  string
	SessionID string
}

// RecordTap handles a live tap during normal class delivery. The tap is
// classified Presente or Tarde against the session start time and the
// late tolerance, a boundary tap counting as Presente.
func (g *Ledger) RecordTap(ctx context.Context, input TapInput) (AttendanceRecord, error) {
	if input.CardCode == "" {
		return AttendanceRecord{}, apperrors.New(apperrors.CodeInvalidArgument, "card code is required")
	}

	student, err := g.lookupStudent(ctx, input.CardCode)
	if err != nil {
		return AttendanceRecord{}, err
	}

	var session Session
	if input.SessionID != "" {
		session, err = g.store.GetSession(ctx, input.SessionID)
		if err != nil {
			if isNotFound(err) {
				return AttendanceRecord{}, apperrors.WithMetadata(apperrors.CodeSessionNotFound,
					"session not found", map[string]string{"session_id": input.SessionID})
			}
			return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get session", err)
		}
		if session.Status != SessionStatusOpen {
			return AttendanceRecord{}, invalidStateError(session.Status, SessionStatusOpen)
		}
	} else {
		session, err = g.resolveSession(ctx, student.ID)
		if err != nil {
			return AttendanceRecord{}, err
		}
	}

	// Records may only exist for enrolled students, on both tap paths.
	if err := g.requireEnrollment(ctx, session, student.ID); err != nil {
		return AttendanceRecord{}, err
	}

	if existing, err := g.store.GetRecord(ctx, session.ID, student.ID); err == nil {
		return existing, nil
	} else if !isNotFound(err) {
		return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get attendance record", err)
	}

	now := g.now()
	entry := now
	record := AttendanceRecord{
		SessionID: session.ID,
		StudentID: student.ID,
		Status:    Classify(session.StartedAt, now, g.tolerance),
		EntryAt:   &entry,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return g.createOrReadBack(ctx, record)
}

// RecordValidationTap handles a confirmation tap while the session's
// validation window is open. A student with no record gets a Tarde
// record; an Ausente record from an earlier sweep is upgraded to Tarde
// with the exit time stamped; Presente and Tarde records are returned
// unchanged.
func (g *Ledger) RecordValidationTap(ctx context.Context, sessionID, cardCode string) (AttendanceRecord, error) {
	if sessionID == "" {
		return AttendanceRecord{}, apperrors.New(apperrors.CodeInvalidArgument, "session id is required")
	}
	if cardCode == "" {
		return AttendanceRecord{}, apperrors.New(apperrors.CodeInvalidArgument, "card code is required")
	}

	session, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return AttendanceRecord{}, apperrors.WithMetadata(apperrors.CodeSessionNotFound,
				"session not found", map[string]string{"session_id": sessionID})
		}
		return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get session", err)
	}
	if session.Status != SessionStatusValidationOpen {
		return AttendanceRecord{}, invalidStateError(session.Status, SessionStatusValidationOpen)
	}

	student, err := g.lookupStudent(ctx, cardCode)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if err := g.requireEnrollment(ctx, session, student.ID); err != nil {
		return AttendanceRecord{}, err
	}

	record, err := g.store.GetRecord(ctx, session.ID, student.ID)
	switch {
	case err == nil:
	case isNotFound(err):
		now := g.now()
		entry := now
		fresh := AttendanceRecord{
			SessionID: session.ID,
			StudentID: student.ID,
			Status:    AttendanceStatusLate,
			EntryAt:   &entry,
			CreatedAt: now,
			UpdatedAt: now,
		}
		record, err = g.createOrReadBack(ctx, fresh)
		if err != nil {
			return AttendanceRecord{}, err
		}
	default:
		return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get attendance record", err)
	}

	if record.Status != AttendanceStatusAbsent {
		return record, nil
	}

	now := g.now()
	upgraded, err := g.store.UpgradeRecordToLate(ctx, record.ID, now, now)
	if err != nil {
		// Lost a race against another confirmation tap; the stored row is
		// whatever that tap produced.
		if isConflict(err) || isNotFound(err) {
			return g.readBack(ctx, session.ID, student.ID)
		}
		return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "upgrade attendance record", err)
	}
	return upgraded, nil
}

// resolveSession finds the single open session across the student's
// enrolled subjects. Zero candidates is a client error; more than one
// requires the caller to retry with an explicit session id.
func (g *Ledger) resolveSession(ctx context.Context, studentID string) (Session, error) {
	subjectIDs, err := g.store.ListEnrolledSubjectIDs(ctx, studentID)
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeUnknown, "list enrollments", err)
	}
	if len(subjectIDs) == 0 {
		return Session{}, apperrors.New(apperrors.CodeStudentNotEnrolled,
			"student has no enrollments")
	}

	sessions, err := g.store.ListOpenSessionsBySubjects(ctx, subjectIDs)
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeUnknown, "list open sessions", err)
	}
	switch len(sessions) {
	case 0:
		return Session{}, apperrors.New(apperrors.CodeTapNoActiveSession,
			"no session in progress for the student's subjects")
	case 1:
		return sessions[0], nil
	default:
		return Session{}, apperrors.WithMetadata(apperrors.CodeTapAmbiguousSession,
			"multiple sessions in progress; supply a session id",
			map[string]string{"candidates": strconv.Itoa(len(sessions))})
	}
}

func (g *Ledger) lookupStudent(ctx context.Context, cardCode string) (Student, error) {
	student, err := g.store.GetStudentByCardCode(ctx, cardCode)
	if err != nil {
		if isNotFound(err) {
			return Student{}, apperrors.New(apperrors.CodeStudentNotFound,
				"no student registered for the card")
		}
		return Student{}, apperrors.Wrap(apperrors.CodeUnknown, "get student by card code", err)
	}
	return student, nil
}

func (g *Ledger) requireEnrollment(ctx context.Context, session Session, studentID string) error {
	class, err := g.store.GetScheduledClass(ctx, session.ScheduledClassID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "get scheduled class", err)
	}
	enrolled, err := g.store.IsEnrolled(ctx, class.SubjectID, studentID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "check enrollment", err)
	}
	if !enrolled {
		return apperrors.WithMetadata(apperrors.CodeStudentNotEnrolled,
			"student is not enrolled in the session's subject",
			map[string]string{"subject_id": class.SubjectID})
	}
	return nil
}

// createOrReadBack inserts a record, falling back to the stored row when
// a concurrent tap won the unique (session, student) insert.
func (g *Ledger) createOrReadBack(ctx context.Context, record AttendanceRecord) (AttendanceRecord, error) {
	recordID, err := g.newID()
	if err != nil {
		return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "generate record id", err)
	}
	record.ID = recordID

	if err := g.store.CreateRecord(ctx, record); err != nil {
		if isConflict(err) {
			return g.readBack(ctx, record.SessionID, record.StudentID)
		}
		return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "create attendance record", err)
	}
	return record, nil
}

func (g *Ledger) readBack(ctx context.Context, sessionID, studentID string) (AttendanceRecord, error) {
	record, err := g.store.GetRecord(ctx, sessionID, studentID)
	if err != nil {
		return AttendanceRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "read back attendance record", err)
	}
	return record, nil
}

func (g *Ledger) now() time.Time {
	if g.clock == nil {
		return time.Now().UTC()
	}
	return g.clock().UTC()
}
