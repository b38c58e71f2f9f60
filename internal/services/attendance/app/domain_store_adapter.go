package server

import (
	"context"
	"errors"
	"time"

	"github.com/aulatap/aulatap/internal/services/attendance/domain"
	"github.com/aulatap/aulatap/internal/services/attendance/storage"
)

// domainStoreAdapter exposes a storage.Store as the domain.Store the
// services consume, translating record types and sentinel errors.
type domainStoreAdapter struct {
	store storage.Store
}

func newDomainStoreAdapter(store storage.Store) *domainStoreAdapter {
	return &domainStoreAdapter{store: store}
}

var errStoreNotConfigured = errors.New("store is not configured")

func (a *domainStoreAdapter) CreateSession(ctx context.Context, session domain.Session) error {
	if a == nil || a.store == nil {
		return errStoreNotConfigured
	}
	return mapStorageError(a.store.PutSession(ctx, toStorageSession(session)))
}

func (a *domainStoreAdapter) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if a == nil || a.store == nil {
		return domain.Session{}, errStoreNotConfigured
	}
	record, err := a.store.GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, mapStorageError(err)
	}
	return toDomainSession(record), nil
}

func (a *domainStoreAdapter) FindActiveSession(ctx context.Context, scheduledClassID string) (domain.Session, error) {
	if a == nil || a.store == nil {
		return domain.Session{}, errStoreNotConfigured
	}
	record, err := a.store.GetActiveSessionByScheduledClass(ctx, scheduledClassID)
	if err != nil {
		return domain.Session{}, mapStorageError(err)
	}
	return toDomainSession(record), nil
}

func (a *domainStoreAdapter) TransitionSession(ctx context.Context, id string, from, to domain.SessionStatus, endedAt *time.Time, now time.Time) (domain.Session, error) {
	if a == nil || a.store == nil {
		return domain.Session{}, errStoreNotConfigured
	}
	record, err := a.store.UpdateSessionStatus(ctx, id, from.String(), to.String(), endedAt, now)
	if err != nil {
		return domain.Session{}, mapStorageError(err)
	}
	return toDomainSession(record), nil
}

func (a *domainStoreAdapter) ListOpenSessionsBySubjects(ctx context.Context, subjectIDs []string) ([]domain.Session, error) {
	if a == nil || a.store == nil {
		return nil, errStoreNotConfigured
	}
	records, err := a.store.ListOpenSessionsBySubjects(ctx, subjectIDs)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toDomainSessions(records), nil
}

func (a *domainStoreAdapter) ListActiveSessionsByInstructor(ctx context.Context, instructorID string) ([]domain.Session, error) {
	if a == nil || a.store == nil {
		return nil, errStoreNotConfigured
	}
	records, err := a.store.ListActiveSessionsByInstructor(ctx, instructorID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toDomainSessions(records), nil
}

func (a *domainStoreAdapter) CreateRecord(ctx context.Context, record domain.AttendanceRecord) error {
	if a == nil || a.store == nil {
		return errStoreNotConfigured
	}
	return mapStorageError(a.store.PutAttendance(ctx, toStorageAttendance(record)))
}

func (a *domainStoreAdapter) GetRecord(ctx context.Context, sessionID, studentID string) (domain.AttendanceRecord, error) {
	if a == nil || a.store == nil {
		return domain.AttendanceRecord{}, errStoreNotConfigured
	}
	record, err := a.store.GetAttendanceBySessionAndStudent(ctx, sessionID, studentID)
	if err != nil {
		return domain.AttendanceRecord{}, mapStorageError(err)
	}
	return toDomainAttendance(record), nil
}

func (a *domainStoreAdapter) UpgradeRecordToLate(ctx context.Context, id string, exitAt time.Time, now time.Time) (domain.AttendanceRecord, error) {
	if a == nil || a.store == nil {
		return domain.AttendanceRecord{}, errStoreNotConfigured
	}
	record, err := a.store.MarkAttendanceLate(ctx, id, exitAt, now)
	if err != nil {
		return domain.AttendanceRecord{}, mapStorageError(err)
	}
	return toDomainAttendance(record), nil
}

func (a *domainStoreAdapter) ListRecordsBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error) {
	if a == nil || a.store == nil {
		return nil, errStoreNotConfigured
	}
	records, err := a.store.ListAttendanceBySession(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	out := make([]domain.AttendanceRecord, 0, len(records))
	for _, record := range records {
		out = append(out, toDomainAttendance(record))
	}
	return out, nil
}

func (a *domainStoreAdapter) GetSubject(ctx context.Context, id string) (domain.Subject, error) {
	if a == nil || a.store == nil {
		return domain.Subject{}, errStoreNotConfigured
	}
	record, err := a.store.GetSubject(ctx, id)
	if err != nil {
		return domain.Subject{}, mapStorageError(err)
	}
	return domain.Subject{
		ID:           record.ID,
		Name:         record.Name,
		GroupLabel:   record.GroupLabel,
		InstructorID: record.InstructorID,
	}, nil
}

func (a *domainStoreAdapter) GetScheduledClass(ctx context.Context, id string) (domain.ScheduledClass, error) {
	if a == nil || a.store == nil {
		return domain.ScheduledClass{}, errStoreNotConfigured
	}
	record, err := a.store.GetScheduledClass(ctx, id)
	if err != nil {
		return domain.ScheduledClass{}, mapStorageError(err)
	}
	return toDomainScheduledClass(record), nil
}

func (a *domainStoreAdapter) FindScheduledClass(ctx context.Context, subjectID, scheduleID string) (domain.ScheduledClass, error) {
	if a == nil || a.store == nil {
		return domain.ScheduledClass{}, errStoreNotConfigured
	}
	record, err := a.store.GetScheduledClassBySubjectAndSchedule(ctx, subjectID, scheduleID)
	if err != nil {
		return domain.ScheduledClass{}, mapStorageError(err)
	}
	return toDomainScheduledClass(record), nil
}

func (a *domainStoreAdapter) GetStudentByCardCode(ctx context.Context, cardCode string) (domain.Student, error) {
	if a == nil || a.store == nil {
		return domain.Student{}, errStoreNotConfigured
	}
	record, err := a.store.GetStudentByCardCode(ctx, cardCode)
	if err != nil {
		return domain.Student{}, mapStorageError(err)
	}
	return domain.Student{
		ID:       record.ID,
		FullName: record.FullName,
		CardCode: record.CardCode,
	}, nil
}

func (a *domainStoreAdapter) IsEnrolled(ctx context.Context, subjectID, studentID string) (bool, error) {
	if a == nil || a.store == nil {
		return false, errStoreNotConfigured
	}
	enrolled, err := a.store.HasEnrollment(ctx, subjectID, studentID)
	if err != nil {
		return false, mapStorageError(err)
	}
	return enrolled, nil
}

func (a *domainStoreAdapter) ListEnrolledStudentIDs(ctx context.Context, subjectID string) ([]string, error) {
	if a == nil || a.store == nil {
		return nil, errStoreNotConfigured
	}
	ids, err := a.store.ListEnrolledStudentIDs(ctx, subjectID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return ids, nil
}

func (a *domainStoreAdapter) ListEnrolledSubjectIDs(ctx context.Context, studentID string) ([]string, error) {
	if a == nil || a.store == nil {
		return nil, errStoreNotConfigured
	}
	ids, err := a.store.ListEnrolledSubjectIDs(ctx, studentID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return ids, nil
}

func toStorageSession(session domain.Session) storage.SessionRecord {
	return storage.SessionRecord{
		ID:               session.ID,
		ScheduledClassID: session.ScheduledClassID,
		Topic:            session.Topic,
		Status:           session.Status.String(),
		StartedAt:        session.StartedAt,
		EndedAt:          session.EndedAt,
		CreatedAt:        session.CreatedAt,
		UpdatedAt:        session.UpdatedAt,
	}
}

func toDomainSession(record storage.SessionRecord) domain.Session {
	return domain.Session{
		ID:               record.ID,
		ScheduledClassID: record.ScheduledClassID,
		Topic:            record.Topic,
		Status:           domain.ParseSessionStatus(record.Status),
		StartedAt:        record.StartedAt,
		EndedAt:          record.EndedAt,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

func toDomainSessions(records []storage.SessionRecord) []domain.Session {
	sessions := make([]domain.Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, toDomainSession(record))
	}
	return sessions
}

func toStorageAttendance(record domain.AttendanceRecord) storage.AttendanceRecord {
	return storage.AttendanceRecord{
		ID:        record.ID,
		SessionID: record.SessionID,
		StudentID: record.StudentID,
		Status:    record.Status.String(),
		EntryAt:   record.EntryAt,
		ExitAt:    record.ExitAt,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func toDomainAttendance(record storage.AttendanceRecord) domain.AttendanceRecord {
	return domain.AttendanceRecord{
		ID:        record.ID,
		SessionID: record.SessionID,
		StudentID: record.StudentID,
		Status:    domain.ParseAttendanceStatus(record.Status),
		EntryAt:   record.EntryAt,
		ExitAt:    record.ExitAt,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func toDomainScheduledClass(record storage.ScheduledClassRecord) domain.ScheduledClass {
	return domain.ScheduledClass{
		ID:         record.ID,
		SubjectID:  record.SubjectID,
		ScheduleID: record.ScheduleID,
	}
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		return domain.ErrConflict
	default:
		return err
	}
}
