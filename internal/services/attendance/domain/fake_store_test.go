package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errIDGeneratorExhausted = errors.New("id generator exhausted")

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(ids ...string) func() (string, error) {
	queue := append([]string(nil), ids...)
	index := 0
	return func() (string, error) {
		if index >= len(queue) {
			return "", errIDGeneratorExhausted
		}
		value := queue[index]
		index++
		return value, nil
	}
}

// countingIDGenerator is safe for concurrent use and never exhausts.
func countingIDGenerator(prefix string) func() (string, error) {
	var mu sync.Mutex
	next := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("%s-%d", prefix, next), nil
	}
}

// fakeStore is an in-memory Store enforcing the same uniqueness and
// guarded-update semantics as the sqlite implementation.
type fakeStore struct {
	mu          sync.Mutex
	sessions    map[string]Session
	records     map[string]AttendanceRecord
	recordKeys  map[string]string
	subjects    map[string]Subject
	classes     map[string]ScheduledClass
	students    map[string]Student
	enrollments map[string]map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:    make(map[string]Session),
		records:     make(map[string]AttendanceRecord),
		recordKeys:  make(map[string]string),
		subjects:    make(map[string]Subject),
		classes:     make(map[string]ScheduledClass),
		students:    make(map[string]Student),
		enrollments: make(map[string]map[string]bool),
	}
}

func recordKey(sessionID, studentID string) string {
	return sessionID + "|" + studentID
}

func (f *fakeStore) addSubject(s Subject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects[s.ID] = s
}

func (f *fakeStore) addScheduledClass(c ScheduledClass) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[c.ID] = c
}

func (f *fakeStore) addStudent(s Student) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students[s.ID] = s
}

func (f *fakeStore) enroll(subjectID, studentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enrollments[subjectID] == nil {
		f.enrollments[subjectID] = make(map[string]bool)
	}
	f.enrollments[subjectID][studentID] = true
}

func (f *fakeStore) seedSession(s Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

func (f *fakeStore) seedRecord(r AttendanceRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[r.ID] = r
	f.recordKeys[recordKey(r.SessionID, r.StudentID)] = r.ID
}

func (f *fakeStore) recordCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.records {
		if r.SessionID == sessionID {
			count++
		}
	}
	return count
}

func (f *fakeStore) CreateSession(_ context.Context, session Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.ScheduledClassID == session.ScheduledClassID && !existing.Status.Terminal() {
			return ErrConflict
		}
	}
	if _, ok := f.sessions[session.ID]; ok {
		return ErrConflict
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (f *fakeStore) FindActiveSession(_ context.Context, scheduledClassID string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.ScheduledClassID == scheduledClassID && !session.Status.Terminal() {
			return session, nil
		}
	}
	return Session{}, ErrNotFound
}

func (f *fakeStore) TransitionSession(_ context.Context, id string, from, to SessionStatus, endedAt *time.Time, now time.Time) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if session.Status != from {
		return Session{}, ErrConflict
	}
	session.Status = to
	if endedAt != nil {
		at := *endedAt
		session.EndedAt = &at
	}
	session.UpdatedAt = now
	f.sessions[id] = session
	return session, nil
}

func (f *fakeStore) ListOpenSessionsBySubjects(_ context.Context, subjectIDs []string) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		wanted[id] = true
	}
	var out []Session
	for _, session := range f.sessions {
		if session.Status != SessionStatusOpen {
			continue
		}
		class, ok := f.classes[session.ScheduledClassID]
		if !ok || !wanted[class.SubjectID] {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (f *fakeStore) ListActiveSessionsByInstructor(_ context.Context, instructorID string) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Session
	for _, session := range f.sessions {
		if session.Status.Terminal() {
			continue
		}
		class, ok := f.classes[session.ScheduledClassID]
		if !ok {
			continue
		}
		subject, ok := f.subjects[class.SubjectID]
		if !ok || subject.InstructorID != instructorID {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (f *fakeStore) CreateRecord(_ context.Context, record AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey(record.SessionID, record.StudentID)
	if _, ok := f.recordKeys[key]; ok {
		return ErrConflict
	}
	f.records[record.ID] = record
	f.recordKeys[key] = record.ID
	return nil
}

func (f *fakeStore) GetRecord(_ context.Context, sessionID, studentID string) (AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.recordKeys[recordKey(sessionID, studentID)]
	if !ok {
		return AttendanceRecord{}, ErrNotFound
	}
	return f.records[id], nil
}

func (f *fakeStore) UpgradeRecordToLate(_ context.Context, id string, exitAt time.Time, now time.Time) (AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return AttendanceRecord{}, ErrNotFound
	}
	if record.Status != AttendanceStatusAbsent {
		return AttendanceRecord{}, ErrConflict
	}
	record.Status = AttendanceStatusLate
	at := exitAt
	record.ExitAt = &at
	record.UpdatedAt = now
	f.records[id] = record
	return record, nil
}

func (f *fakeStore) ListRecordsBySession(_ context.Context, sessionID string) ([]AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AttendanceRecord
	for _, record := range f.records {
		if record.SessionID == sessionID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSubject(_ context.Context, id string) (Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subject, ok := f.subjects[id]
	if !ok {
		return Subject{}, ErrNotFound
	}
	return subject, nil
}

func (f *fakeStore) GetScheduledClass(_ context.Context, id string) (ScheduledClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	class, ok := f.classes[id]
	if !ok {
		return ScheduledClass{}, ErrNotFound
	}
	return class, nil
}

func (f *fakeStore) FindScheduledClass(_ context.Context, subjectID, scheduleID string) (ScheduledClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, class := range f.classes {
		if class.SubjectID == subjectID && class.ScheduleID == scheduleID {
			return class, nil
		}
	}
	return ScheduledClass{}, ErrNotFound
}

func (f *fakeStore) GetStudentByCardCode(_ context.Context, cardCode string) (Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, student := range f.students {
		if student.CardCode == cardCode {
			return student, nil
		}
	}
	return Student{}, ErrNotFound
}

func (f *fakeStore) IsEnrolled(_ context.Context, subjectID, studentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enrollments[subjectID][studentID], nil
}

func (f *fakeStore) ListEnrolledStudentIDs(_ context.Context, subjectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for studentID := range f.enrollments[subjectID] {
		out = append(out, studentID)
	}
	return out, nil
}

func (f *fakeStore) ListEnrolledSubjectIDs(_ context.Context, studentID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for subjectID, students := range f.enrollments {
		if students[studentID] {
			out = append(out, subjectID)
		}
	}
	return out, nil
}
