package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aulatap/aulatap/internal/services/attendance/storage"
)

// PutInstructor upserts one instructor row.
func (s *Store) PutInstructor(ctx context.Context, record storage.InstructorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.FullName = strings.TrimSpace(record.FullName)
	record.Email = strings.TrimSpace(record.Email)
	if record.ID == "" {
		return fmt.Errorf("instructor id is required")
	}
	if record.Email == "" {
		return fmt.Errorf("instructor email is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO instructors (id, full_name, email)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	full_name = excluded.full_name,
	email = excluded.email
`, record.ID, record.FullName, record.Email)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put instructor: %w", err)
	}
	return nil
}

// PutSubject upserts one subject row.
func (s *Store) PutSubject(ctx context.Context, record storage.SubjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.Name = strings.TrimSpace(record.Name)
	record.GroupLabel = strings.TrimSpace(record.GroupLabel)
	record.InstructorID = strings.TrimSpace(record.InstructorID)
	if record.ID == "" {
		return fmt.Errorf("subject id is required")
	}
	if record.InstructorID == "" {
		return fmt.Errorf("instructor id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO subjects (id, name, group_label, instructor_id)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	group_label = excluded.group_label,
	instructor_id = excluded.instructor_id
`, record.ID, record.Name, record.GroupLabel, record.InstructorID)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put subject: %w", err)
	}
	return nil
}

// PutSchedule upserts one timetable slot row.
func (s *Store) PutSchedule(ctx context.Context, record storage.ScheduleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return fmt.Errorf("schedule id is required")
	}
	if record.Weekday < 0 || record.Weekday > 6 {
		return fmt.Errorf("schedule weekday must be between 0 and 6")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO schedules (id, weekday, starts_at, ends_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	weekday = excluded.weekday,
	starts_at = excluded.starts_at,
	ends_at = excluded.ends_at
`, record.ID, record.Weekday, record.StartsAt, record.EndsAt)
	if err != nil {
		return fmt.Errorf("put schedule: %w", err)
	}
	return nil
}

// PutScheduledClass upserts one scheduled-class row.
func (s *Store) PutScheduledClass(ctx context.Context, record storage.ScheduledClassRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.SubjectID = strings.TrimSpace(record.SubjectID)
	record.ScheduleID = strings.TrimSpace(record.ScheduleID)
	if record.ID == "" {
		return fmt.Errorf("scheduled class id is required")
	}
	if record.SubjectID == "" || record.ScheduleID == "" {
		return fmt.Errorf("subject id and schedule id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO scheduled_classes (id, subject_id, schedule_id)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	subject_id = excluded.subject_id,
	schedule_id = excluded.schedule_id
`, record.ID, record.SubjectID, record.ScheduleID)
	if err != nil {
		if isUniqueConstraintError(err) || isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put scheduled class: %w", err)
	}
	return nil
}

// PutStudent upserts one student row.
func (s *Store) PutStudent(ctx context.Context, record storage.StudentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.FullName = strings.TrimSpace(record.FullName)
	record.CardCode = strings.TrimSpace(record.CardCode)
	if record.ID == "" {
		return fmt.Errorf("student id is required")
	}
	if record.CardCode == "" {
		return fmt.Errorf("student card code is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO students (id, full_name, card_code)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	full_name = excluded.full_name,
	card_code = excluded.card_code
`, record.ID, record.FullName, record.CardCode)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put student: %w", err)
	}
	return nil
}

// PutEnrollment records one (subject, student) enrollment; replays are
// no-ops.
func (s *Store) PutEnrollment(ctx context.Context, subjectID, studentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	subjectID = strings.TrimSpace(subjectID)
	studentID = strings.TrimSpace(studentID)
	if subjectID == "" || studentID == "" {
		return fmt.Errorf("subject id and student id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO enrollments (subject_id, student_id)
VALUES (?, ?)
`, subjectID, studentID)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put enrollment: %w", err)
	}
	return nil
}

// GetSubject loads one subject by id.
func (s *Store) GetSubject(ctx context.Context, id string) (storage.SubjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SubjectRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.SubjectRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.SubjectRecord{}, fmt.Errorf("subject id is required")
	}

	var record storage.SubjectRecord
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, group_label, instructor_id
FROM subjects
WHERE id = ?
`, id).Scan(&record.ID, &record.Name, &record.GroupLabel, &record.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SubjectRecord{}, storage.ErrNotFound
		}
		return storage.SubjectRecord{}, fmt.Errorf("get subject: %w", err)
	}
	return record, nil
}

// GetScheduledClass loads one scheduled class by id.
func (s *Store) GetScheduledClass(ctx context.Context, id string) (storage.ScheduledClassRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ScheduledClassRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.ScheduledClassRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ScheduledClassRecord{}, fmt.Errorf("scheduled class id is required")
	}

	var record storage.ScheduledClassRecord
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, subject_id, schedule_id
FROM scheduled_classes
WHERE id = ?
`, id).Scan(&record.ID, &record.SubjectID, &record.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ScheduledClassRecord{}, storage.ErrNotFound
		}
		return storage.ScheduledClassRecord{}, fmt.Errorf("get scheduled class: %w", err)
	}
	return record, nil
}

// GetScheduledClassBySubjectAndSchedule loads the scheduled class binding
// a subject to a schedule slot.
func (s *Store) GetScheduledClassBySubjectAndSchedule(ctx context.Context, subjectID, scheduleID string) (storage.ScheduledClassRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ScheduledClassRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.ScheduledClassRecord{}, err
	}
	subjectID = strings.TrimSpace(subjectID)
	scheduleID = strings.TrimSpace(scheduleID)
	if subjectID == "" || scheduleID == "" {
		return storage.ScheduledClassRecord{}, fmt.Errorf("subject id and schedule id are required")
	}

	var record storage.ScheduledClassRecord
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, subject_id, schedule_id
FROM scheduled_classes
WHERE subject_id = ? AND schedule_id = ?
`, subjectID, scheduleID).Scan(&record.ID, &record.SubjectID, &record.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ScheduledClassRecord{}, storage.ErrNotFound
		}
		return storage.ScheduledClassRecord{}, fmt.Errorf("get scheduled class by subject and schedule: %w", err)
	}
	return record, nil
}

// GetStudentByCardCode loads the student owning a card code.
func (s *Store) GetStudentByCardCode(ctx context.Context, cardCode string) (storage.StudentRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.StudentRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.StudentRecord{}, err
	}
	cardCode = strings.TrimSpace(cardCode)
	if cardCode == "" {
		return storage.StudentRecord{}, fmt.Errorf("card code is required")
	}

	var record storage.StudentRecord
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, full_name, card_code
FROM students
WHERE card_code = ?
`, cardCode).Scan(&record.ID, &record.FullName, &record.CardCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.StudentRecord{}, storage.ErrNotFound
		}
		return storage.StudentRecord{}, fmt.Errorf("get student by card code: %w", err)
	}
	return record, nil
}

// HasEnrollment reports whether a student is enrolled in a subject.
func (s *Store) HasEnrollment(ctx context.Context, subjectID, studentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	subjectID = strings.TrimSpace(subjectID)
	studentID = strings.TrimSpace(studentID)
	if subjectID == "" || studentID == "" {
		return false, fmt.Errorf("subject id and student id are required")
	}

	var found int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT 1
FROM enrollments
WHERE subject_id = ? AND student_id = ?
`, subjectID, studentID).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListEnrolledStudentIDs lists the ids of every student enrolled in a
// subject.
func (s *Store) ListEnrolledStudentIDs(ctx context.Context, subjectID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT student_id
FROM enrollments
WHERE subject_id = ?
ORDER BY student_id
`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows, "student")
}

// ListEnrolledSubjectIDs lists the ids of every subject a student is
// enrolled in.
func (s *Store) ListEnrolledSubjectIDs(ctx context.Context, studentID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, fmt.Errorf("student id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT subject_id
FROM enrollments
WHERE student_id = ?
ORDER BY subject_id
`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled subjects: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows, "subject")
}

func collectIDs(rows *sql.Rows, kind string) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", kind, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", kind, err)
	}
	return ids, nil
}
