package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aulatap/aulatap/internal/services/attendance/storage"
)

const attendanceColumns = "id, session_id, student_id, status, entry_at, exit_at, created_at, updated_at"

// PutAttendance inserts one attendance row. A duplicate (session,
// student) pair yields storage.ErrConflict.
func (s *Store) PutAttendance(ctx context.Context, record storage.AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := normalizeAttendanceRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO attendance_records (`+attendanceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.SessionID,
		normalized.StudentID,
		normalized.Status,
		nullableMillis(normalized.EntryAt),
		nullableMillis(normalized.ExitAt),
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) || isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put attendance: %w", err)
	}
	return nil
}

// GetAttendanceBySessionAndStudent loads one attendance row by its
// natural key.
func (s *Store) GetAttendanceBySessionAndStudent(ctx context.Context, sessionID, studentID string) (storage.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AttendanceRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.AttendanceRecord{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	studentID = strings.TrimSpace(studentID)
	if sessionID == "" {
		return storage.AttendanceRecord{}, fmt.Errorf("session id is required")
	}
	if studentID == "" {
		return storage.AttendanceRecord{}, fmt.Errorf("student id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+attendanceColumns+`
FROM attendance_records
WHERE session_id = ? AND student_id = ?
`, sessionID, studentID)
	record, err := scanAttendance(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AttendanceRecord{}, storage.ErrNotFound
		}
		return storage.AttendanceRecord{}, fmt.Errorf("get attendance: %w", err)
	}
	return record, nil
}

// MarkAttendanceLate upgrades one Ausente row to Tarde and stamps the
// exit time. The update is guarded on the row still being Ausente;
// losing that race yields storage.ErrConflict.
func (s *Store) MarkAttendanceLate(ctx context.Context, id string, exitAt, updatedAt time.Time) (storage.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AttendanceRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.AttendanceRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.AttendanceRecord{}, fmt.Errorf("attendance id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE attendance_records
SET status = ?,
    exit_at = ?,
    updated_at = ?
WHERE id = ? AND status = ?
`, storage.AttendanceStatusLate, toMillis(exitAt), toMillis(updatedAt), id, storage.AttendanceStatusAbsent)
	if err != nil {
		return storage.AttendanceRecord{}, fmt.Errorf("mark attendance late: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.AttendanceRecord{}, fmt.Errorf("mark attendance late rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.getAttendanceByID(ctx, id); errors.Is(getErr, storage.ErrNotFound) {
			return storage.AttendanceRecord{}, storage.ErrNotFound
		}
		return storage.AttendanceRecord{}, storage.ErrConflict
	}
	return s.getAttendanceByID(ctx, id)
}

// ListAttendanceBySession lists every attendance row for a session.
func (s *Store) ListAttendanceBySession(ctx context.Context, sessionID string) ([]storage.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+attendanceColumns+`
FROM attendance_records
WHERE session_id = ?
ORDER BY created_at, id
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []storage.AttendanceRecord
	for rows.Next() {
		record, err := scanAttendance(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

func (s *Store) getAttendanceByID(ctx context.Context, id string) (storage.AttendanceRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+attendanceColumns+`
FROM attendance_records
WHERE id = ?
`, id)
	record, err := scanAttendance(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AttendanceRecord{}, storage.ErrNotFound
		}
		return storage.AttendanceRecord{}, fmt.Errorf("get attendance by id: %w", err)
	}
	return record, nil
}

func normalizeAttendanceRecord(record storage.AttendanceRecord) (storage.AttendanceRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.SessionID = strings.TrimSpace(record.SessionID)
	record.StudentID = strings.TrimSpace(record.StudentID)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return storage.AttendanceRecord{}, fmt.Errorf("attendance id is required")
	}
	if record.SessionID == "" {
		return storage.AttendanceRecord{}, fmt.Errorf("session id is required")
	}
	if record.StudentID == "" {
		return storage.AttendanceRecord{}, fmt.Errorf("student id is required")
	}
	if record.Status == "" {
		return storage.AttendanceRecord{}, fmt.Errorf("attendance status is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.AttendanceRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.AttendanceRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.EntryAt != nil {
		entryAt := record.EntryAt.UTC()
		record.EntryAt = &entryAt
	}
	if record.ExitAt != nil {
		exitAt := record.ExitAt.UTC()
		record.ExitAt = &exitAt
	}
	return record, nil
}

func scanAttendance(scan scanner) (storage.AttendanceRecord, error) {
	var record storage.AttendanceRecord
	var entryAt sql.NullInt64
	var exitAt sql.NullInt64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.SessionID,
		&record.StudentID,
		&record.Status,
		&entryAt,
		&exitAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.AttendanceRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	if entryAt.Valid {
		value := fromMillis(entryAt.Int64)
		record.EntryAt = &value
	}
	if exitAt.Valid {
		value := fromMillis(exitAt.Int64)
		record.ExitAt = &value
	}
	return record, nil
}
