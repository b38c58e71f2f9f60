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

const sessionColumns = "id, scheduled_class_id, topic, status, started_at, ended_at, created_at, updated_at"

// PutSession inserts one class-session row. The partial unique index on
// non-terminal sessions turns a second active session for the same
// scheduled class into storage.ErrConflict.
func (s *Store) PutSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := normalizeSessionRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO class_sessions (`+sessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.ScheduledClassID,
		normalized.Topic,
		normalized.Status,
		toMillis(normalized.StartedAt),
		nullableMillis(normalized.EndedAt),
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) || isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession loads one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.SessionRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.SessionRecord{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM class_sessions
WHERE id = ?
`, id)
	record, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return record, nil
}

// GetActiveSessionByScheduledClass loads the single non-terminal session
// for a scheduled class.
func (s *Store) GetActiveSessionByScheduledClass(ctx context.Context, scheduledClassID string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.SessionRecord{}, err
	}
	scheduledClassID = strings.TrimSpace(scheduledClassID)
	if scheduledClassID == "" {
		return storage.SessionRecord{}, fmt.Errorf("scheduled class id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM class_sessions
WHERE scheduled_class_id = ? AND status != ?
`, scheduledClassID, storage.SessionStatusClosed)
	record, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get active session: %w", err)
	}
	return record, nil
}

// UpdateSessionStatus moves one session between statuses. The update is
// guarded on the expected current status; losing that race yields
// storage.ErrConflict.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, fromStatus, toStatus string, endedAt *time.Time, updatedAt time.Time) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.SessionRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.SessionRecord{}, fmt.Errorf("session id is required")
	}
	if fromStatus == "" || toStatus == "" {
		return storage.SessionRecord{}, fmt.Errorf("session statuses are required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE class_sessions
SET status = ?,
    ended_at = COALESCE(?, ended_at),
    updated_at = ?
WHERE id = ? AND status = ?
`, toStatus, nullableMillis(endedAt), toMillis(updatedAt), id, fromStatus)
	if err != nil {
		return storage.SessionRecord{}, fmt.Errorf("update session status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.SessionRecord{}, fmt.Errorf("update session status rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetSession(ctx, id); errors.Is(getErr, storage.ErrNotFound) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, storage.ErrConflict
	}
	return s.GetSession(ctx, id)
}

// ListOpenSessionsBySubjects lists EnProgreso sessions whose scheduled
// class belongs to any of the given subjects.
func (s *Store) ListOpenSessionsBySubjects(ctx context.Context, subjectIDs []string) ([]storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(subjectIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(subjectIDs)+1)
	args = append(args, storage.SessionStatusOpen)
	for _, subjectID := range subjectIDs {
		args = append(args, subjectID)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT cs.id, cs.scheduled_class_id, cs.topic, cs.status, cs.started_at, cs.ended_at, cs.created_at, cs.updated_at
FROM class_sessions cs
JOIN scheduled_classes sc ON sc.id = cs.scheduled_class_id
WHERE cs.status = ?
  AND sc.subject_id IN (`+placeholders(len(subjectIDs))+`)
ORDER BY cs.started_at, cs.id
`, args...)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListActiveSessionsByInstructor lists non-terminal sessions for subjects
// taught by the instructor.
func (s *Store) ListActiveSessionsByInstructor(ctx context.Context, instructorID string) ([]storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	instructorID = strings.TrimSpace(instructorID)
	if instructorID == "" {
		return nil, fmt.Errorf("instructor id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT cs.id, cs.scheduled_class_id, cs.topic, cs.status, cs.started_at, cs.ended_at, cs.created_at, cs.updated_at
FROM class_sessions cs
JOIN scheduled_classes sc ON sc.id = cs.scheduled_class_id
JOIN subjects s ON s.id = sc.subject_id
WHERE cs.status != ?
  AND s.instructor_id = ?
ORDER BY cs.started_at, cs.id
`, storage.SessionStatusClosed, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func normalizeSessionRecord(record storage.SessionRecord) (storage.SessionRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.ScheduledClassID = strings.TrimSpace(record.ScheduledClassID)
	record.Topic = strings.TrimSpace(record.Topic)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return storage.SessionRecord{}, fmt.Errorf("session id is required")
	}
	if record.ScheduledClassID == "" {
		return storage.SessionRecord{}, fmt.Errorf("scheduled class id is required")
	}
	if record.Status == "" {
		return storage.SessionRecord{}, fmt.Errorf("session status is required")
	}
	if record.StartedAt.IsZero() {
		return storage.SessionRecord{}, fmt.Errorf("started_at is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.SessionRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.SessionRecord{}, fmt.Errorf("updated_at is required")
	}
	record.StartedAt = record.StartedAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.EndedAt != nil {
		endedAt := record.EndedAt.UTC()
		record.EndedAt = &endedAt
	}
	return record, nil
}

func scanSession(scan scanner) (storage.SessionRecord, error) {
	var record storage.SessionRecord
	var startedAt int64
	var endedAt sql.NullInt64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.ScheduledClassID,
		&record.Topic,
		&record.Status,
		&startedAt,
		&endedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SessionRecord{}, err
	}
	record.StartedAt = fromMillis(startedAt)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	if endedAt.Valid {
		value := fromMillis(endedAt.Int64)
		record.EndedAt = &value
	}
	return record, nil
}

func collectSessions(rows *sql.Rows) ([]storage.SessionRecord, error) {
	var records []storage.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return records, nil
}
