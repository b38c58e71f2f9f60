package httpapi

import (
	"time"

	"github.com/aulatap/aulatap/internal/services/attendance/domain"
)

type startSessionRequest struct {
	SubjectID  string `json:"subject_id"`
	ScheduleID string `json:"schedule_id"`
	Topic      string `json:"topic"`
}

type tapRequest struct {
	CardCode  string `json:"card_code"`
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	ID               string     `json:"id"`
	ScheduledClassID string     `json:"scheduled_class_id"`
	Topic            string     `json:"topic"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

type attendanceResponse struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	StudentID string     `json:"student_id"`
	Status    string     `json:"status"`
	EntryAt   *time.Time `json:"entry_at,omitempty"`
	ExitAt    *time.Time `json:"exit_at,omitempty"`
}

func toSessionResponse(session domain.Session) sessionResponse {
	return sessionResponse{
		ID:               session.ID,
		ScheduledClassID: session.ScheduledClassID,
		Topic:            session.Topic,
		Status:           session.Status.String(),
		StartedAt:        session.StartedAt,
		EndedAt:          session.EndedAt,
	}
}

func toAttendanceResponse(record domain.AttendanceRecord) attendanceResponse {
	return attendanceResponse{
		ID:        record.ID,
		SessionID: record.SessionID,
		StudentID: record.StudentID,
		Status:    record.Status.String(),
		EntryAt:   record.EntryAt,
		ExitAt:    record.ExitAt,
	}
}
