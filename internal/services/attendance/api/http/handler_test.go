package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/aulatap/aulatap/internal/errors"
	"github.com/aulatap/aulatap/internal/services/attendance/domain"
)

var testSecret = []byte("test-secret")

type stubLifecycle struct {
	startFn           func(ctx context.Context, input domain.StartInput) (domain.Session, error)
	openValidationFn  func(ctx context.Context, sessionID, instructorID string) (domain.Session, error)
	closeValidationFn func(ctx context.Context, sessionID, instructorID string) (domain.Session, error)
	closeFn           func(ctx context.Context, sessionID, instructorID string) (domain.Session, error)
	listActiveFn      func(ctx context.Context, instructorID string) ([]domain.Session, error)
}

func (s *stubLifecycle) Start(ctx context.Context, input domain.StartInput) (domain.Session, error) {
	return s.startFn(ctx, input)
}

func (s *stubLifecycle) OpenValidation(ctx context.Context, sessionID, instructorID string) (domain.Session, error) {
	return s.openValidationFn(ctx, sessionID, instructorID)
}

func (s *stubLifecycle) CloseValidation(ctx context.Context, sessionID, instructorID string) (domain.Session, error) {
	return s.closeValidationFn(ctx, sessionID, instructorID)
}

func (s *stubLifecycle) Close(ctx context.Context, sessionID, instructorID string) (domain.Session, error) {
	return s.closeFn(ctx, sessionID, instructorID)
}

func (s *stubLifecycle) ListActive(ctx context.Context, instructorID string) ([]domain.Session, error) {
	return s.listActiveFn(ctx, instructorID)
}

type stubLedger struct {
	recordTapFn           func(ctx context.Context, input domain.TapInput) (domain.AttendanceRecord, error)
	recordValidationTapFn func(ctx context.Context, sessionID, cardCode string) (domain.AttendanceRecord, error)
}

func (s *stubLedger) RecordTap(ctx context.Context, input domain.TapInput) (domain.AttendanceRecord, error) {
	return s.recordTapFn(ctx, input)
}

func (s *stubLedger) RecordValidationTap(ctx context.Context, sessionID, cardCode string) (domain.AttendanceRecord, error) {
	return s.recordValidationTapFn(ctx, sessionID, cardCode)
}

func newTestApp(t *testing.T, lifecycle LifecycleService, ledger LedgerService) *fiber.App {
	t.Helper()
	app := fiber.New()
	NewHandler(lifecycle, ledger).Register(app, testSecret)
	return app
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, app *fiber.App, method, target, token, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var envelope errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return envelope.Error
}

func TestStartSession_Created(t *testing.T) {
	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	lifecycle := &stubLifecycle{
		startFn: func(_ context.Context, input domain.StartInput) (domain.Session, error) {
			if input.InstructorID != "inst-1" {
				return domain.Session{}, fmt.Errorf("unexpected instructor %q", input.InstructorID)
			}
			if input.SubjectID != "subj-1" || input.ScheduleID != "sched-1" {
				return domain.Session{}, fmt.Errorf("unexpected input: %+v", input)
			}
			return domain.Session{
				ID:               "sess-1",
				ScheduledClassID: "class-1",
				Topic:            input.Topic,
				Status:           domain.SessionStatusOpen,
				StartedAt:        started,
			}, nil
		},
	}
	app := newTestApp(t, lifecycle, &stubLedger{})

	resp := doRequest(t, app, fiber.MethodPost, "/v1/sessions", signToken(t, "inst-1"),
		`{"subject_id":"subj-1","schedule_id":"sched-1","topic":"Limits"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusCreated)
	}

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "sess-1" || body.Status != "EnProgreso" || body.Topic != "Limits" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.EndedAt != nil {
		t.Fatal("expected no ended_at in response")
	}
}

func TestStartSession_RequiresAuth(t *testing.T) {
	app := newTestApp(t, &stubLifecycle{}, &stubLedger{})

	resp := doRequest(t, app, fiber.MethodPost, "/v1/sessions", "", `{"subject_id":"subj-1"}`)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status without token = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
	if got := decodeError(t, resp); got.Code != "UNAUTHENTICATED" {
		t.Fatalf("error code = %q, want UNAUTHENTICATED", got.Code)
	}

	resp = doRequest(t, app, fiber.MethodPost, "/v1/sessions", "not-a-jwt", `{"subject_id":"subj-1"}`)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestStartSession_ActiveConflictRendered(t *testing.T) {
	lifecycle := &stubLifecycle{
		startFn: func(context.Context, domain.StartInput) (domain.Session, error) {
			return domain.Session{}, apperrors.WithMetadata(apperrors.CodeActiveSessionExists,
				"an active session already exists for this scheduled class",
				map[string]string{"scheduled_class_id": "class-1"})
		},
	}
	app := newTestApp(t, lifecycle, &stubLedger{})

	resp := doRequest(t, app, fiber.MethodPost, "/v1/sessions", signToken(t, "inst-1"),
		`{"subject_id":"subj-1","schedule_id":"sched-1"}`)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusConflict)
	}
	got := decodeError(t, resp)
	if got.Code != "ACTIVE_SESSION_EXISTS" {
		t.Fatalf("error code = %q", got.Code)
	}
	if got.Details["scheduled_class_id"] != "class-1" {
		t.Fatalf("unexpected details: %v", got.Details)
	}
}

func TestCloseSession_ForbiddenForForeignInstructor(t *testing.T) {
	lifecycle := &stubLifecycle{
		closeFn: func(_ context.Context, sessionID, instructorID string) (domain.Session, error) {
			if sessionID != "sess-1" {
				return domain.Session{}, fmt.Errorf("unexpected session %q", sessionID)
			}
			return domain.Session{}, apperrors.New(apperrors.CodeSubjectOwnershipRequired,
				"subject is taught by another instructor")
		},
	}
	app := newTestApp(t, lifecycle, &stubLedger{})

	resp := doRequest(t, app, fiber.MethodPost, "/v1/sessions/sess-1/close", signToken(t, "inst-2"), "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusForbidden)
	}
	if got := decodeError(t, resp); got.Code != "SUBJECT_OWNERSHIP_REQUIRED" {
		t.Fatalf("error code = %q", got.Code)
	}
}

func TestListActiveSessions(t *testing.T) {
	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	lifecycle := &stubLifecycle{
		listActiveFn: func(_ context.Context, instructorID string) ([]domain.Session, error) {
			if instructorID != "inst-1" {
				return nil, fmt.Errorf("unexpected instructor %q", instructorID)
			}
			return []domain.Session{{
				ID:               "sess-1",
				ScheduledClassID: "class-1",
				Status:           domain.SessionStatusValidationOpen,
				StartedAt:        started,
			}}, nil
		},
	}
	app := newTestApp(t, lifecycle, &stubLedger{})

	resp := doRequest(t, app, fiber.MethodGet, "/v1/sessions/active", signToken(t, "inst-1"), "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var body struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Sessions) != 1 || body.Sessions[0].Status != "ValidacionAbierta" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRecordTap(t *testing.T) {
	entry := time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)
	ledger := &stubLedger{
		recordTapFn: func(_ context.Context, input domain.TapInput) (domain.AttendanceRecord, error) {
			if input.CardCode != "CARD-1" || input.SessionID != "" {
				return domain.AttendanceRecord{}, fmt.Errorf("unexpected input: %+v", input)
			}
			return domain.AttendanceRecord{
				ID:        "rec-1",
				SessionID: "sess-1",
				StudentID: "stu-1",
				Status:    domain.AttendanceStatusPresent,
				EntryAt:   &entry,
			}, nil
		},
	}
	app := newTestApp(t, &stubLifecycle{}, ledger)

	// Card readers carry no user token; the tap route must accept the
	// request without an Authorization header.
	resp := doRequest(t, app, fiber.MethodPost, "/v1/attendance/taps", "",
		`{"card_code":"CARD-1"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var body attendanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "rec-1" || body.Status != "Presente" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRecordTap_NoActiveSession(t *testing.T) {
	ledger := &stubLedger{
		recordTapFn: func(context.Context, domain.TapInput) (domain.AttendanceRecord, error) {
			return domain.AttendanceRecord{}, apperrors.New(apperrors.CodeTapNoActiveSession,
				"no session in progress for the student's subjects")
		},
	}
	app := newTestApp(t, &stubLifecycle{}, ledger)

	resp := doRequest(t, app, fiber.MethodPost, "/v1/attendance/taps", "",
		`{"card_code":"CARD-1"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
	if got := decodeError(t, resp); got.Code != "TAP_NO_ACTIVE_SESSION" {
		t.Fatalf("error code = %q", got.Code)
	}
}

func TestRecordValidationTap_PassesSessionFromPath(t *testing.T) {
	ledger := &stubLedger{
		recordValidationTapFn: func(_ context.Context, sessionID, cardCode string) (domain.AttendanceRecord, error) {
			if sessionID != "sess-7" || cardCode != "CARD-1" {
				return domain.AttendanceRecord{}, fmt.Errorf("unexpected args: %q %q", sessionID, cardCode)
			}
			return domain.AttendanceRecord{
				ID:        "rec-1",
				SessionID: sessionID,
				StudentID: "stu-1",
				Status:    domain.AttendanceStatusLate,
			}, nil
		},
	}
	app := newTestApp(t, &stubLifecycle{}, ledger)

	resp := doRequest(t, app, fiber.MethodPost, "/v1/sessions/sess-7/validation/taps", "",
		`{"card_code":"CARD-1"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var body attendanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "Tarde" {
		t.Fatalf("status = %q, want Tarde", body.Status)
	}
}

func TestInternalErrorsAreMasked(t *testing.T) {
	lifecycle := &stubLifecycle{
		listActiveFn: func(context.Context, string) ([]domain.Session, error) {
			return nil, fmt.Errorf("disk on fire")
		},
	}
	app := newTestApp(t, lifecycle, &stubLedger{})

	resp := doRequest(t, app, fiber.MethodGet, "/v1/sessions/active", signToken(t, "inst-1"), "")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusInternalServerError)
	}
	got := decodeError(t, resp)
	if got.Code != "UNKNOWN" {
		t.Fatalf("error code = %q, want UNKNOWN", got.Code)
	}
	if got.Message != "internal error" {
		t.Fatalf("message = %q, want masked message", got.Message)
	}
}
