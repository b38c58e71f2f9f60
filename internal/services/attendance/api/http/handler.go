// Package httpapi exposes the attendance service over a JSON HTTP API.
package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/aulatap/aulatap/internal/errors"
	"github.com/aulatap/aulatap/internal/services/attendance/domain"
)

// LifecycleService is the session state-machine surface the API needs.
type LifecycleService interface {
	Start(ctx context.Context, input domain.StartInput) (domain.Session, error)
	OpenValidation(ctx context.Context, sessionID, instructorID string) (domain.Session, error)
	CloseValidation(ctx context.Context, sessionID, instructorID string) (domain.Session, error)
	Close(ctx context.Context, sessionID, instructorID string) (domain.Session, error)
	ListActive(ctx context.Context, instructorID string) ([]domain.Session, error)
}

// LedgerService is the tap-ingestion surface the API needs.
type LedgerService interface {
	RecordTap(ctx context.Context, input domain.TapInput) (domain.AttendanceRecord, error)
	RecordValidationTap(ctx context.Context, sessionID, cardCode string) (domain.AttendanceRecord, error)
}

// Handler serves the attendance HTTP API.
type Handler struct {
	lifecycle LifecycleService
	ledger    LedgerService
}

// NewHandler creates an API handler over the attendance services.
func NewHandler(lifecycle LifecycleService, ledger LedgerService) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		ledger:    ledger,
	}
}

// Register mounts the API routes on the Fiber app. Instructor routes
// require a Bearer token signed with the given secret; tap routes are
// device-authenticated upstream and carry no user token.
func (h *Handler) Register(app *fiber.App, jwtSecret []byte) {
	v1 := app.Group("/v1")
	auth := RequireAuth(jwtSecret)

	v1.Post("/sessions", auth, h.startSession)
	v1.Get("/sessions/active", auth, h.listActiveSessions)
	v1.Post("/sessions/:id/validation/open", auth, h.openValidation)
	v1.Post("/sessions/:id/validation/close", auth, h.closeValidation)
	v1.Post("/sessions/:id/close", auth, h.closeSession)

	v1.Post("/sessions/:id/validation/taps", h.recordValidationTap)
	v1.Post("/attendance/taps", h.recordTap)
}

func (h *Handler) startSession(c *fiber.Ctx) error {
	var req startSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err))
	}

	session, err := h.lifecycle.Start(c.UserContext(), domain.StartInput{
		InstructorID: instructorID(c),
		SubjectID:    req.SubjectID,
		ScheduleID:   req.ScheduleID,
		Topic:        req.Topic,
	})
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(session))
}

func (h *Handler) listActiveSessions(c *fiber.Ctx) error {
	sessions, err := h.lifecycle.ListActive(c.UserContext(), instructorID(c))
	if err != nil {
		return renderError(c, err)
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionResponse(session))
	}
	return c.JSON(fiber.Map{"sessions": out})
}

func (h *Handler) openValidation(c *fiber.Ctx) error {
	session, err := h.lifecycle.OpenValidation(c.UserContext(), c.Params("id"), instructorID(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(toSessionResponse(session))
}

func (h *Handler) closeValidation(c *fiber.Ctx) error {
	session, err := h.lifecycle.CloseValidation(c.UserContext(), c.Params("id"), instructorID(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(toSessionResponse(session))
}

func (h *Handler) closeSession(c *fiber.Ctx) error {
	session, err := h.lifecycle.Close(c.UserContext(), c.Params("id"), instructorID(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(toSessionResponse(session))
}

func (h *Handler) recordTap(c *fiber.Ctx) error {
	var req tapRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err))
	}

	record, err := h.ledger.RecordTap(c.UserContext(), domain.TapInput{
		CardCode:  req.CardCode,
		SessionID: req.SessionID,
	})
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(toAttendanceResponse(record))
}

func (h *Handler) recordValidationTap(c *fiber.Ctx) error {
	var req tapRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err))
	}

	record, err := h.ledger.RecordValidationTap(c.UserContext(), c.Params("id"), req.CardCode)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(toAttendanceResponse(record))
}
