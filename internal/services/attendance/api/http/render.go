package httpapi

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/aulatap/aulatap/internal/errors"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// renderError writes a coded error as the API's JSON error envelope.
// Internal failures are logged and masked.
func renderError(c *fiber.Ctx, err error) error {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("internal error on %s %s: %v", c.Method(), c.Path(), err)
		message = "internal error"
	}

	return c.Status(status).JSON(errorResponse{Error: errorBody{
		Code:    string(code),
		Message: message,
		Details: apperrors.GetMetadata(err),
	}})
}
