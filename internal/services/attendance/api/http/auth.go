package httpapi

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/aulatap/aulatap/internal/errors"
)

const instructorIDKey = "instructor_id"

// RequireAuth verifies the Bearer token on every request and stores the
// authenticated instructor id in the request locals. Tokens must be
// HS256-signed with the shared secret and carry the instructor id in the
// sub claim.
func RequireAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			return renderError(c, apperrors.New(apperrors.CodeUnauthenticated, "missing bearer token"))
		}

		token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return renderError(c, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid bearer token", err))
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			return renderError(c, apperrors.New(apperrors.CodeUnauthenticated, "token is missing a subject"))
		}

		c.Locals(instructorIDKey, subject)
		return c.Next()
	}
}

func instructorID(c *fiber.Ctx) string {
	value, _ := c.Locals(instructorIDKey).(string)
	return value
}
