package errors

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Authentication errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Session lifecycle errors
	CodeSessionNotFound     Code = "SESSION_NOT_FOUND"
	CodeSessionInvalidState Code = "SESSION_INVALID_STATE"
	CodeActiveSessionExists Code = "ACTIVE_SESSION_EXISTS"

	// Ownership errors
	CodeSubjectNotFound          Code = "SUBJECT_NOT_FOUND"
	CodeSubjectOwnershipRequired Code = "SUBJECT_OWNERSHIP_REQUIRED"
	CodeScheduledClassNotFound   Code = "SCHEDULED_CLASS_NOT_FOUND"

	// Tap/ledger errors
	CodeStudentNotFound     Code = "STUDENT_NOT_FOUND"
	CodeStudentNotEnrolled  Code = "STUDENT_NOT_ENROLLED"
	CodeTapNoActiveSession  Code = "TAP_NO_ACTIVE_SESSION"
	CodeTapAmbiguousSession Code = "TAP_AMBIGUOUS_SESSION"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - business-rule validation failures, bad input
	case CodeStudentNotEnrolled,
		CodeTapNoActiveSession,
		CodeTapAmbiguousSession,
		CodeInvalidArgument:
		return http.StatusBadRequest

	// Unauthorized - missing or invalid credentials
	case CodeUnauthenticated:
		return http.StatusUnauthorized

	// Forbidden - caller does not own the resource
	case CodeSubjectOwnershipRequired:
		return http.StatusForbidden

	// Not found - resource doesn't exist
	case CodeSessionNotFound,
		CodeSubjectNotFound,
		CodeScheduledClassNotFound,
		CodeStudentNotFound:
		return http.StatusNotFound

	// Conflict - state doesn't allow operation
	case CodeSessionInvalidState,
		CodeActiveSessionExists:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
// Returns nil if the error is not a domain error or has no metadata.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
