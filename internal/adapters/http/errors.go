package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/osoko/wayfind/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// domainError maps core errors onto the HTTP vocabulary. Provider
// failures map to 502: the session is healthy, the upstream is not.
func domainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return errNotFound(c, "session not found")
	case errors.Is(err, domain.ErrTargetNotFound):
		return errNotFound(c, "target not found")
	case errors.Is(err, domain.ErrInvalidQuery):
		return errBadRequest(c, "query must not be empty")
	case errors.Is(err, domain.ErrInvalidStatus):
		return errBadRequest(c, "status must be success or failure")
	case errors.Is(err, domain.ErrResolution):
		return newError(c, 502, "resolution_failed", err.Error())
	case errors.Is(err, domain.ErrDiscovery):
		return newError(c, 502, "discovery_failed", err.Error())
	case errors.Is(err, domain.ErrRoute):
		return newError(c, 502, "route_failed", err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
