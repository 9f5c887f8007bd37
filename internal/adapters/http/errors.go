package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"geoscout/internal/core/domain"
)

// APIError is the structured error envelope returned by every endpoint.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, bad_gateway, etc.
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

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errBadGateway returns a 502 error.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errSearch maps a pipeline failure to its transport status: invalid
// queries are the caller's fault, an unresolved place is not found,
// collaborator failures are bad gateways, and a busy pipeline is a
// conflict.
func errSearch(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrMalformedQuery), errors.Is(err, domain.ErrUnknownTopics):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrPlaceNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrGeocodeTransport), errors.Is(err, domain.ErrGeodataTransport):
		return errBadGateway(c, err.Error())
	case errors.Is(err, domain.ErrSearchInFlight):
		return errConflict(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
