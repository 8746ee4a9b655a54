package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"attachapi/internal/http/middleware"
	"attachapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
	// RequiresOtp marks step-up rejections so clients know to re-submit
	// with a one-time code rather than treat the request as failed.
	RequiresOtp bool `json:"requiresOtp,omitempty"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "NOT_FOUND", "FILE_TOO_LARGE")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeOtpRequired is the structured step-up rejection. The flag lets clients
// distinguish "collect a code and retry" from a plain authentication failure.
func writeOtpRequired(c *fiber.Ctx) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    "OTP_REQUIRED",
			Message: "a one-time code is required for this operation",
		},
		RequiresOtp: true,
	}
	return c.Status(fiber.StatusUnauthorized).JSON(res)
}

// writeServiceError translates service sentinels into HTTP error responses.
// Client-facing messages stay generic; detail lives in the audit trail.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	case errors.Is(err, service.ErrUnsupportedType):
		return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "file type is not allowed")
	case errors.Is(err, service.ErrTypeMismatch):
		return writeError(c, fiber.StatusUnsupportedMediaType, "TYPE_MISMATCH", "declared content type does not match file content")
	case errors.Is(err, service.ErrFileTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the maximum allowed size")
	case errors.Is(err, service.ErrDuplicate):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_FILE", "identical file content already uploaded")
	case errors.Is(err, service.ErrInfected):
		return writeError(c, fiber.StatusUnprocessableEntity, "FILE_REJECTED", "file rejected by security scanning")
	case errors.Is(err, service.ErrScanUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "SCAN_UNAVAILABLE", "security scanning is temporarily unavailable, retry later")
	case errors.Is(err, service.ErrIntegrity):
		return writeError(c, fiber.StatusInternalServerError, "INTEGRITY_ERROR", "stored content failed verification")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "attachment not found")
	case errors.Is(err, service.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "operation not permitted")
	case errors.Is(err, service.ErrOtpRequired):
		return writeOtpRequired(c)
	case errors.Is(err, service.ErrOtpInvalid):
		return writeError(c, fiber.StatusUnauthorized, "OTP_INVALID", "one-time code rejected")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body exceeds the maximum allowed size")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
