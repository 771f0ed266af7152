package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docarchive/internal/backend"
	"docarchive/internal/http/middleware"
	"docarchive/internal/query"
	"docarchive/internal/service"
	"docarchive/internal/session"
	"docarchive/internal/taxonomy"
	"docarchive/internal/upload"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_QUERY", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError translates an error returned by a service into a response.
// Backend rejections carry the backend's own message; anything unrecognised is
// logged and answered with a generic 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	var (
		rejection *backend.RejectionError
		transport *backend.TransportError
		gate      *middleware.GateError
	)

	switch {
	case errors.As(err, &gate):
		return writeError(c, gate.HTTPStatus(), gate.Code(), gate.Message())
	case errors.As(err, &rejection):
		return writeError(c, fiber.StatusUnprocessableEntity, "BACKEND_REJECTED", rejection.Message)
	case errors.As(err, &transport):
		slog.Default().Error("backend unavailable",
			slog.String("op", "handler.writeServiceError"),
			slog.String("request_id", middleware.RequestIDFrom(c)),
			slog.String("error", err.Error()),
		)
		code := "BACKEND_UNAVAILABLE"
		if errors.Is(err, backend.ErrReplyTooLarge) {
			code = "BACKEND_REPLY_TOO_LARGE"
		}
		return writeError(c, fiber.StatusBadGateway, code, transport.Error())

	case errors.Is(err, upload.ErrUnsupportedType):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", upload.UnsupportedTypeMessage)
	case errors.Is(err, upload.ErrMissingField):
		return writeError(c, fiber.StatusBadRequest, "MISSING_FIELD", err.Error())
	case errors.Is(err, upload.ErrTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
	case errors.Is(err, taxonomy.ErrOfficeMismatch):
		return writeError(c, fiber.StatusBadRequest, "OFFICE_MISMATCH", "office does not belong to the selected category")
	case errors.Is(err, query.ErrInvalidDirection), errors.Is(err, query.ErrInvalidDate), errors.Is(err, query.ErrInvalidPage):
		return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", err.Error())
	case errors.Is(err, service.ErrNameRequired):
		return writeError(c, fiber.StatusBadRequest, "NAME_REQUIRED", err.Error())
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, service.ErrUsernameRequired), errors.Is(err, service.ErrPasswordRequired), errors.Is(err, service.ErrInvalidRole):
		return writeError(c, fiber.StatusBadRequest, "INVALID_USER", err.Error())

	case errors.Is(err, service.ErrBadCredentials):
		return writeError(c, fiber.StatusUnauthorized, "BAD_CREDENTIALS", "invalid username or password")
	case errors.Is(err, session.ErrNoIdentity):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "please log in to continue")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrUserExists):
		return writeError(c, fiber.StatusConflict, "USER_EXISTS", err.Error())
	case errors.Is(err, service.ErrNoObject), errors.Is(err, service.ErrNoStore), errors.Is(err, service.ErrForeignBlob):
		return writeError(c, fiber.StatusConflict, "CONTENT_NOT_IN_STORE", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return writeError(c, fiber.StatusGatewayTimeout, "TIMEOUT", "request timed out")
	}

	slog.Default().Error("request failed",
		slog.String("op", "handler.writeServiceError"),
		slog.String("request_id", middleware.RequestIDFrom(c)),
		slog.String("error", err.Error()),
	)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var gate *middleware.GateError
		if errors.As(err, &gate) {
			return writeError(c, gate.HTTPStatus(), gate.Code(), gate.Message())
		}

		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
