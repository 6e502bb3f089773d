package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
)

// ErrorEnvelope is the uniform error body every non-2xx AEGI Core
// response returns.
type ErrorEnvelope struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// writeError maps a service-layer error to the {error_code, message,
// details} envelope and status code apperrors assigns it, and writes it
// as the response. Unrecognized errors are logged and surfaced as a
// generic internal_error rather than leaking internals.
func writeError(c *echo.Context, err error) error {
	status := apperrors.HTTPStatus(err)
	code := apperrors.ErrorCode(err)

	if status == http.StatusInternalServerError {
		slog.Error("unhandled api error", "error", err)
	}

	env := ErrorEnvelope{ErrorCode: code, Message: err.Error()}
	if ve, ok := err.(*apperrors.ValidationError); ok {
		env.Details = map[string]any{"field": ve.Field}
	}
	return c.JSON(status, env)
}

// badRequest reports a malformed request (bad JSON, missing path param)
// that never reached service-layer validation.
func badRequest(c *echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorEnvelope{ErrorCode: "bad_request", Message: message})
}
