package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
)

type gdeltStatusResponse struct {
	Running  bool   `json:"running"`
	LastPoll string `json:"last_poll,omitempty"`
	NextPoll string `json:"next_poll,omitempty"`
}

// gdeltStatusHandler handles GET /gdelt/status.
func (s *Server) gdeltStatusHandler(c *echo.Context) error {
	if s.gdeltSched == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	resp := gdeltStatusResponse{Running: s.gdeltSched.IsRunning()}
	if last := s.gdeltSched.LastPoll(); !last.IsZero() {
		resp.LastPoll = last.UTC().Format("2006-01-02T15:04:05Z")
	}
	if next := s.gdeltSched.NextPoll(); !next.IsZero() {
		resp.NextPoll = next.UTC().Format("2006-01-02T15:04:05Z")
	}
	return c.JSON(http.StatusOK, resp)
}

type gdeltPollResponse struct {
	EventsIngested int `json:"events_ingested"`
}

// gdeltPollHandler handles POST /gdelt/poll, triggering an immediate
// out-of-band poll alongside the scheduler's own cadence.
func (s *Server) gdeltPollHandler(c *echo.Context) error {
	if s.gdeltMonitor == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	n, err := s.gdeltMonitor.Poll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, gdeltPollResponse{EventsIngested: n})
}
