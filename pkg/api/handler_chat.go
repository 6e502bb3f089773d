package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
)

type chatAskRequest struct {
	Question string `json:"question"`
	TraceID  string `json:"trace_id,omitempty"`
}

// chatAskHandler handles POST /cases/:case_uid/analysis/chat.
func (s *Server) chatAskHandler(c *echo.Context) error {
	if s.chatService == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	caseUID := c.Param("case_uid")

	var req chatAskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Question == "" {
		return writeError(c, apperrors.NewValidationError("question", "required"))
	}

	answer, err := s.chatService.Ask(c.Request().Context(), caseUID, req.Question, req.TraceID, budgetFromRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, answer)
}

// chatReplayHandler handles GET /cases/:case_uid/analysis/chat/:trace_uid.
func (s *Server) chatReplayHandler(c *echo.Context) error {
	if s.chatService == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	answer, err := s.chatService.Replay(c.Request().Context(), c.Param("trace_uid"))
	if err != nil {
		return writeError(c, apperrors.ErrNotFound)
	}
	return c.JSON(http.StatusOK, answer)
}
