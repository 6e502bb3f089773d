package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/memory"
)

// listMemoryHandler handles GET /api/memory?case_uid=...
func (s *Server) listMemoryHandler(c *echo.Context) error {
	if s.store == nil || s.store.Memory == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	caseUID := c.QueryParam("case_uid")
	if caseUID == "" {
		return writeError(c, apperrors.NewValidationError("case_uid", "required"))
	}
	records, err := s.store.Memory.ListByCase(c.Request().Context(), caseUID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

type memoryOutcomeRequest struct {
	CaseUID string  `json:"case_uid"`
	Outcome float64 `json:"outcome"`
	Lessons string  `json:"lessons,omitempty"`
}

// memoryOutcomeHandler handles POST /api/memory/:uid/outcome.
func (s *Server) memoryOutcomeHandler(c *echo.Context) error {
	if s.memory == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	var req memoryOutcomeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.CaseUID == "" {
		return writeError(c, apperrors.NewValidationError("case_uid", "required"))
	}

	record, err := s.memory.UpdateOutcome(c.Request().Context(), req.CaseUID, c.Param("uid"), req.Outcome, req.Lessons)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// memoryPatternsHandler handles GET /api/memory/patterns?case_uid=...
func (s *Server) memoryPatternsHandler(c *echo.Context) error {
	if s.store == nil || s.store.Memory == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	caseUID := c.QueryParam("case_uid")
	if caseUID == "" {
		return writeError(c, apperrors.NewValidationError("case_uid", "required"))
	}
	records, err := s.store.Memory.ListByCase(c.Request().Context(), caseUID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, memory.PatternStats(records))
}

// memoryRecallHandler handles GET /api/memory/recall?scenario=...&limit=...
func (s *Server) memoryRecallHandler(c *echo.Context) error {
	if s.memory == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	scenario := c.QueryParam("scenario")
	if scenario == "" {
		return writeError(c, apperrors.NewValidationError("scenario", "required"))
	}
	limit := 5
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	budget := budgetFromRequest(c)
	results, err := s.memory.Recall(c.Request().Context(), scenario, limit, budget)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}
