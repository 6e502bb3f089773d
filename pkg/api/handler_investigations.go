package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// listInvestigationsHandler handles GET /api/investigations, filtering
// the active set in memory by the optional case_uid/status query
// parameters since InvestigationStore exposes no native filtered list.
func (s *Server) listInvestigationsHandler(c *echo.Context) error {
	if s.store == nil || s.store.Investigations == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	all, err := s.store.Investigations.ListActive(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	caseUID := c.QueryParam("case_uid")
	status := c.QueryParam("status")
	out := make([]contracts.Investigation, 0, len(all))
	for _, inv := range all {
		if caseUID != "" && inv.CaseUID != caseUID {
			continue
		}
		if status != "" && string(inv.Status) != status {
			continue
		}
		out = append(out, inv)
	}
	return c.JSON(http.StatusOK, out)
}

// getInvestigationHandler handles GET /api/investigations/:uid.
func (s *Server) getInvestigationHandler(c *echo.Context) error {
	if s.store == nil || s.store.Investigations == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	inv, err := s.store.Investigations.Get(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return writeError(c, apperrors.ErrNotFound)
	}
	return c.JSON(http.StatusOK, inv)
}

// cancelInvestigationHandler handles POST /api/investigations/:uid/cancel.
func (s *Server) cancelInvestigationHandler(c *echo.Context) error {
	if s.investigate == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	if !s.investigate.Cancel(c.Param("uid"), extractAuthor(c)) {
		return writeError(c, apperrors.ErrNotFound)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "cancellation requested"})
}
