package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// pendingIdentityActionsHandler handles GET /api/entity-identity/pending,
// scoped by the required case_uid query parameter.
func (s *Server) pendingIdentityActionsHandler(c *echo.Context) error {
	if s.store == nil || s.store.Entities == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	caseUID := c.QueryParam("case_uid")
	if caseUID == "" {
		return writeError(c, apperrors.NewValidationError("case_uid", "required"))
	}
	actions, err := s.store.Entities.ListPendingIdentityActions(c.Request().Context(), caseUID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, actions)
}

// approveIdentityActionHandler handles POST /api/entity-identity/:uid/approve.
func (s *Server) approveIdentityActionHandler(c *echo.Context) error {
	return s.resolveIdentityAction(c, contracts.IdentityActionApproved)
}

// rejectIdentityActionHandler handles POST /api/entity-identity/:uid/reject.
func (s *Server) rejectIdentityActionHandler(c *echo.Context) error {
	return s.resolveIdentityAction(c, contracts.IdentityActionRejected)
}

func (s *Server) resolveIdentityAction(c *echo.Context, status contracts.EntityIdentityActionStatus) error {
	if s.store == nil || s.store.Entities == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	if err := s.store.Entities.ResolveIdentityAction(c.Request().Context(), c.Param("uid"), status); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: string(status)})
}
