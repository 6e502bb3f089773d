package api

import (
	"encoding/json"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/ontology"
)

// ontologyUpgradeHandler handles POST /cases/:case_uid/ontology/upgrade.
// The request body is the new OntologyVersion (or its legacy
// list-of-names shorthand); the case UID scopes the operation only in
// the audit trail, since ontology versions are process-global.
func (s *Server) ontologyUpgradeHandler(c *echo.Context) error {
	if s.ontologyReg == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	var body json.RawMessage
	if err := c.Bind(&body); err != nil {
		return badRequest(c, err.Error())
	}

	version, err := s.ontologyReg.Load(body)
	if err != nil {
		return writeError(c, apperrors.NewValidationError("body", err.Error()))
	}
	return c.JSON(http.StatusCreated, version)
}

// ontologyCompatibilityHandler handles
// GET /cases/:case_uid/ontology/:version/compatibility_report.
// Diffs the requested version against the one named by the "from"
// query parameter, defaulting to "v1".
func (s *Server) ontologyCompatibilityHandler(c *echo.Context) error {
	if s.ontologyReg == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	toVersion := c.Param("version")
	fromVersion := c.QueryParam("from")
	if fromVersion == "" {
		fromVersion = "v1"
	}

	from, ok := s.ontologyReg.Get(fromVersion)
	if !ok {
		return writeError(c, apperrors.ErrNotFound)
	}
	to, ok := s.ontologyReg.Get(toVersion)
	if !ok {
		return writeError(c, apperrors.ErrNotFound)
	}

	report := ontology.Diff(from, to)
	return c.JSON(http.StatusOK, report)
}
