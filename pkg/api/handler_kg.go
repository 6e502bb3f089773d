package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/disambiguate"
	"github.com/aegi-platform/aegi-core/pkg/graph"
)

type kgBuildResponse struct {
	Action any      `json:"action"`
	Errors []string `json:"errors,omitempty"`
}

// kgBuildHandler handles POST /cases/:case_uid/kg/build_from_assertions.
// Projects the case's already-resolved entities and relation facts into
// the graph store against the requested (or default "v1") ontology
// version.
func (s *Server) kgBuildHandler(c *echo.Context) error {
	if s.graph == nil || s.ontologyReg == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	caseUID := c.Param("case_uid")
	ctx := c.Request().Context()

	version := c.QueryParam("ontology_version")
	if version == "" {
		version = "v1"
	}

	entities, err := s.store.Entities.ListByCase(ctx, caseUID)
	if err != nil {
		return writeError(c, err)
	}
	relations, err := s.store.RelationFacts.ListByCase(ctx, caseUID)
	if err != nil {
		return writeError(c, err)
	}

	action, errs := graph.BuildFromAssertions(ctx, s.ontologyReg, s.graph, caseUID, version, entities, relations)
	resp := kgBuildResponse{Action: action}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, e.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// kgDisambiguateHandler handles POST /cases/:case_uid/kg/disambiguate.
func (s *Server) kgDisambiguateHandler(c *echo.Context) error {
	caseUID := c.Param("case_uid")
	ctx := c.Request().Context()

	entities, err := s.store.Entities.ListByCase(ctx, caseUID)
	if err != nil {
		return writeError(c, err)
	}

	result := disambiguate.Disambiguate(ctx, caseUID, entities, nil, "")
	if s.store.Actions != nil {
		_ = s.store.Actions.RecordAction(ctx, result.Action)
	}
	return c.JSON(http.StatusOK, result)
}
