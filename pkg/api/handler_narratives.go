package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/narrative"
)

// narrativesBuildHandler handles POST /cases/:case_uid/narratives/build.
func (s *Server) narrativesBuildHandler(c *echo.Context) error {
	caseUID := c.Param("case_uid")
	ctx := c.Request().Context()

	claims, err := s.store.Claims.ListByCase(ctx, caseUID, 2000)
	if err != nil {
		return writeError(c, err)
	}

	narratives, _ := narrative.BuildNarratives(caseUID, claims, narrative.Config{})
	for _, n := range narratives {
		if _, err := s.store.Narratives.Upsert(ctx, n); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(http.StatusOK, narratives)
}

// narrativesCoordinationHandler handles POST /cases/:case_uid/narratives/detect_coordination.
func (s *Server) narrativesCoordinationHandler(c *echo.Context) error {
	caseUID := c.Param("case_uid")
	ctx := c.Request().Context()

	claims, err := s.store.Claims.ListByCase(ctx, caseUID, 2000)
	if err != nil {
		return writeError(c, err)
	}
	narratives, err := s.store.Narratives.ListByCase(ctx, caseUID)
	if err != nil {
		return writeError(c, err)
	}

	signals := narrative.DetectCoordination(narrativeClaimUIDs(narratives), claims, narrative.CoordinationConfig{})
	return c.JSON(http.StatusOK, signals)
}

// narrativeTraceHandler handles POST /cases/:case_uid/narratives/:narrative_uid/trace.
func (s *Server) narrativeTraceHandler(c *echo.Context) error {
	caseUID := c.Param("case_uid")
	narrativeUID := c.Param("narrative_uid")
	ctx := c.Request().Context()

	claims, err := s.store.Claims.ListByCase(ctx, caseUID, 2000)
	if err != nil {
		return writeError(c, err)
	}
	narratives, err := s.store.Narratives.ListByCase(ctx, caseUID)
	if err != nil {
		return writeError(c, err)
	}
	uidMap := narrativeClaimUIDs(narratives)
	if _, ok := uidMap[narrativeUID]; !ok {
		return writeError(c, apperrors.ErrNotFound)
	}

	traced := narrative.TraceNarrative(narrativeUID, claims, uidMap)
	return c.JSON(http.StatusOK, traced)
}

func narrativeClaimUIDs(narratives []contracts.Narrative) map[string][]string {
	out := make(map[string][]string, len(narratives))
	for _, n := range narratives {
		out[n.UID] = n.SourceClaimUIDs
	}
	return out
}
