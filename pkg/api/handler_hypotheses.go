package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/ach"
	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

type initializePriorsRequest struct {
	Labels []string `json:"labels"`
}

// initializePriorsHandler handles POST /cases/:case_uid/hypotheses/initialize-priors.
func (s *Server) initializePriorsHandler(c *echo.Context) error {
	caseUID := c.Param("case_uid")
	var req initializePriorsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if len(req.Labels) == 0 {
		return writeError(c, apperrors.NewValidationError("labels", "at least one hypothesis label is required"))
	}

	hypotheses, err := ach.InitializePriors(c.Request().Context(), s.store.Hypotheses, caseUID, req.Labels)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, hypotheses)
}

// recalculateHandler handles POST /cases/:case_uid/hypotheses/recalculate.
func (s *Server) recalculateHandler(c *echo.Context) error {
	if s.ach == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	caseUID := c.Param("case_uid")
	posteriors, err := s.ach.Recalculate(c.Request().Context(), caseUID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, posteriors)
}

type diagnosticityRequest struct {
	Likelihoods map[string]float64 `json:"likelihoods"`
}

// diagnosticityHandler handles POST /cases/:case_uid/hypotheses/diagnosticity.
func (s *Server) diagnosticityHandler(c *echo.Context) error {
	var req diagnosticityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, ach.Diagnosticity(req.Likelihoods))
}

type overrideAssessmentRequest struct {
	HypothesisUID string                     `json:"hypothesis_uid"`
	Relation      contracts.EvidenceRelation `json:"relation"`
	Strength      float64                    `json:"strength"`
}

// overrideAssessmentHandler handles PUT /cases/:case_uid/evidence-assessments/:assessment_uid.
// The path segment identifies the evidence the override applies to; the
// assessment row itself is upserted by (hypothesis_uid, evidence_uid).
func (s *Server) overrideAssessmentHandler(c *echo.Context) error {
	if s.ach == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	caseUID := c.Param("case_uid")
	evidenceUID := c.Param("assessment_uid")

	var req overrideAssessmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.HypothesisUID == "" {
		return writeError(c, apperrors.NewValidationError("hypothesis_uid", "required"))
	}

	assessment, err := s.ach.OverrideAssessment(c.Request().Context(), caseUID, req.HypothesisUID, evidenceUID, req.Relation, req.Strength)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, assessment)
}

func budgetFromRequest(c *echo.Context) contracts.BudgetContext {
	return contracts.BudgetContext{DeadlineUnixMS: time.Now().Add(90 * time.Second).UnixMilli(), MaxTokens: 2000}
}
