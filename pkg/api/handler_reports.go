package api

import (
	"encoding/json"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/pipeline"
)

// reportGenerateHandler handles POST /cases/:case_uid/reports/generate.
// Drives a full pipeline run so the report section, and everything it
// draws on, reflects the case's current evidence rather than a stale
// snapshot; reportGenerateStage persists the rendered report itself.
func (s *Server) reportGenerateHandler(c *echo.Context) error {
	caseUID := c.Param("case_uid")
	traceID := contracts.MintUID("report-run")

	sc, results, err := s.runPipeline(c.Request().Context(), caseUID, traceID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reportGenerateResponse{Report: sc.Report, StageErrors: stageErrors(results)})
}

type reportGenerateResponse struct {
	Report      contracts.Report `json:"report"`
	StageErrors []string         `json:"stage_errors,omitempty"`
}

func stageErrors(results []pipeline.StageResult) []string {
	var out []string
	for _, r := range results {
		if r.Status == "error" {
			out = append(out, r.Stage+": "+r.Error)
		}
	}
	return out
}

// reportGetHandler handles GET /cases/:case_uid/reports/:report_uid,
// returning the report exactly as reportGenerateStage persisted it.
func (s *Server) reportGetHandler(c *echo.Context) error {
	rep, err := s.loadReport(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// reportJSONHandler handles GET /cases/:case_uid/reports/:report_uid/json.
// Identical payload to reportGetHandler; kept as its own route since
// spec.md names both forms explicitly.
func (s *Server) reportJSONHandler(c *echo.Context) error {
	rep, err := s.loadReport(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// reportMarkdownHandler handles GET /cases/:case_uid/reports/:report_uid/markdown.
func (s *Server) reportMarkdownHandler(c *echo.Context) error {
	rep, err := s.loadReport(c)
	if err != nil {
		return writeError(c, err)
	}
	var b strings.Builder
	for i, sec := range rep.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## " + sec.Title + "\n\n")
		b.WriteString(sec.Markdown)
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(b.String()))
}

func (s *Server) loadReport(c *echo.Context) (contracts.Report, error) {
	if s.store == nil || s.store.Actions == nil {
		return contracts.Report{}, apperrors.ErrInternal
	}
	reportUID := c.Param("report_uid")
	action, err := s.store.Actions.GetByTraceID(c.Request().Context(), reportUID)
	if err != nil {
		return contracts.Report{}, apperrors.ErrNotFound
	}
	raw, ok := action.Outputs["report_json"]
	if !ok {
		return contracts.Report{}, apperrors.ErrNotFound
	}
	var rep contracts.Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return contracts.Report{}, apperrors.ErrInternal
	}
	return rep, nil
}
