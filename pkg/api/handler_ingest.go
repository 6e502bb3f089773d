package api

import (
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/claims"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

type ingestDocumentRequest struct {
	CaseUID     string `json:"case_uid"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
}

type ingestDocumentResponse struct {
	Artifact contracts.ArtifactIdentity `json:"artifact"`
	Version  contracts.ArtifactVersion  `json:"version"`
	Claims   []contracts.SourceClaim    `json:"claims"`
	Degraded bool                       `json:"degraded"`
}

// ingestDocumentHandler handles POST /ingest/document: registers (or
// reuses) the artifact identity for the given URL, appends a new
// version holding the supplied text as a single chunk, and runs claim
// extraction against it.
func (s *Server) ingestDocumentHandler(c *echo.Context) error {
	if s.store == nil || s.store.Artifacts == nil || s.store.Chunks == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	var req ingestDocumentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.CaseUID == "" || req.URL == "" || req.Text == "" {
		return writeError(c, apperrors.NewValidationError("case_uid/url/text", "all three are required"))
	}
	ctx := c.Request().Context()

	artifact, found, err := s.store.Artifacts.GetIdentityByURL(ctx, req.CaseUID, req.URL)
	if err != nil {
		return writeError(c, err)
	}
	if !found {
		artifact, err = s.store.Artifacts.UpsertIdentity(ctx, contracts.ArtifactIdentity{
			UID: contracts.MintUID("artifact"), CaseUID: req.CaseUID, URL: req.URL, CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return writeError(c, err)
		}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	version, err := s.store.Artifacts.AddVersion(ctx, contracts.ArtifactVersion{
		UID: contracts.MintUID("version"), ArtifactUID: artifact.UID, StorageRef: req.URL,
		ContentType: contentType, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return writeError(c, err)
	}

	chunk, err := s.store.Chunks.Create(ctx, contracts.Chunk{
		UID: contracts.MintUID("chunk"), VersionUID: version.UID, CaseUID: req.CaseUID,
		Ordinal: 0, Text: req.Text, AnchorHealthy: true, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return writeError(c, err)
	}

	resp := ingestDocumentResponse{Artifact: artifact, Version: version}
	if s.llm != nil {
		extractor := claims.NewExtractor(s.llm, s.store.Actions, s.bus)
		budget := contracts.BudgetContext{DeadlineUnixMS: time.Now().Add(60 * time.Second).UnixMilli(), MaxTokens: 2000}
		extracted, degraded, err := extractor.Extract(ctx, req.CaseUID, chunk, uuid.NewString(), budget)
		if err != nil {
			return writeError(c, err)
		}
		resp.Degraded = degraded != nil
		for _, claim := range extracted {
			stored, err := s.store.Claims.Create(ctx, claim)
			if err != nil {
				return writeError(c, err)
			}
			resp.Claims = append(resp.Claims, stored)
		}
	}
	return c.JSON(http.StatusCreated, resp)
}

type ingestParseRequest struct {
	CaseUID    string `json:"case_uid"`
	VersionUID string `json:"version_uid"`
	Text       string `json:"text"`
}

// ingestParseHandler handles POST /ingest/parse: splits raw text into
// paragraph-delimited chunks under an already-registered artifact
// version, without running claim extraction. Used to stage large
// documents before selectively extracting from individual chunks.
func (s *Server) ingestParseHandler(c *echo.Context) error {
	if s.store == nil || s.store.Chunks == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	var req ingestParseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.CaseUID == "" || req.VersionUID == "" || req.Text == "" {
		return writeError(c, apperrors.NewValidationError("case_uid/version_uid/text", "all three are required"))
	}
	ctx := c.Request().Context()

	var chunks []contracts.Chunk
	for i, para := range strings.Split(req.Text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunk, err := s.store.Chunks.Create(ctx, contracts.Chunk{
			UID: contracts.MintUID("chunk"), VersionUID: req.VersionUID, CaseUID: req.CaseUID,
			Ordinal: i, Text: para, AnchorHealthy: true, CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return writeError(c, err)
		}
		chunks = append(chunks, chunk)
	}
	return c.JSON(http.StatusCreated, chunks)
}
