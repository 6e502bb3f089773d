// Package api provides the HTTP and WebSocket surface for AEGI Core.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/aegi-platform/aegi-core/pkg/ach"
	"github.com/aegi-platform/aegi-core/pkg/chat"
	"github.com/aegi-platform/aegi-core/pkg/config"
	"github.com/aegi-platform/aegi-core/pkg/database"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
	"github.com/aegi-platform/aegi-core/pkg/gdelt"
	"github.com/aegi-platform/aegi-core/pkg/graph"
	"github.com/aegi-platform/aegi-core/pkg/investigation"
	"github.com/aegi-platform/aegi-core/pkg/memory"
	"github.com/aegi-platform/aegi-core/pkg/ontology"
	"github.com/aegi-platform/aegi-core/pkg/pipeline"
	"github.com/aegi-platform/aegi-core/pkg/push"
	"github.com/aegi-platform/aegi-core/pkg/report"
	"github.com/aegi-platform/aegi-core/pkg/store"
	"github.com/aegi-platform/aegi-core/pkg/vectorstore"
	"github.com/aegi-platform/aegi-core/pkg/version"
	"github.com/aegi-platform/aegi-core/pkg/wsapi"
)

// Server is AEGI Core's HTTP API server, wiring every domain service
// behind Echo v5 routes.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg   *config.Config
	db    *database.Client
	store *store.Stores
	bus   *eventbus.Bus

	ach          *ach.Engine
	chatService  *chat.Service
	memory       *memory.Service
	push         *push.Engine
	investigate  *investigation.Agent
	orchestrator *pipeline.Orchestrator
	tracker      *pipeline.Tracker
	graph        *graph.Store
	ontologyReg  *ontology.Registry
	gdeltMonitor *gdelt.Monitor
	gdeltSched   *gdelt.Scheduler
	ws           *wsapi.Hub

	vectors  *vectorstore.Store
	llm      pipeline.StructuredInvoker
	embedder pipeline.Embedder
	masker   report.Masker
}

// NewServer wires an Echo instance with every AEGI Core route against
// the supplied store/bus handles, which must be non-nil.
func NewServer(cfg *config.Config, db *database.Client, stores *store.Stores, bus *eventbus.Bus) *Server {
	e := echo.New()
	e.Use(middleware.BodyLimit(4 * 1024 * 1024))
	e.Use(securityHeaders())

	s := &Server{echo: e, cfg: cfg, db: db, store: stores, bus: bus}
	s.setupRoutes()
	return s
}

func (s *Server) SetACH(engine *ach.Engine)                 { s.ach = engine }
func (s *Server) SetChatService(svc *chat.Service)          { s.chatService = svc }
func (s *Server) SetMemoryService(svc *memory.Service)      { s.memory = svc }
func (s *Server) SetPushEngine(engine *push.Engine)         { s.push = engine }
func (s *Server) SetInvestigationAgent(a *investigation.Agent) { s.investigate = a }
func (s *Server) SetPipeline(o *pipeline.Orchestrator, t *pipeline.Tracker) {
	s.orchestrator = o
	s.tracker = t
}
// SetPipelineDeps wires the handles reportGenerateHandler and
// ingestDocumentHandler need to build a pipeline.StageContext and drive
// a full pipeline run on demand, outside the scheduled/event-triggered
// paths cmd/ wires through the orchestrator directly.
func (s *Server) SetPipelineDeps(vectors *vectorstore.Store, llm pipeline.StructuredInvoker, embedder pipeline.Embedder, masker report.Masker) {
	s.vectors = vectors
	s.llm = llm
	s.embedder = embedder
	s.masker = masker
}

func (s *Server) SetGraph(g *graph.Store)                     { s.graph = g }
func (s *Server) SetOntologyRegistry(r *ontology.Registry)    { s.ontologyReg = r }
func (s *Server) SetGDELT(m *gdelt.Monitor, sch *gdelt.Scheduler) {
	s.gdeltMonitor = m
	s.gdeltSched = sch
}

// SetWebSocketHub wires the chat-streaming hub and registers its route.
// Called after NewServer so /ws is grouped with the rest of /api.
func (s *Server) SetWebSocketHub(hub *wsapi.Hub) {
	s.ws = hub
	s.echo.GET("/ws", func(c *echo.Context) error {
		return hub.ServeHTTP(c)
	})
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)

	cases := s.echo.Group("/cases/:case_uid")

	cases.POST("/hypotheses/initialize-priors", s.initializePriorsHandler)
	cases.POST("/hypotheses/recalculate", s.recalculateHandler)
	cases.POST("/hypotheses/diagnosticity", s.diagnosticityHandler)
	cases.PUT("/evidence-assessments/:assessment_uid", s.overrideAssessmentHandler)

	cases.POST("/analysis/chat", s.chatAskHandler)
	cases.GET("/analysis/chat/:trace_uid", s.chatReplayHandler)

	cases.POST("/kg/build_from_assertions", s.kgBuildHandler)
	cases.POST("/kg/disambiguate", s.kgDisambiguateHandler)

	cases.POST("/ontology/upgrade", s.ontologyUpgradeHandler)
	cases.GET("/ontology/:version/compatibility_report", s.ontologyCompatibilityHandler)

	cases.POST("/narratives/build", s.narrativesBuildHandler)
	cases.POST("/narratives/detect_coordination", s.narrativesCoordinationHandler)
	cases.POST("/narratives/:narrative_uid/trace", s.narrativeTraceHandler)

	cases.POST("/reports/generate", s.reportGenerateHandler)
	cases.GET("/reports/:report_uid", s.reportGetHandler)
	cases.GET("/reports/:report_uid/markdown", s.reportMarkdownHandler)
	cases.GET("/reports/:report_uid/json", s.reportJSONHandler)

	v1 := s.echo.Group("")
	v1.POST("/ingest/document", s.ingestDocumentHandler)
	v1.POST("/ingest/parse", s.ingestParseHandler)

	v1.GET("/api/investigations", s.listInvestigationsHandler)
	v1.GET("/api/investigations/:uid", s.getInvestigationHandler)
	v1.POST("/api/investigations/:uid/cancel", s.cancelInvestigationHandler)

	v1.POST("/subscriptions", s.createSubscriptionHandler)
	v1.GET("/subscriptions", s.listSubscriptionsHandler)
	v1.PATCH("/subscriptions/:uid", s.patchSubscriptionHandler)
	v1.DELETE("/subscriptions/:uid", s.deleteSubscriptionHandler)

	v1.GET("/api/entity-identity/pending", s.pendingIdentityActionsHandler)
	v1.POST("/api/entity-identity/:uid/approve", s.approveIdentityActionHandler)
	v1.POST("/api/entity-identity/:uid/reject", s.rejectIdentityActionHandler)

	v1.GET("/api/memory", s.listMemoryHandler)
	v1.POST("/api/memory/:uid/outcome", s.memoryOutcomeHandler)
	v1.GET("/api/memory/patterns", s.memoryPatternsHandler)
	v1.GET("/api/memory/recall", s.memoryRecallHandler)

	v1.GET("/gdelt/status", s.gdeltStatusHandler)
	v1.POST("/gdelt/poll", s.gdeltPollHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.db.DB())
	status := http.StatusOK
	resp := &HealthResponse{Status: "healthy", Version: version.Full(), Database: dbHealth}
	if err != nil {
		status = http.StatusServiceUnavailable
		resp.Status = "unhealthy"
	}
	return c.JSON(status, resp)
}
