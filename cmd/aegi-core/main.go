// AEGI Core orchestrator - provides the case-analysis HTTP/WebSocket
// API and drives the 13-stage intelligence pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aegi-platform/aegi-core/pkg/ach"
	"github.com/aegi-platform/aegi-core/pkg/api"
	"github.com/aegi-platform/aegi-core/pkg/chat"
	"github.com/aegi-platform/aegi-core/pkg/claims"
	"github.com/aegi-platform/aegi-core/pkg/config"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/database"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
	"github.com/aegi-platform/aegi-core/pkg/gdelt"
	"github.com/aegi-platform/aegi-core/pkg/graph"
	"github.com/aegi-platform/aegi-core/pkg/investigation"
	"github.com/aegi-platform/aegi-core/pkg/llmclient"
	"github.com/aegi-platform/aegi-core/pkg/masking"
	"github.com/aegi-platform/aegi-core/pkg/memory"
	"github.com/aegi-platform/aegi-core/pkg/ontology"
	"github.com/aegi-platform/aegi-core/pkg/pipeline"
	"github.com/aegi-platform/aegi-core/pkg/push"
	"github.com/aegi-platform/aegi-core/pkg/retention"
	"github.com/aegi-platform/aegi-core/pkg/slack"
	"github.com/aegi-platform/aegi-core/pkg/store"
	"github.com/aegi-platform/aegi-core/pkg/toolrunner"
	"github.com/aegi-platform/aegi-core/pkg/vectorstore"
	"github.com/aegi-platform/aegi-core/pkg/wsapi"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// pushEmbedder adapts llmclient.Client's batched, budgeted Embed to
// the single-text, budget-free shape push.Engine's semantic-match step
// needs.
type pushEmbedder struct {
	llm *llmclient.Client
}

func (p pushEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	budget := contracts.BudgetContext{DeadlineUnixMS: time.Now().Add(30 * time.Second).UnixMilli(), MaxTokens: 200}
	result, err := p.llm.Embed(ctx, budget, []string{text})
	if err != nil {
		return nil, err
	}
	if len(result.Vectors) == 0 {
		return nil, nil
	}
	return result.Vectors[0], nil
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	httpAddr := ":" + getEnv("HTTP_PORT", "8080")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	log.Println("connected to postgres")

	stores := store.NewPostgresStores(dbClient.DB())
	bus := eventbus.Get()

	vectors, err := vectorstore.Open(ctx, vectorstore.Config{
		Host:       getEnv("QDRANT_HOST", "localhost"),
		Port:       mustAtoi(getEnv("QDRANT_PORT", "6334")),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		Collection: cfg.Qdrant.Collection,
		VectorSize: cfg.Qdrant.VectorSize,
	})
	if err != nil {
		log.Fatalf("failed to open vector store: %v", err)
	}
	defer vectors.Close()

	graphStore, err := graph.NewStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.ResolveNeo4jPassword())
	if err != nil {
		log.Fatalf("failed to open graph store: %v", err)
	}

	llm := llmclient.NewClient(llmclient.Config{
		BaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		APIKey:       os.Getenv("LLM_API_KEY"),
		DefaultModel: getEnv("LLM_MODEL", "gpt-4o-mini"),
		EmbedModel:   getEnv("LLM_EMBED_MODEL", "text-embedding-3-small"),
	})

	maskingSvc := masking.NewService(masking.Config{Enabled: cfg.Masking.Enabled, PatternGroup: cfg.Masking.PatternGroup})
	ontologyReg := ontology.NewRegistry()
	achEngine := ach.NewEngine(stores.Hypotheses, stores.Assessments, llm)
	chatService := chat.NewService(stores.Claims, stores.Actions, llm, vectors, llm)
	memoryService := memory.NewService(stores.Memory, vectors, llm, llm)

	toolSvc := toolrunner.NewService(toolrunner.Config{
		AllowedDomains: cfg.ToolRunner.AllowedDomains,
		CacheTTL:       time.Duration(cfg.ToolRunner.CacheTTLSeconds) * time.Second,
	}, os.Getenv("GITHUB_TOKEN"))

	slackSvc := slack.NewService(slack.ServiceConfig{
		Token:        os.Getenv("SLACK_BOT_TOKEN"),
		Channel:      os.Getenv("SLACK_DEFAULT_CHANNEL"),
		DashboardURL: getEnv("DASHBOARD_URL", ""),
	})
	pushEngine := push.NewEngine(stores.Subscriptions, stores.EventLog, pushEmbedder{llm: llm}, push.SlackNotifier{Service: slackSvc}, cfg.PushMaxPerHour)
	pushEngine.Register(bus)

	gdeltClient := gdelt.NewHTTPClient(toolSvc, getEnv("GDELT_QUERY", ""))
	gdeltMonitor := gdelt.NewMonitor(gdeltClient, stores.GDELT, bus)
	gdeltScheduler, err := gdelt.NewScheduler(
		gdeltMonitor,
		time.Duration(cfg.GDELT.IntervalMinutes)*time.Minute,
		time.Duration(cfg.GDELT.InitialDelaySeconds)*time.Second,
		"",
		slog.Default().With("component", "gdelt_scheduler"),
	)
	if err != nil {
		log.Fatalf("failed to build gdelt scheduler: %v", err)
	}
	gdeltScheduler.Start(ctx)
	defer gdeltScheduler.Stop()

	retentionSvc := retention.NewService(retention.Config{
		Enabled:     true,
		Interval:    24 * time.Hour,
		EvidenceTTL: time.Duration(90*24) * time.Hour,
		ActionTTL:   time.Duration(365*24) * time.Hour,
	}, stores.Evidence, stores.Actions)
	retentionSvc.Start(ctx)
	defer retentionSvc.Stop()

	claimExtractor := claims.NewExtractor(llm, stores.Actions, bus)
	investigationAgent := investigation.NewAgent(llm, toolSvc, claimExtractor, stores.Investigations, bus, eventbus.Wildcard)

	tracker := pipeline.NewTracker()
	orchestrator := pipeline.NewOrchestrator(tracker)

	hub := wsapi.NewHub(chatService, []byte(os.Getenv("WS_JWT_SECRET")))

	server := api.NewServer(cfg, dbClient, stores, bus)
	server.SetACH(achEngine)
	server.SetChatService(chatService)
	server.SetMemoryService(memoryService)
	server.SetPushEngine(pushEngine)
	server.SetInvestigationAgent(investigationAgent)
	server.SetPipeline(orchestrator, tracker)
	server.SetGraph(graphStore)
	server.SetOntologyRegistry(ontologyReg)
	server.SetGDELT(gdeltMonitor, gdeltScheduler)
	server.SetPipelineDeps(vectors, llm, llm, maskingSvc)
	server.SetWebSocketHub(hub)

	go func() {
		log.Printf("http server listening on %s", httpAddr)
		if err := server.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
