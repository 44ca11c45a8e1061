package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/dwoslabs/dwos-backend/internal/clients/jira"
	"github.com/dwoslabs/dwos-backend/internal/clients/nim"
	"github.com/dwoslabs/dwos-backend/internal/db"
	"github.com/dwoslabs/dwos-backend/internal/embedding"
	"github.com/dwoslabs/dwos-backend/internal/handlers"
	"github.com/dwoslabs/dwos-backend/internal/ingestion/chunker"
	"github.com/dwoslabs/dwos-backend/internal/observability"
	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/repos"
	"github.com/dwoslabs/dwos-backend/internal/retrieval"
	"github.com/dwoslabs/dwos-backend/internal/server"
	"github.com/dwoslabs/dwos-backend/internal/services"
	"github.com/dwoslabs/dwos-backend/internal/vectorindex"
)

type App struct {
	Log          *logger.Logger
	Cfg          Config
	Router       *gin.Engine
	Store        *services.WorkOrderStore
	Ingest       *services.IngestService
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "dwos-backend",
		Environment: logMode,
	})

	// Persistence is optional. The in-memory store is authoritative either way.
	var workOrderRepo repos.WorkOrderRepo
	if cfg.PersistenceEnabled {
		sqliteService, dbErr := db.NewSQLiteService(log)
		if dbErr != nil {
			log.Warn("SQLite init failed, running without persistence", "error", dbErr)
		} else if migErr := sqliteService.AutoMigrateAll(); migErr != nil {
			log.Warn("SQLite migration failed, running without persistence", "error", migErr)
		} else {
			workOrderRepo = repos.NewWorkOrderRepo(sqliteService.DB(), log)
		}
	}

	// Clients. A missing NIM key engages the lexical fallback; a missing Jira
	// configuration disables tracker sync but not the rest of the surface.
	var generator retrieval.Generator
	var embedder embedding.Embedder
	nimClient, nimErr := nim.NewClient(log)
	if nimErr != nil {
		log.Warn("NIM client unavailable, using lexical embedding fallback", "error", nimErr)
		embedder = embedding.NewLexicalEmbedder(cfg.LexicalDimension)
	} else {
		generator = nimClient
		remote, remErr := embedding.NewRemoteEmbedder(nimClient, cfg.EmbedDimension)
		if remErr != nil {
			return nil, fmt.Errorf("init remote embedder: %w", remErr)
		}
		embedder = remote
	}

	var tracker services.TrackerClient
	jiraClient, jiraErr := jira.NewClient(log)
	if jiraErr != nil {
		log.Warn("Jira client unavailable, tracker sync disabled", "error", jiraErr)
	} else {
		tracker = jiraClient
	}

	// Core wiring.
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}
	index := vectorindex.New()

	ingestService, err := services.NewIngestService(log, ch, embedder, index)
	if err != nil {
		return nil, fmt.Errorf("init ingest service: %w", err)
	}
	agent, err := retrieval.NewAgent(log, generator, embedder, index, cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("init retrieval agent: %w", err)
	}

	store := services.NewWorkOrderStore(log, tracker, workOrderRepo, cfg.StartTransition, cfg.CompleteTransition)
	if err := store.Load(context.Background()); err != nil {
		log.Warn("Failed to reload persisted work orders", "error", err)
	}

	workOrderGen, err := services.NewWorkOrderGenerator(log, agent, store)
	if err != nil {
		return nil, fmt.Errorf("init work order generator: %w", err)
	}
	queue := services.NewPriorityQueue()

	// Handlers and router.
	ragHandler := handlers.NewRAGHandler(agent, ingestService, store)
	workOrderHandler := handlers.NewWorkOrderHandler(workOrderGen, store, queue)
	router := server.NewRouter(server.RouterConfig{
		RAGHandler:       ragHandler,
		WorkOrderHandler: workOrderHandler,
		AllowOrigins:     cfg.AllowOrigins,
		TracingEnabled:   otelShutdown != nil,
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		Router:       router,
		Store:        store,
		Ingest:       ingestService,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
