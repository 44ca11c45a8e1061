package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/dwoslabs/dwos-backend/internal/handlers"
)

type RouterConfig struct {
	RAGHandler       *handlers.RAGHandler
	WorkOrderHandler *handlers.WorkOrderHandler
	AllowOrigins     []string
	TracingEnabled   bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("dwos-backend"))
	}

	// Cors
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Retrieval
	rag := router.Group("/rag")
	{
		rag.POST("/query", cfg.RAGHandler.Query)
		rag.POST("/ingest/manual", cfg.RAGHandler.IngestManual)
		rag.POST("/ingest/tickets", cfg.RAGHandler.IngestTickets)
		rag.POST("/refresh", cfg.RAGHandler.Refresh)
	}

	// Work orders
	wo := router.Group("/workorders")
	{
		wo.POST("/generate", cfg.WorkOrderHandler.Generate)
		wo.POST("/refresh", cfg.WorkOrderHandler.Refresh)
		wo.GET("/queue", cfg.WorkOrderHandler.Queue)
		wo.GET("/completed", cfg.WorkOrderHandler.Completed)
		wo.GET("/highest-priority", cfg.WorkOrderHandler.HighestPriority)
		wo.GET("/:id", cfg.WorkOrderHandler.Get)
		wo.POST("/:id/start", cfg.WorkOrderHandler.Start)
		wo.POST("/:id/steps/:index", cfg.WorkOrderHandler.UpdateStep)
		wo.POST("/:id/notes", cfg.WorkOrderHandler.AddNote)
		wo.POST("/:id/complete", cfg.WorkOrderHandler.Complete)
	}

	return router
}
