package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/handwerkml/pricing-backend/internal/handlers"
	"github.com/handwerkml/pricing-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	PredictionHandler *handlers.PredictionHandler
	SimilarityHandler *handlers.SimilarityHandler
	ConfidenceHandler *handlers.ConfidenceHandler
	TrainingHandler   *handlers.TrainingHandler
	JobHandler        *handlers.JobHandler
	ProjectHandler    *handlers.ProjectHandler
	MaterialHandler   *handlers.MaterialHandler
	SettingsHandler   *handlers.SettingsHandler
	AuditHandler      *handlers.AuditHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api/v1")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Predictions
	api.POST("/predictions/predict", cfg.PredictionHandler.Predict)
	api.POST("/predictions/:id/feedback", cfg.PredictionHandler.Feedback)
	api.GET("/predictions/accuracy", cfg.PredictionHandler.Accuracy)

	// Similarity
	api.POST("/similarity/find", cfg.SimilarityHandler.FindSimilar)

	// Confidence
	api.POST("/confidence/calculate", cfg.ConfidenceHandler.Calculate)

	// Model
	api.POST("/training/train", cfg.TrainingHandler.Train)

	// Jobs
	api.GET("/jobs/:id", cfg.JobHandler.GetJob)
	api.POST("/jobs/backfill", cfg.JobHandler.EnqueueBackfill)

	// Projects
	api.POST("/projects", cfg.ProjectHandler.Create)
	api.GET("/projects", cfg.ProjectHandler.List)
	api.GET("/projects/recent", cfg.ProjectHandler.Recent)
	api.GET("/projects/statistics", cfg.ProjectHandler.Statistics)
	api.GET("/projects/by-type/:type", cfg.ProjectHandler.ByType)
	api.GET("/projects/:id", cfg.ProjectHandler.Get)
	api.PATCH("/projects/:id", cfg.ProjectHandler.Update)
	api.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
	api.POST("/projects/:id/finalize", cfg.ProjectHandler.Finalize)
	api.POST("/projects/:id/materials", cfg.ProjectHandler.AddMaterial)

	// Materials
	api.POST("/materials", cfg.MaterialHandler.Create)
	api.GET("/materials", cfg.MaterialHandler.List)
	api.GET("/materials/prices/current", cfg.MaterialHandler.CurrentPrices)
	api.GET("/materials/:id", cfg.MaterialHandler.Get)
	api.POST("/materials/:id/prices", cfg.MaterialHandler.AddPrice)
	api.GET("/materials/:id/prices", cfg.MaterialHandler.Prices)

	// Settings
	api.GET("/settings/current", cfg.SettingsHandler.Current)
	api.PUT("/settings/current", cfg.SettingsHandler.Update)

	// Audit trail
	api.GET("/audit/recent", cfg.AuditHandler.Recent)
	api.GET("/audit/by-record", cfg.AuditHandler.ByRecord)

	return router
}
