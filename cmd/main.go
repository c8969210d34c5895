package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/handwerkml/pricing-backend/internal/clients/redis"
	"github.com/handwerkml/pricing-backend/internal/db"
	"github.com/handwerkml/pricing-backend/internal/handlers"
	"github.com/handwerkml/pricing-backend/internal/jobs"
	"github.com/handwerkml/pricing-backend/internal/jobs/pipeline"
	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/middleware"
	"github.com/handwerkml/pricing-backend/internal/ml/embeddings"
	"github.com/handwerkml/pricing-backend/internal/ml/similarity"
	"github.com/handwerkml/pricing-backend/internal/platform/qdrant"
	"github.com/handwerkml/pricing-backend/internal/platform/vecstore"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/server"
	"github.com/handwerkml/pricing-backend/internal/services"
	"github.com/handwerkml/pricing-backend/internal/types"
	"github.com/handwerkml/pricing-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	embeddingURL := utils.GetEnv("EMBEDDING_URL", "http://localhost:8090", log)
	generationName := utils.GetEnv("EMBEDDING_GENERATION", string(types.Gen384), log)

	generation, err := types.ParseEmbeddingGeneration(generationName)
	if err != nil {
		log.Error("Invalid EMBEDDING_GENERATION", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis (optional; absent cache means recompute on every request)
	cache, err := redis.NewCache(log)
	if err != nil {
		log.Warn("Redis init failed, running without cache", "error", err)
		cache = nil
	}

	// Qdrant (optional; absent index means table-scan retrieval)
	var vectorStore vecstore.VectorStore
	if qdrantCfg, cfgErr := qdrant.ResolveConfigFromEnv(generation); cfgErr != nil {
		log.Warn("Qdrant not configured, retrieval scans the database", "error", cfgErr)
	} else {
		vectorStore, err = qdrant.NewVectorStore(log, qdrantCfg)
		if err != nil {
			log.Warn("Qdrant init failed, retrieval scans the database", "error", err)
			vectorStore = nil
		}
	}

	// Embedding provider
	provider, err := embeddings.NewHTTPProvider(log, embeddings.Config{
		URL:        embeddingURL,
		Generation: generation,
		Timeout:    30 * time.Second,
	})
	if err != nil {
		log.Error("Could not init embedding provider", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	projectRepo := repos.NewProjectRepo(thePG, log)
	materialRepo := repos.NewMaterialRepo(thePG, log)
	predictionRepo := repos.NewPredictionRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)
	settingsRepo := repos.NewSettingsRepo(thePG, log)
	auditRepo := repos.NewAuditRepo(thePG, log)

	// Retriever
	retriever := similarity.NewRetriever(log, vectorStore, repos.NewProjectCorpus(projectRepo))

	// Model store (an absent model is reported per request, never mocked)
	modelStore := services.NewModelStore(log)
	if err := modelStore.LoadFromDisk(); err != nil {
		log.Warn("No trained model on disk, predictions unavailable until training", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	trainingService := services.NewTrainingService(thePG, log, projectRepo, modelStore)
	estimateService := services.NewEstimateService(thePG, log, modelStore, provider, retriever, predictionRepo)
	similarityService := services.NewSimilarityService(thePG, log, provider, retriever, cache)
	projectService := services.NewProjectService(thePG, log, projectRepo, materialRepo, jobRunRepo, auditRepo, generation)

	// Background jobs
	log.Info("Setting up job worker from main...")
	registry := jobs.NewRegistry()
	for _, h := range []jobs.Handler{
		pipeline.NewProjectEmbed(log, projectRepo, provider, vectorStore),
		pipeline.NewEmbeddingBackfill(log, projectRepo, provider, vectorStore),
		pipeline.NewVectorsDelete(log, vectorStore),
		pipeline.NewModelTrain(log, trainingService),
	} {
		if err := registry.Register(h); err != nil {
			log.Error("Could not register job handler", "error", err)
			os.Exit(1)
		}
	}
	worker := jobs.NewWorker(thePG, log, jobRunRepo, registry)
	worker.Start(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	predictionHandler := handlers.NewPredictionHandler(log, estimateService)
	similarityHandler := handlers.NewSimilarityHandler(log, similarityService)
	confidenceHandler := handlers.NewConfidenceHandler(log)
	trainingHandler := handlers.NewTrainingHandler(log, jobRunRepo)
	jobHandler := handlers.NewJobHandler(log, jobRunRepo)
	projectHandler := handlers.NewProjectHandler(log, projectService)
	materialHandler := handlers.NewMaterialHandler(log, materialRepo)
	settingsHandler := handlers.NewSettingsHandler(log, settingsRepo, auditRepo)
	auditHandler := handlers.NewAuditHandler(log, auditRepo)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		PredictionHandler: predictionHandler,
		SimilarityHandler: similarityHandler,
		ConfidenceHandler: confidenceHandler,
		TrainingHandler:   trainingHandler,
		JobHandler:        jobHandler,
		ProjectHandler:    projectHandler,
		MaterialHandler:   materialHandler,
		SettingsHandler:   settingsHandler,
		AuditHandler:      auditHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
