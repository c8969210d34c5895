package main

import (
	"context"
	"fmt"
	"os"

	"github.com/handwerkml/pricing-backend/internal/db"
	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/services"
)

// Trains the price regressor from the command line and writes the bundle to
// MODEL_PATH. Useful for seeding a model before the API server first boots.
func main() {
	log, err := logger.New("development")
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		fmt.Printf("init postgres: %v\n", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		fmt.Printf("migrate: %v\n", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	projectRepo := repos.NewProjectRepo(thePG, log)
	modelStore := services.NewModelStore(log)
	trainingService := services.NewTrainingService(thePG, log, projectRepo, modelStore)

	metrics, err := trainingService.Train(context.Background())
	if err != nil {
		fmt.Printf("training failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("model %s written to %s\n", metrics.ModelVersion, modelStore.Path())
	fmt.Printf("samples: train=%d test=%d\n", metrics.TrainingSamples, metrics.TestSamples)
	fmt.Printf("mape: train=%.2f%% test=%.2f%%\n", metrics.TrainMAPE, metrics.TestMAPE)
	fmt.Printf("rmse: train=%.2f test=%.2f\n", metrics.TrainRMSE, metrics.TestRMSE)
}
