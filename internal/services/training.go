package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/features"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/ml/regressor"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type TrainingService interface {
	Train(ctx context.Context) (regressor.Metrics, error)
}

type trainingService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	store       *ModelStore
}

func NewTrainingService(db *gorm.DB, baseLog *logger.Logger, projectRepo repos.ProjectRepo, store *ModelStore) TrainingService {
	return &trainingService{
		db:          db,
		log:         baseLog.With("service", "TrainingService"),
		projectRepo: projectRepo,
		store:       store,
	}
}

// Train fits the full pipeline on the finalized corpus: feature engineer
// first, then the boosted regressor on the extracted matrix. On success the
// bundle is persisted and swapped in as the live model.
func (s *trainingService) Train(ctx context.Context) (regressor.Metrics, error) {
	projects, err := s.projectRepo.ListFinalizedWithPrice(ctx, nil)
	if err != nil {
		return regressor.Metrics{}, err
	}

	rows := make([]features.Attributes, 0, len(projects))
	prices := make([]float64, 0, len(projects))
	for _, p := range projects {
		if p.FinalPrice == nil || *p.FinalPrice <= 0 {
			continue
		}
		rows = append(rows, toAttributes(p))
		prices = append(prices, *p.FinalPrice)
	}
	if len(rows) < regressor.MinTrainingSamples {
		return regressor.Metrics{}, mlerr.InsufficientData(regressor.MinTrainingSamples, len(rows))
	}

	engineer := features.NewEngineer(features.FillMean)
	if err := engineer.Fit(rows); err != nil {
		return regressor.Metrics{}, err
	}
	matrix, outliers, err := engineer.ExtractBatch(rows)
	if err != nil {
		return regressor.Metrics{}, err
	}
	for _, o := range outliers {
		s.log.Warn("training row is a statistical outlier",
			"row", o.Row, "feature", o.Feature, "value", o.Value, "z_score", o.ZScore)
	}

	model := regressor.New(regressor.DefaultParams())
	metrics, err := model.Train(matrix, prices)
	if err != nil {
		return regressor.Metrics{}, err
	}
	model.SetFeatureState(engineer.State())

	if err := model.Save(s.store.Path()); err != nil {
		return regressor.Metrics{}, err
	}
	s.store.Swap(model)

	s.log.Info("Model trained",
		"samples", len(rows),
		"test_mape", metrics.TestMAPE,
		"test_rmse", metrics.TestRMSE,
		"version", metrics.ModelVersion)
	return metrics, nil
}

// toAttributes maps a stored project row onto the feature-engineer input.
func toAttributes(p types.Project) features.Attributes {
	a := features.Attributes{
		Name:         p.Name,
		Description:  p.Description,
		ProjectType:  p.ProjectType,
		Region:       p.Region,
		WoodType:     p.WoodType,
		TotalAreaSqm: p.TotalAreaSqm,
		FinalPrice:   p.FinalPrice,
	}
	if p.Complexity > 0 {
		c := p.Complexity
		a.Complexity = &c
	}
	if !p.ProjectDate.IsZero() {
		d := p.ProjectDate.UTC()
		a.ProjectDate = &d
	}
	return a
}
