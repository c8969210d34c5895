package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type PredictionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, prediction *types.PricePrediction) (*types.PricePrediction, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PricePrediction, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.PricePrediction, error)
	RecordFeedback(ctx context.Context, tx *gorm.DB, id uuid.UUID, actual *float64, accepted *bool, modified *float64) (*types.PricePrediction, error)
	ListWithFeedback(ctx context.Context, tx *gorm.DB) ([]types.PricePrediction, error)
}

type predictionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPredictionRepo(db *gorm.DB, baseLog *logger.Logger) PredictionRepo {
	return &predictionRepo{
		db:  db,
		log: baseLog.With("repo", "PredictionRepo"),
	}
}

func (r *predictionRepo) Create(ctx context.Context, tx *gorm.DB, prediction *types.PricePrediction) (*types.PricePrediction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if prediction == nil {
		return nil, nil
	}
	if prediction.Timestamp.IsZero() {
		prediction.Timestamp = time.Now().UTC()
	}
	if err := transaction.WithContext(ctx).Create(prediction).Error; err != nil {
		return nil, err
	}
	return prediction, nil
}

func (r *predictionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PricePrediction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var prediction types.PricePrediction
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Take(&prediction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

func (r *predictionRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.PricePrediction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []types.PricePrediction
	if err := transaction.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// RecordFeedback fills the outcome fields of an audit row. The prediction
// fields themselves are never touched; the row is append-once, amend-once.
func (r *predictionRepo) RecordFeedback(ctx context.Context, tx *gorm.DB, id uuid.UUID, actual *float64, accepted *bool, modified *float64) (*types.PricePrediction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	prediction, err := r.GetByID(ctx, transaction, id)
	if err != nil {
		return nil, err
	}
	if prediction == nil {
		return nil, gorm.ErrRecordNotFound
	}

	updates := map[string]interface{}{}
	if actual != nil && *actual > 0 {
		updates["actual_price"] = *actual
		// Absolute percentage error, stored as a percent.
		mape := abs(prediction.PredictedPrice-*actual) / *actual * 100
		updates["prediction_error"] = mape
		prediction.ActualPrice = actual
		prediction.PredictionError = &mape
	}
	if accepted != nil {
		updates["was_accepted"] = *accepted
		prediction.WasAccepted = accepted
	}
	if modified != nil {
		updates["user_modified_price"] = *modified
		prediction.UserModifiedPrice = modified
	}
	if len(updates) == 0 {
		return prediction, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.PricePrediction{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return prediction, nil
}

func (r *predictionRepo) ListWithFeedback(ctx context.Context, tx *gorm.DB) ([]types.PricePrediction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.PricePrediction
	if err := transaction.WithContext(ctx).
		Where("actual_price IS NOT NULL").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
