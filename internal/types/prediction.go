package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PricePrediction is the append-only audit record for every estimate the
// engine produced. Prediction fields are write-once; only the outcome fields
// (actual price, acceptance, error) are filled in later for drift tracking.
type PricePrediction struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;default:now();index" json:"timestamp"`

	ProjectFeatures datatypes.JSON `gorm:"type:jsonb;column:project_features" json:"project_features"`

	PredictedPrice       float64 `gorm:"not null" json:"predicted_price"`
	PriceLower           float64 `gorm:"column:price_lower" json:"price_lower"`
	PriceUpper           float64 `gorm:"column:price_upper" json:"price_upper"`
	ConfidenceScore      float64 `gorm:"not null" json:"confidence_score"`
	ConfidenceLevel      string  `json:"confidence_level"`
	SimilarProjectsCount int     `gorm:"not null" json:"similar_projects_count"`
	ModelVersion         string  `gorm:"index" json:"model_version"`

	// Outcome, filled by feedback.
	ActualPrice       *float64 `json:"actual_price,omitempty"`
	WasAccepted       *bool    `json:"was_accepted,omitempty"`
	UserModifiedPrice *float64 `json:"user_modified_price,omitempty"`
	PredictionError   *float64 `json:"prediction_error,omitempty"`
}

func (PricePrediction) TableName() string { return "price_prediction" }
