package repos

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type SettingsRepo interface {
	// Current returns the active settings row, creating the defaults when
	// none exists yet.
	Current(ctx context.Context, tx *gorm.DB) (*types.Settings, error)
	Update(ctx context.Context, tx *gorm.DB, updates map[string]interface{}) (*types.Settings, error)
}

type settingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingsRepo(db *gorm.DB, baseLog *logger.Logger) SettingsRepo {
	return &settingsRepo{
		db:  db,
		log: baseLog.With("repo", "SettingsRepo"),
	}
}

// settingsColumns are the rate/markup knobs a PUT may change. Identity and
// bookkeeping columns stay out of reach.
var settingsColumns = map[string]bool{
	"labor_rate_per_hour":        true,
	"material_markup_percentage": true,
	"overhead_percentage":        true,
	"profit_margin_percentage":   true,
	"polster_fabric_base_price":  true,
	"polster_labor_rate":         true,
	"antirutsch_price":           true,
	"zipper_price":               true,
	"foam_types":                 true,
	"seam_extras":                true,
}

func (r *settingsRepo) Current(ctx context.Context, tx *gorm.DB) (*types.Settings, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var settings types.Settings
	err := transaction.WithContext(ctx).Order("created_at ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	seeded := types.DefaultSettings()
	seeded.ID = uuid.New()
	if err := transaction.WithContext(ctx).Create(seeded).Error; err != nil {
		return nil, err
	}
	r.log.Info("Seeded default settings", "settings_id", seeded.ID)
	return seeded, nil
}

func (r *settingsRepo) Update(ctx context.Context, tx *gorm.DB, updates map[string]interface{}) (*types.Settings, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil, mlerr.Validation("updates", nil, "at least one field required")
	}
	for column, value := range updates {
		if !settingsColumns[column] {
			return nil, mlerr.Validation(column, value, "field is not updatable")
		}
		switch v := value.(type) {
		case float64:
			if v < 0 {
				return nil, mlerr.Validation(column, value, "value must be >= 0")
			}
		case map[string]interface{}, []interface{}:
			// JSON columns: re-encode decoded bodies so GORM writes jsonb.
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, mlerr.Validation(column, value, "value is not valid JSON")
			}
			updates[column] = datatypes.JSON(raw)
		}
	}

	current, err := r.Current(ctx, transaction)
	if err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).Model(current).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.Current(ctx, transaction)
}
