package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Settings is the single row of workshop calculation defaults. The API
// exposes exactly one active row; the first read creates it with the
// defaults below.
type Settings struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	LaborRatePerHour         float64 `gorm:"column:labor_rate_per_hour;not null;default:50" json:"labor_rate_per_hour"`
	MaterialMarkupPercentage float64 `gorm:"column:material_markup_percentage;not null;default:30" json:"material_markup_percentage"`
	OverheadPercentage       float64 `gorm:"column:overhead_percentage;not null;default:15" json:"overhead_percentage"`
	ProfitMarginPercentage   float64 `gorm:"column:profit_margin_percentage;not null;default:25" json:"profit_margin_percentage"`

	// Upholstery line items.
	PolsterFabricBasePrice float64  `gorm:"column:polster_fabric_base_price;not null;default:25" json:"polster_fabric_base_price"`
	PolsterLaborRate       float64  `gorm:"column:polster_labor_rate;not null;default:65" json:"polster_labor_rate"`
	AntirutschPrice        *float64 `gorm:"column:antirutsch_price" json:"antirutsch_price,omitempty"`
	ZipperPrice            *float64 `gorm:"column:zipper_price" json:"zipper_price,omitempty"`

	FoamTypes  datatypes.JSON `gorm:"type:jsonb;column:foam_types" json:"foam_types,omitempty"`
	SeamExtras datatypes.JSON `gorm:"type:jsonb;column:seam_extras" json:"seam_extras,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Settings) TableName() string { return "calculator_settings" }

// DefaultSettings returns the row seeded when no settings exist yet.
func DefaultSettings() *Settings {
	return &Settings{
		LaborRatePerHour:         50,
		MaterialMarkupPercentage: 30,
		OverheadPercentage:       15,
		ProfitMarginPercentage:   25,
		PolsterFabricBasePrice:   25,
		PolsterLaborRate:         65,
	}
}
