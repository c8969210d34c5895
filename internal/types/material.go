package types

import (
	"time"

	"github.com/google/uuid"
)

// Material is master data for wood, fittings and fabric.
type Material struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name     string    `gorm:"not null" json:"name"`
	Category string    `gorm:"index" json:"category"`
	Unit     string    `json:"unit"`

	// Datanorm catalog reference, when the material was imported.
	DatanormID string `gorm:"column:datanorm_id;index" json:"datanorm_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Material) TableName() string { return "material" }

// MaterialPrice is a time series of regional material prices.
type MaterialPrice struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	Material   *Material `gorm:"constraint:OnDelete:CASCADE;foreignKey:MaterialID;references:ID" json:"material,omitempty"`

	Price     float64    `gorm:"not null" json:"price"`
	Region    string     `gorm:"index" json:"region"`
	ValidFrom time.Time  `gorm:"index" json:"valid_from"`
	ValidTo   *time.Time `gorm:"index" json:"valid_to,omitempty"`

	RecordedAt time.Time `gorm:"not null;default:now()" json:"recorded_at"`
}

func (MaterialPrice) TableName() string { return "material_price" }

// ProjectMaterial links a project to the materials it consumed.
type ProjectMaterial struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_project_material" json:"project_id"`
	Project    *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_project_material" json:"material_id"`
	Material   *Material `gorm:"constraint:OnDelete:CASCADE;foreignKey:MaterialID;references:ID" json:"material,omitempty"`

	Quantity  float64 `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
	TotalCost float64 `gorm:"not null" json:"total_cost"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ProjectMaterial) TableName() string { return "project_material" }
