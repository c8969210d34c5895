package types

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrProjectFinalized is returned by the GORM hooks when a mutation targets
// a finalized project. Finalized records are ground truth for training and
// retrieval; corrections require a cancellation record, never an edit.
var ErrProjectFinalized = errors.New("finalized projects cannot be modified")

// Project is a historical (or draft) woodworking/upholstery project. Drafts
// are mutable; once finalized the row is read-only forever.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ProjectType string    `gorm:"index" json:"project_type"`

	// Anonymized location, e.g. "Sued", "Nord".
	Region string `gorm:"index" json:"region"`

	TotalAreaSqm *float64 `gorm:"column:total_area_sqm" json:"total_area_sqm,omitempty"`
	WoodType     string   `gorm:"index" json:"wood_type"`
	Complexity   int      `gorm:"not null;default:1" json:"complexity"`

	FinalPrice  *float64  `gorm:"column:final_price" json:"final_price,omitempty"`
	ProjectDate time.Time `gorm:"index" json:"project_date"`

	// DescriptionEmbedding holds the serialized vector; the generation column
	// says which model wrote it.
	DescriptionEmbedding datatypes.JSON      `gorm:"type:jsonb;column:description_embedding" json:"description_embedding,omitempty"`
	EmbeddingGeneration  EmbeddingGeneration `gorm:"column:embedding_generation;index" json:"embedding_generation,omitempty"`

	IsFinalized bool       `gorm:"not null;default:false;index" json:"is_finalized"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Project) TableName() string { return "project" }

// BeforeUpdate enforces immutability: if the stored row is already finalized,
// every update fails. The transition draft -> finalized itself goes through
// before the stored flag flips, so it is still allowed.
func (p *Project) BeforeUpdate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		return nil
	}
	var stored Project
	err := tx.Session(&gorm.Session{NewDB: true}).
		Select("is_finalized").
		Where("id = ?", p.ID).
		Take(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if stored.IsFinalized {
		return ErrProjectFinalized
	}
	return nil
}

// ProjectStatistics is the aggregate view served by the statistics endpoint.
type ProjectStatistics struct {
	TotalProjects     int64            `json:"total_projects"`
	FinalizedProjects int64            `json:"finalized_projects"`
	AveragePrice      float64          `json:"average_price"`
	ProjectsByType    map[string]int64 `json:"projects_by_type"`
}

// Embedding decodes the stored vector. Returns ok=false when no embedding
// has been generated yet.
func (p *Project) Embedding() (Embedding, bool) {
	if len(p.DescriptionEmbedding) == 0 || !p.EmbeddingGeneration.Valid() {
		return Embedding{}, false
	}
	var values []float32
	if err := json.Unmarshal(p.DescriptionEmbedding, &values); err != nil {
		return Embedding{}, false
	}
	if len(values) != p.EmbeddingGeneration.Dim() {
		return Embedding{}, false
	}
	return Embedding{Generation: p.EmbeddingGeneration, Values: values}, true
}

// SetEmbedding stores a vector after validating it against its generation.
func (p *Project) SetEmbedding(e Embedding) error {
	if err := e.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(e.Values)
	if err != nil {
		return err
	}
	p.DescriptionEmbedding = datatypes.JSON(raw)
	p.EmbeddingGeneration = e.Generation
	return nil
}
