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

type MaterialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, materials []*types.Material) ([]*types.Material, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Material, error)
	List(ctx context.Context, tx *gorm.DB) ([]types.Material, error)
	ListByCategory(ctx context.Context, tx *gorm.DB, category string) ([]types.Material, error)
	AddPrice(ctx context.Context, tx *gorm.DB, price *types.MaterialPrice) (*types.MaterialPrice, error)
	CurrentPrices(ctx context.Context, tx *gorm.DB, region string, at time.Time) ([]types.MaterialPrice, error)
	PricesByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]types.MaterialPrice, error)
	AttachToProject(ctx context.Context, tx *gorm.DB, link *types.ProjectMaterial) (*types.ProjectMaterial, error)
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return &materialRepo{
		db:  db,
		log: baseLog.With("repo", "MaterialRepo"),
	}
}

func (r *materialRepo) Create(ctx context.Context, tx *gorm.DB, materials []*types.Material) ([]*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(materials) == 0 {
		return []*types.Material{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var material types.Material
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Take(&material).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepo) List(ctx context.Context, tx *gorm.DB) ([]types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Material
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *materialRepo) ListByCategory(ctx context.Context, tx *gorm.DB, category string) ([]types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Material
	if err := transaction.WithContext(ctx).
		Where("category = ?", category).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *materialRepo) AddPrice(ctx context.Context, tx *gorm.DB, price *types.MaterialPrice) (*types.MaterialPrice, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if price == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(price).Error; err != nil {
		return nil, err
	}
	return price, nil
}

// CurrentPrices returns the prices valid at the given instant, optionally
// scoped to a region.
func (r *materialRepo) CurrentPrices(ctx context.Context, tx *gorm.DB, region string, at time.Time) ([]types.MaterialPrice, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("valid_from <= ? AND (valid_to IS NULL OR valid_to > ?)", at, at)
	if region != "" {
		q = q.Where("region = ?", region)
	}
	var out []types.MaterialPrice
	if err := q.Order("valid_from DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *materialRepo) PricesByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]types.MaterialPrice, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.MaterialPrice
	if materialID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("valid_from DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *materialRepo) AttachToProject(ctx context.Context, tx *gorm.DB, link *types.ProjectMaterial) (*types.ProjectMaterial, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if link == nil {
		return nil, nil
	}
	link.TotalCost = link.Quantity * link.UnitPrice
	if err := transaction.WithContext(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}
