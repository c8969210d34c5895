package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]types.Project, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]types.Project, error)
	ListRecent(ctx context.Context, tx *gorm.DB, since time.Time) ([]types.Project, error)
	ListByType(ctx context.Context, tx *gorm.DB, projectType string) ([]types.Project, error)
	ListFinalizedWithEmbeddings(ctx context.Context, tx *gorm.DB, gen types.EmbeddingGeneration) ([]types.Project, error)
	ListFinalizedWithPrice(ctx context.Context, tx *gorm.DB) ([]types.Project, error)
	ListMissingEmbedding(ctx context.Context, tx *gorm.DB, gen types.EmbeddingGeneration, limit int) ([]types.Project, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	SetEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, emb types.Embedding) error
	Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Statistics(ctx context.Context, tx *gorm.DB) (*types.ProjectStatistics, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{
		db:  db,
		log: baseLog.With("repo", "ProjectRepo"),
	}
}

func (r *projectRepo) Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(projects) == 0 {
		return []*types.Project{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var project types.Project
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Project
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []types.Project
	if err := transaction.WithContext(ctx).
		Order("project_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) ListRecent(ctx context.Context, tx *gorm.DB, since time.Time) ([]types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Project
	if err := transaction.WithContext(ctx).
		Where("project_date >= ?", since).
		Order("project_date DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) ListByType(ctx context.Context, tx *gorm.DB, projectType string) ([]types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Project
	if err := transaction.WithContext(ctx).
		Where("project_type = ?", projectType).
		Order("project_date DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListFinalizedWithEmbeddings is the retrieval corpus: finalized rows whose
// stored embedding matches the requested generation.
func (r *projectRepo) ListFinalizedWithEmbeddings(ctx context.Context, tx *gorm.DB, gen types.EmbeddingGeneration) ([]types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Project
	if err := transaction.WithContext(ctx).
		Where("is_finalized = ? AND description_embedding IS NOT NULL AND embedding_generation = ?", true, gen).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListFinalizedWithPrice is the training corpus.
func (r *projectRepo) ListFinalizedWithPrice(ctx context.Context, tx *gorm.DB) ([]types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Project
	if err := transaction.WithContext(ctx).
		Where("is_finalized = ? AND final_price IS NOT NULL", true).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListMissingEmbedding feeds the backfill pipeline: finalized rows that have
// no embedding for the target generation yet.
func (r *projectRepo) ListMissingEmbedding(ctx context.Context, tx *gorm.DB, gen types.EmbeddingGeneration, limit int) ([]types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	var out []types.Project
	if err := transaction.WithContext(ctx).
		Where("is_finalized = ? AND (description_embedding IS NULL OR embedding_generation <> ?)", true, gen).
		Order("project_date DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	// Route through a loaded model so the finalized-immutability hook runs.
	stored, err := r.GetByID(ctx, transaction, id)
	if err != nil {
		return err
	}
	if stored == nil {
		return gorm.ErrRecordNotFound
	}
	return transaction.WithContext(ctx).
		Model(stored).
		Updates(updates).Error
}

// SetEmbedding writes the derived vector columns directly, bypassing the
// finalized-immutability hook: embeddings are system metadata generated
// after finalization, not accounting data.
func (r *projectRepo) SetEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, emb types.Embedding) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if err := emb.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(emb.Values)
	if err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"description_embedding": datatypes.JSON(raw),
			"embedding_generation":  emb.Generation,
			"updated_at":            time.Now(),
		}).Error
}

// Finalize flips the draft to its immutable form. Already-finalized rows
// fail with ErrProjectFinalized via the update hook.
func (r *projectRepo) Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	stored, err := r.GetByID(ctx, transaction, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if stored.IsFinalized {
		return nil, types.ErrProjectFinalized
	}
	now := time.Now().UTC()
	err = transaction.WithContext(ctx).
		Model(stored).
		Updates(map[string]interface{}{
			"is_finalized": true,
			"finalized_at": now,
			"updated_at":   now,
		}).Error
	if err != nil {
		return nil, err
	}
	stored.IsFinalized = true
	stored.FinalizedAt = &now
	return stored, nil
}

func (r *projectRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Project{}).Error
}

func (r *projectRepo) Statistics(ctx context.Context, tx *gorm.DB) (*types.ProjectStatistics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var stats types.ProjectStatistics

	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Count(&stats.TotalProjects).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("is_finalized = ?", true).
		Count(&stats.FinalizedProjects).Error; err != nil {
		return nil, err
	}

	var avg *float64
	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Select("AVG(final_price)").
		Where("final_price IS NOT NULL").
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AveragePrice = *avg
	}

	type typeCount struct {
		ProjectType string
		Count       int64
	}
	var counts []typeCount
	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Select("project_type, COUNT(id) AS count").
		Group("project_type").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	stats.ProjectsByType = map[string]int64{}
	for _, c := range counts {
		stats.ProjectsByType[c.ProjectType] = c.Count
	}
	return &stats, nil
}
