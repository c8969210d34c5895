package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type ProjectService interface {
	Create(ctx context.Context, project *types.Project) (*types.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Project, error)
	List(ctx context.Context, limit, offset int) ([]types.Project, error)
	Recent(ctx context.Context) ([]types.Project, error)
	ByType(ctx context.Context, projectType string) ([]types.Project, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.Project, error)
	Finalize(ctx context.Context, id uuid.UUID) (*types.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddMaterial(ctx context.Context, link *types.ProjectMaterial) (*types.ProjectMaterial, error)
	Statistics(ctx context.Context) (*types.ProjectStatistics, error)
}

type projectService struct {
	db           *gorm.DB
	log          *logger.Logger
	projectRepo  repos.ProjectRepo
	materialRepo repos.MaterialRepo
	jobRepo      repos.JobRunRepo
	auditRepo    repos.AuditRepo
	generation   types.EmbeddingGeneration
}

func NewProjectService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	materialRepo repos.MaterialRepo,
	jobRepo repos.JobRunRepo,
	auditRepo repos.AuditRepo,
	generation types.EmbeddingGeneration,
) ProjectService {
	return &projectService{
		db:           db,
		log:          baseLog.With("service", "ProjectService"),
		projectRepo:  projectRepo,
		materialRepo: materialRepo,
		jobRepo:      jobRepo,
		auditRepo:    auditRepo,
		generation:   generation,
	}
}

func (s *projectService) Create(ctx context.Context, project *types.Project) (*types.Project, error) {
	if err := validateProject(project); err != nil {
		return nil, err
	}
	if project.ProjectDate.IsZero() {
		project.ProjectDate = time.Now().UTC()
	}
	created, err := s.projectRepo.Create(ctx, nil, []*types.Project{project})
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, types.AuditActionInsert, created[0].TableName(), created[0].ID, nil, created[0]); err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	return s.projectRepo.GetByID(ctx, nil, id)
}

func (s *projectService) List(ctx context.Context, limit, offset int) ([]types.Project, error) {
	return s.projectRepo.List(ctx, nil, limit, offset)
}

// Recent returns projects from the last 30 days.
func (s *projectService) Recent(ctx context.Context) ([]types.Project, error) {
	return s.projectRepo.ListRecent(ctx, nil, time.Now().AddDate(0, 0, -30))
}

func (s *projectService) ByType(ctx context.Context, projectType string) ([]types.Project, error) {
	if projectType == "" {
		return nil, mlerr.Validation("type", projectType, "type parameter required")
	}
	return s.projectRepo.ListByType(ctx, nil, projectType)
}

// patchableColumns are the only columns a PATCH may touch. Lifecycle and
// embedding columns are owned by Finalize and the embed pipeline; letting a
// patch flip is_finalized would lock the row without a finalized_at stamp or
// an embed job, leaving it immutable yet absent from the retrieval corpus.
var patchableColumns = map[string]bool{
	"name":           true,
	"description":    true,
	"project_type":   true,
	"region":         true,
	"total_area_sqm": true,
	"wood_type":      true,
	"complexity":     true,
	"final_price":    true,
	"project_date":   true,
}

func (s *projectService) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.Project, error) {
	if len(updates) == 0 {
		return nil, mlerr.Validation("updates", nil, "at least one field required")
	}
	for column, value := range updates {
		if !patchableColumns[column] {
			return nil, mlerr.Validation(column, value, "field is not updatable")
		}
	}
	if raw, ok := updates["complexity"]; ok {
		c, ok := raw.(float64)
		if !ok || c < 1 || c > 5 {
			return nil, mlerr.Validation("complexity", raw, "complexity must be within [1,5]")
		}
	}
	if raw, ok := updates["total_area_sqm"]; ok && raw != nil {
		area, ok := raw.(float64)
		if !ok || area < 0 {
			return nil, mlerr.Validation("total_area_sqm", raw, "area must be >= 0")
		}
	}
	old, err := s.projectRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if err := s.projectRepo.UpdateFields(ctx, nil, id, updates); err != nil {
		return nil, err
	}
	updated, err := s.projectRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, types.AuditActionUpdate, old.TableName(), id, old, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Finalize locks the project and enqueues embedding generation so the row
// joins the retrieval corpus. The embed job runs after the flip because
// only finalized rows are ever indexed.
func (s *projectService) Finalize(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	project, err := s.projectRepo.Finalize(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, types.JobTypeProjectEmbed, project.ID, map[string]any{
		"project_id": project.ID.String(),
		"generation": string(s.generation),
	}); err != nil {
		s.log.Error("Failed to enqueue embed job", "project_id", project.ID, "error", err)
		return nil, err
	}
	if err := s.audit(ctx, types.AuditActionUpdate, project.TableName(), project.ID, nil, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes the row and enqueues removal of its index vector. The two
// cannot be atomic across stores; the job retries until the vector is gone.
func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	project, err := s.projectRepo.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if project == nil {
		return gorm.ErrRecordNotFound
	}
	if err := s.projectRepo.Delete(ctx, nil, id); err != nil {
		return err
	}
	if err := s.audit(ctx, types.AuditActionDelete, project.TableName(), id, project, nil); err != nil {
		return err
	}
	if !project.EmbeddingGeneration.Valid() {
		return nil
	}
	return s.enqueue(ctx, types.JobTypeVectorsDelete, id, map[string]any{
		"vector_id":  id.String(),
		"generation": string(project.EmbeddingGeneration),
	})
}

func (s *projectService) AddMaterial(ctx context.Context, link *types.ProjectMaterial) (*types.ProjectMaterial, error) {
	project, err := s.projectRepo.GetByID(ctx, nil, link.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if project.IsFinalized {
		return nil, types.ErrProjectFinalized
	}
	attached, err := s.materialRepo.AttachToProject(ctx, nil, link)
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, types.AuditActionInsert, attached.TableName(), attached.ID, nil, attached); err != nil {
		return nil, err
	}
	return attached, nil
}

func (s *projectService) Statistics(ctx context.Context) (*types.ProjectStatistics, error) {
	return s.projectRepo.Statistics(ctx, nil)
}

// audit appends one trail entry for a mutating operation. A failed write
// fails the operation: a mutation without its trail entry is worse for the
// books than a retried request.
func (s *projectService) audit(ctx context.Context, action, table string, recordID uuid.UUID, oldValue, newValue any) error {
	entry := &types.AccountingAudit{
		AuditedTable: table,
		RecordID:     recordID,
		ActionType:   action,
		ActorSubject: types.AuditActor(ctx),
	}
	if oldValue != nil {
		raw, err := json.Marshal(oldValue)
		if err != nil {
			return err
		}
		entry.OldValues = datatypes.JSON(raw)
	}
	if newValue != nil {
		raw, err := json.Marshal(newValue)
		if err != nil {
			return err
		}
		entry.NewValues = datatypes.JSON(raw)
	}
	return s.auditRepo.Record(ctx, nil, []*types.AccountingAudit{entry})
}

func (s *projectService) enqueue(ctx context.Context, jobType string, entityID uuid.UUID, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	id := entityID
	_, err = s.jobRepo.Create(ctx, nil, []*types.JobRun{{
		JobType:    jobType,
		EntityType: "project",
		EntityID:   &id,
		Status:     types.JobStatusQueued,
		Payload:    datatypes.JSON(raw),
	}})
	return err
}

func validateProject(p *types.Project) error {
	if p == nil {
		return mlerr.Validation("project", nil, "project body required")
	}
	if p.Name == "" {
		return mlerr.Validation("name", p.Name, "name is required")
	}
	if p.Complexity < 1 || p.Complexity > 5 {
		return mlerr.Validation("complexity", p.Complexity, "complexity must be within [1,5]")
	}
	if p.TotalAreaSqm != nil && *p.TotalAreaSqm < 0 {
		return mlerr.Validation("total_area_sqm", *p.TotalAreaSqm, "area must be >= 0")
	}
	return nil
}
