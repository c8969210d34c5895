package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

// newServiceTestDB opens an isolated in-memory database with the tables the
// project service touches. Schema is created by hand because the production
// column defaults (uuid_generate_v4, now()) only exist on Postgres.
func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE project (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			project_type TEXT,
			region TEXT,
			total_area_sqm REAL,
			wood_type TEXT,
			complexity INTEGER NOT NULL DEFAULT 1,
			final_price REAL,
			project_date DATETIME,
			description_embedding TEXT,
			embedding_generation TEXT,
			is_finalized NUMERIC NOT NULL DEFAULT 0,
			finalized_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE project_material (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			material_id TEXT NOT NULL,
			quantity REAL NOT NULL,
			unit_price REAL NOT NULL,
			total_cost REAL NOT NULL,
			created_at DATETIME
		)`,
		`CREATE TABLE material (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT,
			unit TEXT,
			datanorm_id TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE material_price (
			id TEXT PRIMARY KEY,
			material_id TEXT NOT NULL,
			price REAL NOT NULL,
			region TEXT,
			valid_from DATETIME,
			valid_to DATETIME,
			recorded_at DATETIME
		)`,
		`CREATE TABLE accounting_audit (
			id TEXT PRIMARY KEY,
			table_name TEXT NOT NULL,
			record_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			actor_subject TEXT,
			old_values TEXT,
			new_values TEXT,
			created_at DATETIME
		)`,
		`CREATE TABLE job_run (
			id TEXT PRIMARY KEY,
			job_type TEXT NOT NULL,
			entity_type TEXT,
			entity_id TEXT,
			status TEXT NOT NULL,
			stage TEXT,
			progress INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			locked_at DATETIME,
			heartbeat_at DATETIME,
			last_error_at DATETIME,
			payload TEXT,
			result TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newProjectService(t *testing.T) (ProjectService, *gorm.DB) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	db := newServiceTestDB(t)
	service := NewProjectService(
		db,
		log,
		repos.NewProjectRepo(db, log),
		repos.NewMaterialRepo(db, log),
		repos.NewJobRunRepo(db, log),
		repos.NewAuditRepo(db, log),
		types.Gen384,
	)
	return service, db
}

func seedDraft(t *testing.T, db *gorm.DB) *types.Project {
	t.Helper()
	price := 1800.0
	project := &types.Project{
		ID:          uuid.New(),
		Name:        "Sideboard Kirschbaum",
		Description: "Sideboard aus Kirschbaum mit Schiebetüren",
		ProjectType: "schrank",
		Region:      "Sued",
		WoodType:    "kirschbaum",
		Complexity:  3,
		FinalPrice:  &price,
		ProjectDate: time.Now().UTC(),
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func TestUpdateRejectsLifecycleColumns(t *testing.T) {
	service, db := newProjectService(t)
	draft := seedDraft(t, db)

	for _, updates := range []map[string]interface{}{
		{"is_finalized": true},
		{"finalized_at": time.Now().UTC()},
		{"description_embedding": "[0.1,0.2]"},
		{"embedding_generation": "minilm-384"},
		{"name": "Neuer Name", "is_finalized": true},
		{"owner": "someone"},
	} {
		_, err := service.Update(context.Background(), draft.ID, updates)
		var verr *mlerr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Update(%v): expected ValidationError, got=%v", updates, err)
		}
	}

	var stored types.Project
	if err := db.First(&stored, "id = ?", draft.ID).Error; err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if stored.IsFinalized {
		t.Fatalf("draft was finalized through a patch")
	}
	if stored.FinalizedAt != nil {
		t.Fatalf("finalized_at set through a patch: %v", stored.FinalizedAt)
	}
	if stored.Name != draft.Name {
		t.Fatalf("rejected patch still wrote columns: name=%q", stored.Name)
	}

	var jobs int64
	if err := db.Model(&types.JobRun{}).Count(&jobs).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobs != 0 {
		t.Fatalf("rejected patch enqueued %d jobs", jobs)
	}
}

func TestUpdateAllowsPatchableColumns(t *testing.T) {
	service, db := newProjectService(t)
	draft := seedDraft(t, db)

	updated, err := service.Update(context.Background(), draft.ID, map[string]interface{}{
		"name":        "Sideboard Kirschbaum geölt",
		"complexity":  float64(4),
		"final_price": float64(2100),
		"region":      "Nord",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Sideboard Kirschbaum geölt" {
		t.Fatalf("name: got=%q", updated.Name)
	}
	if updated.Complexity != 4 {
		t.Fatalf("complexity: want=4 got=%d", updated.Complexity)
	}
	if updated.FinalPrice == nil || *updated.FinalPrice != 2100 {
		t.Fatalf("final_price: got=%v", updated.FinalPrice)
	}
	if updated.IsFinalized {
		t.Fatalf("patch must not change lifecycle state")
	}

	var trail []types.AccountingAudit
	if err := db.Find(&trail).Error; err != nil {
		t.Fatalf("load audit trail: %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("audit entries: want=1 got=%d", len(trail))
	}
	if trail[0].ActionType != types.AuditActionUpdate || trail[0].RecordID != draft.ID {
		t.Fatalf("audit entry: %+v", trail[0])
	}
	if len(trail[0].OldValues) == 0 || len(trail[0].NewValues) == 0 {
		t.Fatalf("audit entry missing snapshots: %+v", trail[0])
	}
}

func TestUpdateValidatesValueRanges(t *testing.T) {
	service, db := newProjectService(t)
	draft := seedDraft(t, db)

	for _, updates := range []map[string]interface{}{
		{},
		{"complexity": float64(9)},
		{"complexity": "hoch"},
		{"total_area_sqm": float64(-2)},
	} {
		_, err := service.Update(context.Background(), draft.ID, updates)
		var verr *mlerr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Update(%v): expected ValidationError, got=%v", updates, err)
		}
	}
}

func TestFinalizeLocksRowAndEnqueuesEmbedJob(t *testing.T) {
	service, db := newProjectService(t)
	draft := seedDraft(t, db)

	finalized, err := service.Finalize(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !finalized.IsFinalized || finalized.FinalizedAt == nil {
		t.Fatalf("finalize did not stamp the row: %+v", finalized)
	}

	var jobs []types.JobRun
	if err := db.Find(&jobs).Error; err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs: want=1 got=%d", len(jobs))
	}
	if jobs[0].JobType != types.JobTypeProjectEmbed {
		t.Fatalf("job type: want=%s got=%s", types.JobTypeProjectEmbed, jobs[0].JobType)
	}
	if jobs[0].Status != types.JobStatusQueued {
		t.Fatalf("job status: want=%s got=%s", types.JobStatusQueued, jobs[0].Status)
	}

	_, err = service.Update(context.Background(), draft.ID, map[string]interface{}{"name": "Umbenannt"})
	if !errors.Is(err, types.ErrProjectFinalized) {
		t.Fatalf("Update after finalize: expected ErrProjectFinalized, got=%v", err)
	}
}
