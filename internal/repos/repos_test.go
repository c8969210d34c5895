package repos

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/handwerkml/pricing-backend/internal/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// newTestDB opens an isolated in-memory database. The schema is created by
// hand because the production column defaults (uuid_generate_v4, now())
// only exist on Postgres; tests always set IDs explicitly.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Each :memory: connection is its own database; keep the pool at one.
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
		`CREATE TABLE price_prediction (
			id TEXT PRIMARY KEY,
			timestamp DATETIME,
			project_features TEXT,
			predicted_price REAL NOT NULL,
			price_lower REAL,
			price_upper REAL,
			confidence_score REAL,
			confidence_level TEXT,
			similar_projects_count INTEGER,
			model_version TEXT,
			actual_price REAL,
			was_accepted NUMERIC,
			user_modified_price REAL,
			prediction_error REAL
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
		`CREATE TABLE project_material (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			material_id TEXT NOT NULL,
			quantity REAL NOT NULL,
			unit_price REAL NOT NULL,
			total_cost REAL NOT NULL,
			created_at DATETIME
		)`,
		`CREATE TABLE calculator_settings (
			id TEXT PRIMARY KEY,
			labor_rate_per_hour REAL NOT NULL DEFAULT 50,
			material_markup_percentage REAL NOT NULL DEFAULT 30,
			overhead_percentage REAL NOT NULL DEFAULT 15,
			profit_margin_percentage REAL NOT NULL DEFAULT 25,
			polster_fabric_base_price REAL NOT NULL DEFAULT 25,
			polster_labor_rate REAL NOT NULL DEFAULT 65,
			antirutsch_price REAL,
			zipper_price REAL,
			foam_types TEXT,
			seam_extras TEXT,
			created_at DATETIME,
			updated_at DATETIME
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
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
