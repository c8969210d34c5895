package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/types"
)

func seedProject(t *testing.T, repo ProjectRepo, mutate func(*types.Project)) *types.Project {
	t.Helper()
	area := 12.5
	project := &types.Project{
		ID:           uuid.New(),
		Name:         "Esstisch Eiche massiv",
		Description:  "Massiver Esstisch aus Eiche, geoelt, 200x100cm",
		ProjectType:  "tisch",
		Region:       "Sued",
		TotalAreaSqm: &area,
		WoodType:     "Eiche",
		Complexity:   3,
		ProjectDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(project)
	}
	created, err := repo.Create(context.Background(), nil, []*types.Project{project})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return created[0]
}

func TestProjectRepoUpdateDraft(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	project := seedProject(t, repo, nil)

	err := repo.UpdateFields(context.Background(), nil, project.ID, map[string]interface{}{
		"complexity": 4,
	})
	if err != nil {
		t.Fatalf("UpdateFields on draft: %v", err)
	}
	got, err := repo.GetByID(context.Background(), nil, project.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Complexity != 4 {
		t.Fatalf("complexity = %d, want 4", got.Complexity)
	}
}

func TestProjectRepoFinalizedRowsAreImmutable(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	project := seedProject(t, repo, nil)

	finalized, err := repo.Finalize(context.Background(), nil, project.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !finalized.IsFinalized || finalized.FinalizedAt == nil {
		t.Fatalf("Finalize did not flip flags: %+v", finalized)
	}

	err = repo.UpdateFields(context.Background(), nil, project.ID, map[string]interface{}{
		"name": "umbenannt",
	})
	if !errors.Is(err, types.ErrProjectFinalized) {
		t.Fatalf("UpdateFields on finalized project: err = %v, want ErrProjectFinalized", err)
	}

	got, err := repo.GetByID(context.Background(), nil, project.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != project.Name {
		t.Fatalf("name changed on finalized project: %q", got.Name)
	}
}

func TestProjectRepoFinalizeTwiceFails(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	project := seedProject(t, repo, nil)

	if _, err := repo.Finalize(context.Background(), nil, project.ID); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if _, err := repo.Finalize(context.Background(), nil, project.ID); !errors.Is(err, types.ErrProjectFinalized) {
		t.Fatalf("second Finalize: err = %v, want ErrProjectFinalized", err)
	}
}

func TestProjectRepoFinalizeMissingRow(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	if _, err := repo.Finalize(context.Background(), nil, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Finalize missing: err = %v, want ErrRecordNotFound", err)
	}
}

func TestProjectRepoSetEmbeddingAfterFinalize(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	project := seedProject(t, repo, nil)
	if _, err := repo.Finalize(context.Background(), nil, project.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	emb := types.Embedding{Generation: types.Gen384, Values: make([]float32, 384)}
	emb.Values[0] = 0.5
	if err := repo.SetEmbedding(context.Background(), nil, project.ID, emb); err != nil {
		t.Fatalf("SetEmbedding on finalized project: %v", err)
	}

	got, err := repo.GetByID(context.Background(), nil, project.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	stored, ok := got.Embedding()
	if !ok {
		t.Fatal("embedding not readable after SetEmbedding")
	}
	if stored.Generation != types.Gen384 || stored.Values[0] != 0.5 {
		t.Fatalf("stored embedding mismatch: gen=%s values[0]=%v", stored.Generation, stored.Values[0])
	}
}

func TestProjectRepoSetEmbeddingRejectsDimensionMismatch(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	project := seedProject(t, repo, nil)

	bad := types.Embedding{Generation: types.Gen384, Values: make([]float32, 10)}
	if err := repo.SetEmbedding(context.Background(), nil, project.ID, bad); err == nil {
		t.Fatal("SetEmbedding accepted a 10-dim vector for a 384-dim generation")
	}
}

func TestProjectRepoCorpusListings(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	ctx := context.Background()

	price := 4200.0
	finalizedEmbedded := seedProject(t, repo, func(p *types.Project) {
		p.FinalPrice = &price
	})
	if _, err := repo.Finalize(ctx, nil, finalizedEmbedded.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	emb := types.ZeroEmbedding(types.Gen384)
	emb.Values[3] = 1
	if err := repo.SetEmbedding(ctx, nil, finalizedEmbedded.ID, emb); err != nil {
		t.Fatalf("SetEmbedding: %v", err)
	}

	finalizedBare := seedProject(t, repo, nil)
	if _, err := repo.Finalize(ctx, nil, finalizedBare.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	seedProject(t, repo, nil) // draft

	corpus, err := repo.ListFinalizedWithEmbeddings(ctx, nil, types.Gen384)
	if err != nil {
		t.Fatalf("ListFinalizedWithEmbeddings: %v", err)
	}
	if len(corpus) != 1 || corpus[0].ID != finalizedEmbedded.ID {
		t.Fatalf("corpus = %d rows, want exactly the embedded finalized project", len(corpus))
	}

	training, err := repo.ListFinalizedWithPrice(ctx, nil)
	if err != nil {
		t.Fatalf("ListFinalizedWithPrice: %v", err)
	}
	if len(training) != 1 || training[0].ID != finalizedEmbedded.ID {
		t.Fatalf("training corpus = %d rows, want 1", len(training))
	}

	missing, err := repo.ListMissingEmbedding(ctx, nil, types.Gen384, 10)
	if err != nil {
		t.Fatalf("ListMissingEmbedding: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != finalizedBare.ID {
		t.Fatalf("missing = %d rows, want the bare finalized project", len(missing))
	}
}

func TestProjectRepoStatistics(t *testing.T) {
	repo := NewProjectRepo(newTestDB(t), newTestLogger(t))
	ctx := context.Background()

	for _, price := range []float64{1000, 3000} {
		p := price
		project := seedProject(t, repo, func(pr *types.Project) {
			pr.FinalPrice = &p
		})
		if _, err := repo.Finalize(ctx, nil, project.ID); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
	}
	seedProject(t, repo, func(p *types.Project) { p.ProjectType = "stuhl" })

	stats, err := repo.Statistics(ctx, nil)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalProjects != 3 {
		t.Fatalf("TotalProjects = %d, want 3", stats.TotalProjects)
	}
	if stats.FinalizedProjects != 2 {
		t.Fatalf("FinalizedProjects = %d, want 2", stats.FinalizedProjects)
	}
	if stats.AveragePrice != 2000 {
		t.Fatalf("AveragePrice = %v, want 2000", stats.AveragePrice)
	}
	if stats.ProjectsByType["tisch"] != 2 || stats.ProjectsByType["stuhl"] != 1 {
		t.Fatalf("ProjectsByType = %v", stats.ProjectsByType)
	}
}
