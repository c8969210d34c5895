package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/types"
)

func TestMaterialRepoAttachToProjectComputesTotal(t *testing.T) {
	db := newTestDB(t)
	log := newTestLogger(t)
	materials := NewMaterialRepo(db, log)
	projects := NewProjectRepo(db, log)
	ctx := context.Background()

	project := seedProject(t, projects, nil)
	created, err := materials.Create(ctx, nil, []*types.Material{{
		ID:       uuid.New(),
		Name:     "Eiche Bohle 40mm",
		Category: "holz",
		Unit:     "m2",
	}})
	if err != nil {
		t.Fatalf("Create material: %v", err)
	}

	link, err := materials.AttachToProject(ctx, nil, &types.ProjectMaterial{
		ID:         uuid.New(),
		ProjectID:  project.ID,
		MaterialID: created[0].ID,
		Quantity:   2.5,
		UnitPrice:  80,
	})
	if err != nil {
		t.Fatalf("AttachToProject: %v", err)
	}
	if link.TotalCost != 200 {
		t.Fatalf("TotalCost = %v, want 200", link.TotalCost)
	}
}

func TestMaterialRepoCurrentPrices(t *testing.T) {
	db := newTestDB(t)
	log := newTestLogger(t)
	materials := NewMaterialRepo(db, log)
	ctx := context.Background()

	created, err := materials.Create(ctx, nil, []*types.Material{{
		ID:   uuid.New(),
		Name: "Leinen Bezugsstoff",
		Unit: "m",
	}})
	if err != nil {
		t.Fatalf("Create material: %v", err)
	}
	materialID := created[0].ID

	now := time.Now().UTC()
	expired := now.Add(-24 * time.Hour)
	if _, err := materials.AddPrice(ctx, nil, &types.MaterialPrice{
		ID:         uuid.New(),
		MaterialID: materialID,
		Price:      30,
		Region:     "Sued",
		ValidFrom:  now.Add(-48 * time.Hour),
		ValidTo:    &expired,
	}); err != nil {
		t.Fatalf("AddPrice expired: %v", err)
	}
	if _, err := materials.AddPrice(ctx, nil, &types.MaterialPrice{
		ID:         uuid.New(),
		MaterialID: materialID,
		Price:      35,
		Region:     "Sued",
		ValidFrom:  now.Add(-12 * time.Hour),
	}); err != nil {
		t.Fatalf("AddPrice current: %v", err)
	}

	prices, err := materials.CurrentPrices(ctx, nil, "Sued", now)
	if err != nil {
		t.Fatalf("CurrentPrices: %v", err)
	}
	if len(prices) != 1 || prices[0].Price != 35 {
		t.Fatalf("CurrentPrices = %+v, want only the open-ended 35 row", prices)
	}
}
