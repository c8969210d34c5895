package vecstore

import (
	"context"
	"testing"
)

func TestMemoryStoreQueryRanksByCosine(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Upsert(ctx, "projects:minilm-384", []Vector{
		{ID: "a", Values: []float32{1, 0, 0}},
		{ID: "b", Values: []float32{0.9, 0.1, 0}},
		{ID: "c", Values: []float32{0, 1, 0}},
		{ID: "d", Values: []float32{-1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := store.QueryMatches(ctx, "projects:minilm-384", []float32{1, 0, 0}, 10, 0.3)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: want=2 got=%d (%v)", len(matches), matches)
	}
	if matches[0].ID != "a" || matches[1].ID != "b" {
		t.Fatalf("order: got=%v", matches)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("scores not descending: %v", matches)
	}

	// Negative threshold disables the cut; opposite vector comes back.
	all, err := store.QueryMatches(ctx, "projects:minilm-384", []float32{1, 0, 0}, 10, -1)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("matches without threshold: want=4 got=%d", len(all))
	}
	if all[3].ID != "d" {
		t.Fatalf("opposite vector should rank last: %v", all)
	}
}

func TestMemoryStoreTopKAndTies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Upsert(ctx, "projects:minilm-384", []Vector{
		{ID: "z", Values: []float32{1, 0}},
		{ID: "a", Values: []float32{1, 0}},
		{ID: "m", Values: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := store.QueryMatches(ctx, "projects:minilm-384", []float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("top_k cut: want=2 got=%d", len(matches))
	}
	if matches[0].ID != "a" || matches[1].ID != "m" {
		t.Fatalf("equal scores must order by id: %v", matches)
	}
}

func TestMemoryStoreNamespaceIsolationAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, "projects:minilm-384", []Vector{{ID: "a", Values: []float32{1, 0}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, "projects:german-768", []Vector{{ID: "a", Values: []float32{0, 1, 0}}}); err != nil {
		t.Fatalf("Upsert second namespace: %v", err)
	}

	// Dimension is fixed per namespace by the first write.
	err := store.Upsert(ctx, "projects:minilm-384", []Vector{{ID: "b", Values: []float32{1, 0, 0}}})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if _, err := store.QueryMatches(ctx, "projects:minilm-384", []float32{1, 0, 0}, 5, 0); err == nil {
		t.Fatalf("expected query dimension mismatch error")
	}

	matches, err := store.QueryMatches(ctx, "projects:german-768", []float32{0, 1, 0}, 5, 0)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "a" {
		t.Fatalf("namespace query: got=%v", matches)
	}

	if err := store.DeleteIDs(ctx, "projects:german-768", []string{"a", "missing"}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	matches, err = store.QueryMatches(ctx, "projects:german-768", []float32{0, 1, 0}, 5, -1)
	if err != nil {
		t.Fatalf("QueryMatches after delete: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("delete left vectors behind: %v", matches)
	}
}
