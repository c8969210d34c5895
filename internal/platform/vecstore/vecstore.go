package vecstore

import "context"

// VectorStore is the authoritative similarity index. Namespaces isolate
// embedding generations so 384d and 768d vectors never meet in one query.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryMatches returns IDs with their similarity scores (higher is
	// better), already cut at scoreThreshold. Pass a negative threshold to
	// disable the cut.
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int, scoreThreshold float64) ([]VectorMatch, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
}

type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

type VectorMatch struct {
	ID    string
	Score float64
}
