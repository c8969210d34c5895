package vecstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a linear-scan VectorStore held in process memory. It serves
// small corpora and tests; the Qdrant adapter is the production index. The
// first vector written to a namespace fixes that namespace's dimension.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Vector
	dims       map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]Vector),
		dims:       make(map[string]int),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if namespace == "" {
		return fmt.Errorf("namespace required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector id required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("vector %s has no values", v.ID)
		}
		if dim, ok := s.dims[namespace]; ok && dim != len(v.Values) {
			return fmt.Errorf("vector %s dimension mismatch: namespace=%d got=%d", v.ID, dim, len(v.Values))
		}
	}
	bucket := s.namespaces[namespace]
	if bucket == nil {
		bucket = make(map[string]Vector)
		s.namespaces[namespace] = bucket
	}
	for _, v := range vectors {
		if _, ok := s.dims[namespace]; !ok {
			s.dims[namespace] = len(v.Values)
		}
		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		bucket[v.ID] = Vector{ID: v.ID, Values: values, Metadata: v.Metadata}
	}
	return nil
}

func (s *MemoryStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, scoreThreshold float64) ([]VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []VectorMatch{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if dim, ok := s.dims[namespace]; ok && dim != len(q) {
		return nil, fmt.Errorf("query dimension mismatch: namespace=%d got=%d", dim, len(q))
	}

	matches := make([]VectorMatch, 0, len(s.namespaces[namespace]))
	for id, v := range s.namespaces[namespace] {
		score := cosine32(q, v.Values)
		if score < scoreThreshold {
			continue
		}
		matches = append(matches, VectorMatch{ID: id, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.namespaces[namespace]
	for _, id := range ids {
		delete(bucket, id)
	}
	return nil
}

func cosine32(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
