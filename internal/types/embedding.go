package types

import (
	"fmt"
	"math"
	"strings"
)

// EmbeddingGeneration tags which embedding model produced a vector. Vectors
// from different generations live in separate index namespaces and are never
// mixed in one similarity computation.
type EmbeddingGeneration string

const (
	// Gen384 is the current sentence-transformer generation (384 dims).
	Gen384 EmbeddingGeneration = "minilm-384"
	// Gen768 is the German-optimized upgrade generation (768 dims). Both
	// generations coexist during the migration window.
	Gen768 EmbeddingGeneration = "german-768"
)

func (g EmbeddingGeneration) Dim() int {
	switch g {
	case Gen384:
		return 384
	case Gen768:
		return 768
	default:
		return 0
	}
}

func (g EmbeddingGeneration) Valid() bool { return g.Dim() > 0 }

// Namespace is the vector-index namespace for this generation.
func (g EmbeddingGeneration) Namespace() string {
	return "projects:" + string(g)
}

func ParseEmbeddingGeneration(s string) (EmbeddingGeneration, error) {
	g := EmbeddingGeneration(strings.TrimSpace(s))
	if !g.Valid() {
		return "", fmt.Errorf("unknown embedding generation %q", s)
	}
	return g, nil
}

// Embedding is a tagged dense vector. The generation tag, not the slice
// length, decides which vectors are comparable.
type Embedding struct {
	Generation EmbeddingGeneration `json:"generation"`
	Values     []float32           `json:"values"`
}

// ZeroEmbedding is the "no signal" vector for empty text. It compares as
// similarity 0 against everything and must never be indexed.
func ZeroEmbedding(g EmbeddingGeneration) Embedding {
	return Embedding{Generation: g, Values: make([]float32, g.Dim())}
}

func (e Embedding) IsZero() bool {
	for _, v := range e.Values {
		if v != 0 {
			return false
		}
	}
	return true
}

func (e Embedding) Validate() error {
	if !e.Generation.Valid() {
		return fmt.Errorf("embedding has unknown generation %q", e.Generation)
	}
	if len(e.Values) != e.Generation.Dim() {
		return fmt.Errorf("embedding dimension mismatch: generation %s expects %d, got %d",
			e.Generation, e.Generation.Dim(), len(e.Values))
	}
	return nil
}

// Cosine returns the cosine similarity of two same-generation embeddings in
// [-1, 1]. Mixing generations is a hard error, not a silent zero.
func Cosine(a, b Embedding) (float64, error) {
	if a.Generation != b.Generation {
		return 0, fmt.Errorf("cannot compare embeddings across generations: %s vs %s", a.Generation, b.Generation)
	}
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return cosine(a.Values, b.Values), nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
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

// CrossGenerationDiagnostic compares vectors from different generations for
// migration dashboards only. Both vectors are unit-normalized and the shorter
// one zero-padded before the dot product. The result is a diagnostic metric;
// it must never be used for ranking.
func CrossGenerationDiagnostic(a, b Embedding) float64 {
	av := unitNormalize(a.Values)
	bv := unitNormalize(b.Values)
	if len(av) < len(bv) {
		av = append(av, make([]float32, len(bv)-len(av))...)
	} else if len(bv) < len(av) {
		bv = append(bv, make([]float32, len(av)-len(bv))...)
	}
	var dot float64
	for i := range av {
		dot += float64(av[i]) * float64(bv[i])
	}
	return dot
}

func unitNormalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
