package similarity

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/platform/vecstore"
	"github.com/handwerkml/pricing-backend/internal/types"
)

const (
	// DefaultTopK bounds the neighbor list handed to the confidence and
	// pricing steps.
	DefaultTopK = 20

	// DefaultScoreThreshold cuts weak cosine matches. Neighbors below it
	// add noise to the variance aggregate without adding signal.
	DefaultScoreThreshold = 0.3
)

// Match is one retrieved neighbor with its exact cosine score.
type Match struct {
	Project types.Project
	Score   float64
}

// Options tune one retrieval call. Zero values pick the defaults.
type Options struct {
	TopK           int
	ScoreThreshold *float64

	// AllowDegraded turns an unreachable vector index into an empty result
	// instead of an IndexUnavailableError. Callers that can survive on a
	// model-only estimate opt in; everyone else gets the error.
	AllowDegraded bool
}

func (o Options) topK() int {
	if o.TopK <= 0 {
		return DefaultTopK
	}
	return o.TopK
}

func (o Options) threshold() float64 {
	if o.ScoreThreshold == nil {
		return DefaultScoreThreshold
	}
	return *o.ScoreThreshold
}

// Corpus is the store of retrieval candidates. Only finalized projects that
// already carry an embedding belong to the corpus; drafts and rows awaiting
// embedding generation are invisible to retrieval.
type Corpus interface {
	ListFinalizedWithEmbeddings(ctx context.Context, gen types.EmbeddingGeneration) ([]types.Project, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]types.Project, error)
}

// Retriever finds the historical projects most similar to a query embedding.
// With a vector store configured it recalls candidates from the index and
// re-scores them locally; without one it scans the corpus linearly. Both
// paths produce the same ranking for the same data.
type Retriever struct {
	log    *logger.Logger
	store  vecstore.VectorStore
	corpus Corpus
}

func NewRetriever(log *logger.Logger, store vecstore.VectorStore, corpus Corpus) *Retriever {
	return &Retriever{log: log, store: store, corpus: corpus}
}

// FindSimilar returns at most TopK neighbors with score >= threshold, sorted
// by score descending. Ties go to the newer project_date, then the smaller
// id, so the ordering is total and stable across runs.
func (r *Retriever) FindSimilar(ctx context.Context, query types.Embedding, opts Options) ([]Match, error) {
	if err := query.Validate(); err != nil {
		return nil, mlerr.Validation("query_embedding", query.Generation, err.Error())
	}
	if query.IsZero() {
		// Zero vector means "no signal": cosine against everything is 0,
		// which never clears a positive threshold.
		return nil, nil
	}

	if r.store == nil {
		return r.scan(ctx, query, opts)
	}

	matches, err := r.fromIndex(ctx, query, opts)
	if err != nil {
		if opts.AllowDegraded {
			r.log.Warn("similarity: vector index unavailable, degrading to empty result", "error", err)
			return nil, nil
		}
		return nil, err
	}
	return matches, nil
}

// fromIndex recalls candidate ids from the vector index, hydrates them from
// the corpus and re-scores locally with the exact cosine. The index score is
// recall-only; the local score decides the final ranking so index and scan
// paths cannot disagree.
func (r *Retriever) fromIndex(ctx context.Context, query types.Embedding, opts Options) ([]Match, error) {
	// Over-fetch: the index cut is approximate and hydration can drop rows
	// that were deleted or un-finalized since indexing.
	recall := opts.topK() * 3
	hits, err := r.store.QueryMatches(ctx, query.Generation.Namespace(), query.Values, recall, opts.threshold())
	if err != nil {
		return nil, mlerr.IndexUnavailable("qdrant", err)
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			r.log.Warn("similarity: skipping non-uuid point id from index", "id", h.ID)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	projects, err := r.corpus.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r.rank(query, projects, opts)
}

// scan computes the cosine against every corpus row. Linear, but the corpus
// is small enough for the fallback path and for tests.
func (r *Retriever) scan(ctx context.Context, query types.Embedding, opts Options) ([]Match, error) {
	projects, err := r.corpus.ListFinalizedWithEmbeddings(ctx, query.Generation)
	if err != nil {
		return nil, err
	}
	return r.rank(query, projects, opts)
}

func (r *Retriever) rank(query types.Embedding, projects []types.Project, opts Options) ([]Match, error) {
	threshold := opts.threshold()

	matches := make([]Match, 0, len(projects))
	for _, p := range projects {
		if !p.IsFinalized {
			continue
		}
		emb, ok := p.Embedding()
		if !ok || emb.Generation != query.Generation {
			continue
		}
		score, err := types.Cosine(query, emb)
		if err != nil {
			return nil, err
		}
		if score < threshold {
			continue
		}
		matches = append(matches, Match{Project: p, Score: score})
	}

	sortMatches(matches)

	if k := opts.topK(); len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		di, dj := matches[i].Project.ProjectDate, matches[j].Project.ProjectDate
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return matches[i].Project.ID.String() < matches[j].Project.ID.String()
	})
}
