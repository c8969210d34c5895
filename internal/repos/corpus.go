package repos

import (
	"context"

	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/types"
)

// ProjectCorpus narrows ProjectRepo to the two reads the similarity
// retriever needs, dropping the transaction parameter.
type ProjectCorpus struct {
	repo ProjectRepo
}

func NewProjectCorpus(repo ProjectRepo) *ProjectCorpus {
	return &ProjectCorpus{repo: repo}
}

func (c *ProjectCorpus) ListFinalizedWithEmbeddings(ctx context.Context, gen types.EmbeddingGeneration) ([]types.Project, error) {
	return c.repo.ListFinalizedWithEmbeddings(ctx, nil, gen)
}

func (c *ProjectCorpus) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]types.Project, error) {
	return c.repo.GetByIDs(ctx, nil, ids)
}
