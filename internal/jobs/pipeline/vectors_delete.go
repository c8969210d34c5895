package pipeline

import (
	"fmt"

	"github.com/handwerkml/pricing-backend/internal/jobs"
	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/platform/vecstore"
	"github.com/handwerkml/pricing-backend/internal/types"
)

// VectorsDelete removes a project's vector from the similarity index after
// the row is gone from the database. Deletes are idempotent, so retries on
// an already-removed vector are harmless.
type VectorsDelete struct {
	log   *logger.Logger
	store vecstore.VectorStore
}

func NewVectorsDelete(baseLog *logger.Logger, store vecstore.VectorStore) *VectorsDelete {
	return &VectorsDelete{
		log:   baseLog.With("pipeline", types.JobTypeVectorsDelete),
		store: store,
	}
}

func (p *VectorsDelete) Type() string { return types.JobTypeVectorsDelete }

func (p *VectorsDelete) Run(jc *jobs.Context) {
	vectorID, ok := jc.PayloadString("vector_id")
	if !ok {
		jc.Fail("payload", fmt.Errorf("payload missing vector_id"))
		return
	}
	raw, ok := jc.PayloadString("generation")
	if !ok {
		jc.Fail("payload", fmt.Errorf("payload missing generation"))
		return
	}
	gen, err := types.ParseEmbeddingGeneration(raw)
	if err != nil {
		jc.Fail("payload", err)
		return
	}

	if p.store == nil {
		// No index configured: the DB delete already removed everything.
		jc.Succeed("done", map[string]any{"skipped": "no vector store configured"})
		return
	}

	jc.Progress("delete", 50)
	if err := p.store.DeleteIDs(jc.Ctx, gen.Namespace(), []string{vectorID}); err != nil {
		jc.Fail("delete", err)
		return
	}

	jc.Succeed("done", map[string]any{
		"vector_id":  vectorID,
		"generation": string(gen),
	})
}
