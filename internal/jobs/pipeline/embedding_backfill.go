package pipeline

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/handwerkml/pricing-backend/internal/jobs"
	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/embeddings"
	"github.com/handwerkml/pricing-backend/internal/platform/vecstore"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

const (
	backfillBatchSize   = 50
	backfillConcurrency = 4
)

// EmbeddingBackfill re-embeds projects that have no vector for the target
// generation. It drives generation migrations: point the provider at the new
// model, enqueue one backfill job, and the corpus converges batch by batch.
type EmbeddingBackfill struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	provider embeddings.Provider
	store    vecstore.VectorStore
}

func NewEmbeddingBackfill(baseLog *logger.Logger, projects repos.ProjectRepo, provider embeddings.Provider, store vecstore.VectorStore) *EmbeddingBackfill {
	return &EmbeddingBackfill{
		log:      baseLog.With("pipeline", types.JobTypeEmbeddingBackfill),
		projects: projects,
		provider: provider,
		store:    store,
	}
}

func (p *EmbeddingBackfill) Type() string { return types.JobTypeEmbeddingBackfill }

func (p *EmbeddingBackfill) Run(jc *jobs.Context) {
	gen := p.provider.Generation()
	if raw, ok := jc.PayloadString("generation"); ok {
		parsed, err := types.ParseEmbeddingGeneration(raw)
		if err != nil {
			jc.Fail("payload", err)
			return
		}
		if parsed != gen {
			jc.Fail("payload", fmt.Errorf("requested generation %s but provider serves %s", parsed, gen))
			return
		}
	}

	var processed, indexed, failed int
	for batch := 0; ; batch++ {
		jc.Progress("scan", progressEstimate(batch))
		pending, err := p.projects.ListMissingEmbedding(jc.Ctx, nil, gen, backfillBatchSize)
		if err != nil {
			jc.Fail("scan", err)
			return
		}
		if len(pending) == 0 {
			break
		}

		texts := make([]string, len(pending))
		for i, project := range pending {
			texts[i] = project.Description
		}
		embs, err := p.provider.EmbedBatch(jc.Ctx, texts)
		if err != nil {
			jc.Fail("embed", err)
			return
		}
		if len(embs) != len(pending) {
			jc.Fail("embed", fmt.Errorf("provider returned %d embeddings for %d texts", len(embs), len(pending)))
			return
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(jc.Ctx)
		g.SetLimit(backfillConcurrency)
		for i := range pending {
			project := pending[i]
			emb := embs[i]
			g.Go(func() error {
				if err := p.projects.SetEmbedding(gctx, nil, project.ID, emb); err != nil {
					return fmt.Errorf("project %s: %w", project.ID, err)
				}
				mu.Lock()
				processed++
				mu.Unlock()
				if !project.IsFinalized || p.store == nil || emb.IsZero() {
					return nil
				}
				err := p.store.Upsert(gctx, gen.Namespace(), []vecstore.Vector{{
					ID:       project.ID.String(),
					Values:   emb.Values,
					Metadata: map[string]any{"project_type": project.ProjectType},
				}})
				if err != nil {
					// Index writes are retried on the next backfill pass;
					// the durable DB copy is already in place.
					p.log.Warn("Index upsert failed during backfill", "project_id", project.ID, "error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					return nil
				}
				mu.Lock()
				indexed++
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			jc.Fail("persist", err)
			return
		}
		if len(pending) < backfillBatchSize {
			break
		}
	}

	jc.Succeed("done", map[string]any{
		"generation":     string(gen),
		"processed":      processed,
		"indexed":        indexed,
		"index_failures": failed,
	})
}

// progressEstimate ramps toward but never reaches 100; the total amount of
// work is unknown until the scan comes back empty.
func progressEstimate(batch int) int {
	pct := 5 + batch*10
	if pct > 95 {
		pct = 95
	}
	return pct
}
