package pipeline

import (
	"fmt"

	"github.com/handwerkml/pricing-backend/internal/jobs"
	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/embeddings"
	"github.com/handwerkml/pricing-backend/internal/platform/vecstore"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

// ProjectEmbed generates the description embedding for one project and, when
// the project is finalized, pushes the vector into the similarity index. The
// database write happens first so retrieval can fall back to a table scan
// even when the index upsert fails and the job retries.
type ProjectEmbed struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	provider embeddings.Provider
	store    vecstore.VectorStore
}

func NewProjectEmbed(baseLog *logger.Logger, projects repos.ProjectRepo, provider embeddings.Provider, store vecstore.VectorStore) *ProjectEmbed {
	return &ProjectEmbed{
		log:      baseLog.With("pipeline", types.JobTypeProjectEmbed),
		projects: projects,
		provider: provider,
		store:    store,
	}
}

func (p *ProjectEmbed) Type() string { return types.JobTypeProjectEmbed }

func (p *ProjectEmbed) Run(jc *jobs.Context) {
	projectID, ok := jc.PayloadUUID("project_id")
	if !ok {
		jc.Fail("payload", fmt.Errorf("payload missing project_id"))
		return
	}

	jc.Progress("load", 10)
	project, err := p.projects.GetByID(jc.Ctx, nil, projectID)
	if err != nil {
		jc.Fail("load", err)
		return
	}
	if project == nil {
		// Deleted between enqueue and claim; nothing to embed.
		jc.Succeed("load", map[string]any{"skipped": "project no longer exists"})
		return
	}

	jc.Progress("embed", 40)
	emb, err := p.provider.Embed(jc.Ctx, project.Description)
	if err != nil {
		jc.Fail("embed", err)
		return
	}

	jc.Progress("persist", 70)
	if err := p.projects.SetEmbedding(jc.Ctx, nil, project.ID, emb); err != nil {
		jc.Fail("persist", err)
		return
	}

	if project.IsFinalized && p.store != nil && !emb.IsZero() {
		jc.Progress("index", 90)
		err := p.store.Upsert(jc.Ctx, emb.Generation.Namespace(), []vecstore.Vector{{
			ID:     project.ID.String(),
			Values: emb.Values,
			Metadata: map[string]any{
				"project_type": project.ProjectType,
			},
		}})
		if err != nil {
			jc.Fail("index", err)
			return
		}
	}

	jc.Succeed("done", map[string]any{
		"project_id": project.ID.String(),
		"generation": string(emb.Generation),
		"indexed":    project.IsFinalized && p.store != nil && !emb.IsZero(),
	})
}
