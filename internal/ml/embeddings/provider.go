package embeddings

import (
	"context"

	"github.com/handwerkml/pricing-backend/internal/types"
)

// Provider turns free text into fixed-length dense vectors. Implementations
// are bound to exactly one embedding generation; during a migration window
// the 384d and 768d providers run side by side and callers pick one
// explicitly.
//
// Empty or whitespace-only text yields the zero vector of the provider's
// dimension. A zero vector means "no signal": it must never be indexed or
// compared as a real semantic representation.
type Provider interface {
	Generation() types.EmbeddingGeneration
	Embed(ctx context.Context, text string) (types.Embedding, error)
	// EmbedBatch amortizes the model's fixed per-call overhead. For the same
	// inputs it produces bit-identical vectors to Embed.
	EmbedBatch(ctx context.Context, texts []string) ([]types.Embedding, error)
}
