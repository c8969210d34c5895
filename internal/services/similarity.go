package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	redisclient "github.com/handwerkml/pricing-backend/internal/clients/redis"
	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/embeddings"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/ml/similarity"
)

// SimilarResponse is the payload of the similarity-search endpoint.
type SimilarResponse struct {
	InputEmbeddingDimension int                     `json:"input_embedding_dimension"`
	SimilarProjects         []SimilarProjectSummary `json:"similar_projects"`
	Count                   int                     `json:"count"`
}

type SimilarityService interface {
	FindSimilar(ctx context.Context, description string, topK int) (*SimilarResponse, error)
}

type similarityService struct {
	db        *gorm.DB
	log       *logger.Logger
	provider  embeddings.Provider
	retriever *similarity.Retriever
	cache     redisclient.Cache
}

// NewSimilarityService wires the search endpoint. cache may be nil; without
// it every request recomputes.
func NewSimilarityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	provider embeddings.Provider,
	retriever *similarity.Retriever,
	cache redisclient.Cache,
) SimilarityService {
	return &similarityService{
		db:        db,
		log:       baseLog.With("service", "SimilarityService"),
		provider:  provider,
		retriever: retriever,
		cache:     cache,
	}
}

// FindSimilar embeds the description and retrieves the closest finalized
// projects. Responses are cached for a day keyed by generation, description
// and top_k; retrieval here never degrades silently, an unreachable index
// is surfaced to the caller.
func (s *similarityService) FindSimilar(ctx context.Context, description string, topK int) (*SimilarResponse, error) {
	if description == "" {
		return nil, mlerr.Validation("description", description, "description is required")
	}
	if topK <= 0 {
		topK = 10
	}

	key := redisclient.Key("similarity",
		string(s.provider.Generation()), description, fmt.Sprint(topK))
	if s.cache != nil {
		var cached SimilarResponse
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	emb, err := s.provider.Embed(ctx, description)
	if err != nil {
		return nil, err
	}
	matches, err := s.retriever.FindSimilar(ctx, emb, similarity.Options{TopK: topK})
	if err != nil {
		return nil, err
	}

	response := &SimilarResponse{
		InputEmbeddingDimension: emb.Generation.Dim(),
		SimilarProjects:         summarize(matches),
		Count:                   len(matches),
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, response, redisclient.DefaultTTL)
	}
	return response, nil
}
