package qdrant

import (
	"testing"

	"github.com/handwerkml/pricing-backend/internal/types"
)

func TestResolveConfigDerivesDefaultsFromGeneration(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "")
	t.Setenv("QDRANT_VECTOR_DIM", "")

	cfg, err := ResolveConfigFromEnv(types.Gen384)
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != "projects_minilm_384" {
		t.Fatalf("Collection: want=%q got=%q", "projects_minilm_384", cfg.Collection)
	}
	if cfg.VectorDim != 384 {
		t.Fatalf("VectorDim: want=384 got=%d", cfg.VectorDim)
	}
	if cfg.NamespacePrefix != DefaultNamespacePrefix {
		t.Fatalf("NamespacePrefix: want=%q got=%q", DefaultNamespacePrefix, cfg.NamespacePrefix)
	}
	if cfg.Generation != types.Gen384 {
		t.Fatalf("Generation: want=%q got=%q", types.Gen384, cfg.Generation)
	}
}

func TestResolveConfigHonorsOverrides(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "projects_custom")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "staging")
	t.Setenv("QDRANT_VECTOR_DIM", "768")

	cfg, err := ResolveConfigFromEnv(types.Gen768)
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != "projects_custom" {
		t.Fatalf("Collection: want=%q got=%q", "projects_custom", cfg.Collection)
	}
	if cfg.NamespacePrefix != "staging" {
		t.Fatalf("NamespacePrefix: want=%q got=%q", "staging", cfg.NamespacePrefix)
	}
	if cfg.VectorDim != 768 {
		t.Fatalf("VectorDim: want=768 got=%d", cfg.VectorDim)
	}
}

func TestResolveConfigUnknownGeneration(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")

	_, err := ResolveConfigFromEnv(types.EmbeddingGeneration("gpt-1536"))
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
	}
	if cfgErr.Code != ConfigErrorUnknownGeneration {
		t.Fatalf("code: want=%q got=%q", ConfigErrorUnknownGeneration, cfgErr.Code)
	}
}

func TestResolveConfigMissingURL(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	t.Setenv("QDRANT_VECTOR_DIM", "")

	_, err := ResolveConfigFromEnv(types.Gen384)
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
	}
	if cfgErr.Code != ConfigErrorMissingURL {
		t.Fatalf("code: want=%q got=%q", ConfigErrorMissingURL, cfgErr.Code)
	}
}

func TestResolveConfigInvalidURL(t *testing.T) {
	t.Setenv("QDRANT_URL", "qdrant:6333")
	t.Setenv("QDRANT_VECTOR_DIM", "")

	_, err := ResolveConfigFromEnv(types.Gen384)
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
	}
	if cfgErr.Code != ConfigErrorInvalidURL {
		t.Fatalf("code: want=%q got=%q", ConfigErrorInvalidURL, cfgErr.Code)
	}
}

func TestResolveConfigVectorDimMustMatchGeneration(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_VECTOR_DIM", "768")

	_, err := ResolveConfigFromEnv(types.Gen384)
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
	}
	if cfgErr.Code != ConfigErrorVectorDimMismatch {
		t.Fatalf("code: want=%q got=%q", ConfigErrorVectorDimMismatch, cfgErr.Code)
	}
}

func TestResolveConfigInvalidVectorDim(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_VECTOR_DIM", "not-a-number")

	_, err := ResolveConfigFromEnv(types.Gen384)
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
	}
	if cfgErr.Code != ConfigErrorInvalidVectorDim {
		t.Fatalf("code: want=%q got=%q", ConfigErrorInvalidVectorDim, cfgErr.Code)
	}
}

func TestValidateConfigRejectsGenerationDimConflict(t *testing.T) {
	err := ValidateConfig(Config{
		URL:        "http://qdrant:6333",
		Collection: "projects_minilm_384",
		Generation: types.Gen384,
		VectorDim:  768,
	})
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
	}
	if cfgErr.Code != ConfigErrorVectorDimMismatch {
		t.Fatalf("code: want=%q got=%q", ConfigErrorVectorDimMismatch, cfgErr.Code)
	}
}
