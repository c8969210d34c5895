package qdrant

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/handwerkml/pricing-backend/internal/types"
)

// DefaultNamespacePrefix qualifies every namespace this deployment writes,
// so several environments can share one Qdrant instance.
const DefaultNamespacePrefix = "hw"

// Config carries the index settings for one embedding generation. A
// collection holds vectors from exactly one generation: the generation fixes
// the dimension, and by default also names the collection.
type Config struct {
	URL             string
	Collection      string
	NamespacePrefix string
	Generation      types.EmbeddingGeneration
	VectorDim       int
}

// CollectionForGeneration derives the default collection name, e.g.
// "projects_minilm_384". Keeping the generation in the name means a model
// swap lands in a fresh collection instead of corrupting the old one.
func CollectionForGeneration(gen types.EmbeddingGeneration) string {
	return "projects_" + strings.ReplaceAll(string(gen), "-", "_")
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL        ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL        ConfigErrorCode = "invalid_url"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorUnknownGeneration ConfigErrorCode = "unknown_generation"
	ConfigErrorVectorDimMismatch ConfigErrorCode = "vector_dim_mismatch"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	switch e.Code {
	case ConfigErrorMissingURL:
		return "QDRANT_URL is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf(
			"invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333",
			e.Value,
		)
	case ConfigErrorMissingCollection:
		return "qdrant collection name is required"
	case ConfigErrorUnknownGeneration:
		return fmt.Sprintf("unknown embedding generation %q", e.Value)
	case ConfigErrorVectorDimMismatch:
		return fmt.Sprintf(
			"QDRANT_VECTOR_DIM=%s does not match the embedding generation's dimension",
			e.Value,
		)
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf(
			"invalid QDRANT_VECTOR_DIM=%q; expected positive integer",
			e.Value,
		)
	default:
		return "invalid qdrant config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveConfigFromEnv builds the config for the generation this process
// embeds with. QDRANT_URL is required; QDRANT_COLLECTION and
// QDRANT_NAMESPACE_PREFIX override the derived defaults. QDRANT_VECTOR_DIM
// is accepted for explicitness but must agree with the generation.
func ResolveConfigFromEnv(gen types.EmbeddingGeneration) (Config, error) {
	if !gen.Valid() {
		return Config{}, &ConfigError{Code: ConfigErrorUnknownGeneration, Value: string(gen)}
	}

	cfg := Config{
		URL:             strings.TrimSpace(os.Getenv("QDRANT_URL")),
		Collection:      strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")),
		NamespacePrefix: strings.TrimSpace(os.Getenv("QDRANT_NAMESPACE_PREFIX")),
		Generation:      gen,
		VectorDim:       gen.Dim(),
	}
	if cfg.Collection == "" {
		cfg.Collection = CollectionForGeneration(gen)
	}
	if cfg.NamespacePrefix == "" {
		cfg.NamespacePrefix = DefaultNamespacePrefix
	}

	if rawDim := strings.TrimSpace(os.Getenv("QDRANT_VECTOR_DIM")); rawDim != "" {
		parsed, err := strconv.Atoi(rawDim)
		if err != nil || parsed <= 0 {
			return Config{}, &ConfigError{
				Code:  ConfigErrorInvalidVectorDim,
				Value: rawDim,
				Cause: err,
			}
		}
		if parsed != gen.Dim() {
			return Config{}, &ConfigError{Code: ConfigErrorVectorDimMismatch, Value: rawDim}
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig validates a Qdrant config, including one built by hand.
func ValidateConfig(cfg Config) error {
	if cfg.URL == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return &ConfigError{
			Code:  ConfigErrorInvalidURL,
			Value: cfg.URL,
			Cause: err,
		}
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection}
	}
	if cfg.VectorDim <= 0 {
		return &ConfigError{
			Code:  ConfigErrorInvalidVectorDim,
			Value: strconv.Itoa(cfg.VectorDim),
		}
	}
	if cfg.Generation.Valid() && cfg.VectorDim != cfg.Generation.Dim() {
		return &ConfigError{
			Code:  ConfigErrorVectorDimMismatch,
			Value: strconv.Itoa(cfg.VectorDim),
		}
	}
	return nil
}
