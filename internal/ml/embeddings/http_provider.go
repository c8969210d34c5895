package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/types"
)

const maxErrorBodyBytes = 1024

type Config struct {
	URL        string
	Generation types.EmbeddingGeneration
	Timeout    time.Duration
}

// httpProvider talks to a sentence-transformer inference server (one model
// per process, POST /embed with a list of inputs). The first successful call
// warms the remote model; concurrent first callers share the in-flight
// warm-up instead of triggering a second load. Only success is latched — a
// failed health check is reported to the caller and the next call checks
// again, so a backend restart clears itself without restarting this process.
type httpProvider struct {
	log        *logger.Logger
	baseURL    string
	generation types.EmbeddingGeneration
	http       *http.Client

	warmMu sync.Mutex
	warmed bool
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

func NewHTTPProvider(log *logger.Logger, cfg Config) (Provider, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("embeddings URL required")
	}
	if !cfg.Generation.Valid() {
		return nil, fmt.Errorf("unknown embedding generation %q", cfg.Generation)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpProvider{
		log:        log.With("service", "EmbeddingsProvider", "generation", string(cfg.Generation)),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		generation: cfg.Generation,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

func (p *httpProvider) Generation() types.EmbeddingGeneration {
	return p.generation
}

func (p *httpProvider) Embed(ctx context.Context, text string) (types.Embedding, error) {
	// Single embeds route through the batch path so both produce
	// bit-identical vectors for the same input.
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return types.Embedding{}, err
	}
	return out[0], nil
}

func (p *httpProvider) EmbedBatch(ctx context.Context, texts []string) ([]types.Embedding, error) {
	out := make([]types.Embedding, len(texts))

	// Blank inputs get the zero vector without touching the backend.
	inputs := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			out[i] = types.ZeroEmbedding(p.generation)
			continue
		}
		inputs = append(inputs, trimmed)
		positions = append(positions, i)
	}
	if len(inputs) == 0 {
		return out, nil
	}

	if err := p.warm(); err != nil {
		return nil, err
	}

	vectors, err := p.requestEmbeddings(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(inputs) {
		return nil, mlerr.ModelUnavailable(string(p.generation),
			fmt.Errorf("embedding count mismatch: sent=%d received=%d", len(inputs), len(vectors)))
	}

	dim := p.generation.Dim()
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, mlerr.ModelUnavailable(string(p.generation),
				fmt.Errorf("embedding dimension mismatch: expected=%d got=%d", dim, len(vec)))
		}
		out[positions[i]] = types.Embedding{Generation: p.generation, Values: vec}
	}
	return out, nil
}

// warm performs the model readiness check. The mutex makes later callers
// block on the same in-flight load; only a successful check is remembered.
// Failures return to the caller and the next call retries /health, so
// the job layer's retry policy can ride out a backend restart. The health
// request runs on a provider-owned context (bounded by the client timeout)
// so a canceled caller cannot poison the shared warm-up.
func (p *httpProvider) warm() error {
	p.warmMu.Lock()
	defer p.warmMu.Unlock()
	if p.warmed {
		return nil
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return mlerr.ModelUnavailable(string(p.generation), err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return mlerr.ModelUnavailable(string(p.generation), err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mlerr.ModelUnavailable(string(p.generation),
			fmt.Errorf("embedding backend health returned status=%d", resp.StatusCode))
	}

	p.warmed = true
	p.log.Info("Embedding model ready", "warm_duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (p *httpProvider) requestEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(embedRequest{Inputs: inputs}); err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embed", &buf)
	if err != nil {
		return nil, mlerr.ModelUnavailable(string(p.generation), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, mlerr.ModelUnavailable(string(p.generation), err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if readErr != nil {
		return nil, mlerr.ModelUnavailable(string(p.generation), readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mlerr.ModelUnavailable(string(p.generation),
			fmt.Errorf("embedding backend status=%d body=%q", resp.StatusCode, truncateBody(raw)))
	}

	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, mlerr.ModelUnavailable(string(p.generation),
			fmt.Errorf("decode embed response: %w", err))
	}
	return vectors, nil
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
