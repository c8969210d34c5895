package regressor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/handwerkml/pricing-backend/internal/ml/features"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
)

// bundle is the on-disk model artifact: everything needed to reproduce the
// exact prediction pipeline, including the fitted feature-engineer state.
type bundle struct {
	Version   string         `json:"model_version"`
	TrainedAt time.Time      `json:"trained_at"`
	Params    Params         `json:"params"`
	Base      float64        `json:"base_prediction"`
	Trees     []*node        `json:"trees"`
	Features  features.State `json:"features"`
}

// Save writes the trained model as a JSON bundle. The write goes through a
// temp file and rename so a crash never leaves a truncated artifact behind.
func (r *Regressor) Save(path string) error {
	if !r.trained {
		return mlerr.ModelUnavailable("price-regressor", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	raw, err := json.Marshal(bundle{
		Version:   r.version,
		TrainedAt: time.Now().UTC(),
		Params:    r.params,
		Base:      r.base,
		Trees:     r.trees,
		Features:  r.state,
	})
	if err != nil {
		return fmt.Errorf("marshal model bundle: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write model bundle: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize model bundle: %w", err)
	}
	return nil
}

// Load reads a saved bundle. A missing or unreadable artifact is a
// ModelUnavailableError so callers can distinguish "not trained yet" from
// input problems.
func Load(path string) (*Regressor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, mlerr.ModelUnavailable("price-regressor", err)
	}
	var b bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, mlerr.ModelUnavailable("price-regressor", fmt.Errorf("corrupt model bundle: %w", err))
	}
	if len(b.Trees) == 0 {
		return nil, mlerr.ModelUnavailable("price-regressor", fmt.Errorf("model bundle has no trees"))
	}

	version := b.Version
	if version == "" {
		version = "unknown"
	}
	return &Regressor{
		params:  b.Params.sanitized(),
		base:    b.Base,
		trees:   b.Trees,
		state:   b.Features,
		version: version,
		trained: true,
	}, nil
}
