package services

import (
	"sync"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/features"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/ml/regressor"
	"github.com/handwerkml/pricing-backend/internal/utils"
)

// ModelStore holds the live regressor and its feature engineer. Training
// swaps both atomically; prediction readers never see a half-updated pair.
type ModelStore struct {
	mu       sync.RWMutex
	log      *logger.Logger
	path     string
	model    *regressor.Regressor
	engineer *features.Engineer
}

func NewModelStore(log *logger.Logger) *ModelStore {
	return &ModelStore{
		log:  log.With("service", "ModelStore"),
		path: utils.GetEnv("MODEL_PATH", "models/price_model.json", log),
	}
}

func (s *ModelStore) Path() string { return s.path }

// LoadFromDisk restores the last trained bundle. A missing artifact is not
// fatal at startup; prediction requests report ModelUnavailable until a
// training run succeeds.
func (s *ModelStore) LoadFromDisk() error {
	model, err := regressor.Load(s.path)
	if err != nil {
		return err
	}
	s.Swap(model)
	s.log.Info("Loaded trained model", "path", s.path, "version", model.Version())
	return nil
}

// Swap installs a freshly trained model and the engineer rebuilt from its
// persisted feature state.
func (s *ModelStore) Swap(model *regressor.Regressor) {
	engineer := features.FromState(model.FeatureState())
	s.mu.Lock()
	s.model = model
	s.engineer = engineer
	s.mu.Unlock()
}

// Current returns the live model pair, or ModelUnavailable when nothing has
// been trained or loaded yet.
func (s *ModelStore) Current() (*regressor.Regressor, *features.Engineer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil || s.engineer == nil {
		return nil, nil, mlerr.ModelUnavailable("price-regressor", nil)
	}
	return s.model, s.engineer, nil
}
