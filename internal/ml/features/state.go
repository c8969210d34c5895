package features

import "time"

// State is the frozen, serializable form of a fitted Engineer. It travels
// inside the trained-model bundle so train-time and predict-time encodings
// can never diverge.
type State struct {
	MissingStrategy MissingStrategy    `json:"missing_strategy"`
	WoodEncoder     *LabelEncoder      `json:"wood_encoder"`
	TypeEncoder     *LabelEncoder      `json:"type_encoder"`
	RegionEncoder   *LabelEncoder      `json:"region_encoder"`
	NumericFill     map[string]float64 `json:"numeric_fill"`
	CategoricFill   map[string]string  `json:"categoric_fill"`
	FeatureNames    []string           `json:"feature_names"`
}

func (e *Engineer) State() State {
	return State{
		MissingStrategy: e.strategy,
		WoodEncoder:     e.woodEncoder,
		TypeEncoder:     e.typeEncoder,
		RegionEncoder:   e.regionEncoder,
		NumericFill:     e.numericFill,
		CategoricFill:   e.categoricFill,
		FeatureNames:    e.FeatureNames(),
	}
}

// FromState rebuilds a fitted Engineer from persisted state.
func FromState(s State) *Engineer {
	e := NewEngineer(s.MissingStrategy)
	if s.WoodEncoder != nil {
		e.woodEncoder = s.WoodEncoder
	}
	if s.TypeEncoder != nil {
		e.typeEncoder = s.TypeEncoder
	}
	if s.RegionEncoder != nil {
		e.regionEncoder = s.RegionEncoder
	}
	if s.NumericFill != nil {
		e.numericFill = s.NumericFill
	}
	if s.CategoricFill != nil {
		e.categoricFill = s.CategoricFill
	}
	e.fitted = true
	return e
}

// SetNow overrides the clock used for temporal features. Tests use this to
// keep months_old stable.
func (e *Engineer) SetNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}
