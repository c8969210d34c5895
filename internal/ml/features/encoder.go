package features

import (
	"encoding/json"
	"sort"
	"strings"
)

// LabelEncoder maps categorical values to stable integer codes. It is fitted
// once at training time and persisted with the model; the same encoder state
// must serve every later prediction or feature vectors drift apart.
//
// Values never seen at fit time map to the reserved unknown bucket: the code
// one past the last known class. Unseen categories are an expected runtime
// condition, not an error.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{index: map[string]int{}}
}

// Fit assigns codes by sorted unique value so encoding does not depend on
// input order.
func (e *LabelEncoder) Fit(values []string) {
	seen := map[string]struct{}{}
	classes := make([]string, 0, len(values))
	for _, v := range values {
		v = normalizeCategory(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
}

// Transform returns the code for v, or the unknown bucket when v was never
// seen at fit time.
func (e *LabelEncoder) Transform(v string) int {
	if code, ok := e.index[normalizeCategory(v)]; ok {
		return code
	}
	return e.UnknownCode()
}

// Known reports whether v was part of the training vocabulary.
func (e *LabelEncoder) Known(v string) bool {
	_, ok := e.index[normalizeCategory(v)]
	return ok
}

// UnknownCode is the fallback bucket: one past the highest known code.
func (e *LabelEncoder) UnknownCode() int {
	return len(e.classes)
}

func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

func normalizeCategory(v string) string {
	return strings.TrimSpace(v)
}

// The encoder serializes as its class list; codes are implied by position.

func (e *LabelEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.classes)
}

func (e *LabelEncoder) UnmarshalJSON(data []byte) error {
	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return err
	}
	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
	return nil
}
