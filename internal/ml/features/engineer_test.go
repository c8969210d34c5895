package features

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func trainingRows() []Attributes {
	return []Attributes{
		row("Eiche", "Treppenbau", "Sued", 20, 3, date(2026, 2, 1)),
		row("Kiefer", "Dachstuhl", "Nord", 80, 2, date(2025, 8, 1)),
		row("Eiche", "Treppenbau", "Sued", 35, 4, date(2026, 5, 1)),
		row("Buche", "Moebelbau", "West", 12, 1, date(2024, 8, 1)),
	}
}

func row(wood, ptype, region string, area float64, complexity int, d time.Time) Attributes {
	return Attributes{
		WoodType:     wood,
		ProjectType:  ptype,
		Region:       region,
		TotalAreaSqm: &area,
		Complexity:   &complexity,
		ProjectDate:  &d,
		Description:  "Beispielprojekt",
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fittedEngineer(t *testing.T) *Engineer {
	t.Helper()
	e := NewEngineer(FillMean)
	e.SetNow(fixedNow)
	if err := e.Fit(trainingRows()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return e
}

func TestExtractIsDeterministic(t *testing.T) {
	e := fittedEngineer(t)
	attrs := row("Eiche", "Treppenbau", "Sued", 20, 3, date(2026, 2, 1))

	first, err := e.Extract(attrs)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Extract(attrs)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("non-deterministic feature %q: %v vs %v", e.FeatureNames()[j], first[j], again[j])
			}
		}
	}
}

func TestExtractDerivedFeatures(t *testing.T) {
	e := fittedEngineer(t)
	// 6 months * 30 days before fixedNow.
	d := fixedNow().AddDate(0, 0, -180)
	vec, err := e.Extract(row("Eiche", "Treppenbau", "Sued", 30, 3, d))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	names := e.FeatureNames()
	byName := map[string]float64{}
	for i, n := range names {
		byName[n] = vec[i]
	}

	if byName["area_per_complexity"] != 10 {
		t.Fatalf("area_per_complexity: want=10 got=%v", byName["area_per_complexity"])
	}
	if byName["months_old"] != 6 {
		t.Fatalf("months_old: want=6 got=%v", byName["months_old"])
	}
	if byName["is_recent"] != 0 {
		t.Fatalf("is_recent at exactly 6 months: want=0 got=%v", byName["is_recent"])
	}
	if byName["total_area_sqm_x_complexity"] != 90 {
		t.Fatalf("area x complexity: want=90 got=%v", byName["total_area_sqm_x_complexity"])
	}
	if byName["total_area_sqm_x_months_old"] != 180 {
		t.Fatalf("area x months_old: want=180 got=%v", byName["total_area_sqm_x_months_old"])
	}
}

func TestUnseenCategoryFallsBackToUnknownBucket(t *testing.T) {
	e := fittedEngineer(t)
	vec, err := e.Extract(row("Mahagoni", "Treppenbau", "Sued", 20, 3, date(2026, 2, 1)))
	if err != nil {
		t.Fatalf("Extract with unseen wood_type: %v", err)
	}
	names := e.FeatureNames()
	byName := map[string]float64{}
	for i, n := range names {
		byName[n] = vec[i]
	}
	// Training saw Buche, Eiche, Kiefer -> codes 0..2, unknown bucket 3.
	if byName["wood_type_encoded"] != 3 {
		t.Fatalf("unknown bucket code: want=3 got=%v", byName["wood_type_encoded"])
	}
	unseen := e.UnseenCategories(row("Mahagoni", "Treppenbau", "Sued", 20, 3, date(2026, 2, 1)))
	if len(unseen) != 1 || unseen[0] != "wood_type" {
		t.Fatalf("UnseenCategories: want=[wood_type] got=%v", unseen)
	}
}

func TestMissingNumericUsesFrozenTrainingStatistic(t *testing.T) {
	e := fittedEngineer(t)
	// Training areas: 20, 80, 35, 12 -> mean 36.75.
	attrs := Attributes{
		WoodType:    "Eiche",
		ProjectType: "Treppenbau",
		Region:      "Sued",
		Complexity:  intPtr(3),
	}
	vec, err := e.Extract(attrs)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if vec[0] != 36.75 {
		t.Fatalf("frozen mean fill: want=36.75 got=%v", vec[0])
	}

	// The fill must not move when predict-time rows carry different areas.
	big := 10000.0
	if _, err := e.Extract(Attributes{TotalAreaSqm: &big, Complexity: intPtr(2)}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	vec2, err := e.Extract(attrs)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if vec2[0] != 36.75 {
		t.Fatalf("fill statistic drifted: want=36.75 got=%v", vec2[0])
	}
}

func TestMissingCategoricalUsesTrainingMode(t *testing.T) {
	e := fittedEngineer(t)
	vec, err := e.Extract(Attributes{
		ProjectType:  "Treppenbau",
		Region:       "Sued",
		TotalAreaSqm: floatPtr(20),
		Complexity:   intPtr(3),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// Mode of wood_type in training is Eiche (2 of 4); classes sorted are
	// Buche=0, Eiche=1, Kiefer=2.
	if vec[2] != 1 {
		t.Fatalf("mode fill encoding: want=1 (Eiche) got=%v", vec[2])
	}
}

func TestComplexityOutOfRangeIsValidationError(t *testing.T) {
	e := fittedEngineer(t)
	for _, c := range []int{0, 6, -1} {
		_, err := e.Extract(row("Eiche", "Treppenbau", "Sued", 20, c, date(2026, 2, 1)))
		if err == nil {
			t.Fatalf("Extract(complexity=%d): expected error, got nil", c)
		}
		var v *mlerr.ValidationError
		if !errors.As(err, &v) {
			t.Fatalf("expected ValidationError, got=%T", err)
		}
	}
}

func TestNegativeAreaIsValidationError(t *testing.T) {
	e := fittedEngineer(t)
	_, err := e.Extract(row("Eiche", "Treppenbau", "Sued", -5, 3, date(2026, 2, 1)))
	if err == nil {
		t.Fatalf("Extract: expected error, got nil")
	}
	var v *mlerr.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected ValidationError, got=%T", err)
	}
}

func TestExtractBeforeFitIsModelUnavailable(t *testing.T) {
	e := NewEngineer(FillMean)
	_, err := e.Extract(row("Eiche", "Treppenbau", "Sued", 20, 3, date(2026, 2, 1)))
	var unavailable *mlerr.ModelUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ModelUnavailableError, got=%T", err)
	}
}

func TestStateRoundTripPreservesEncodings(t *testing.T) {
	e := fittedEngineer(t)
	attrs := row("Kiefer", "Dachstuhl", "Nord", 15, 2, date(2026, 1, 1))
	want, err := e.Extract(attrs)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	raw, err := json.Marshal(e.State())
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	var restored State
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	e2 := FromState(restored)
	e2.SetNow(fixedNow)

	got, err := e2.Extract(attrs)
	if err != nil {
		t.Fatalf("Extract after restore: %v", err)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("state round trip changed feature %d: %v vs %v", i, want[i], got[i])
		}
	}
}

func TestExtractBatchFlagsOutliersWithoutDropping(t *testing.T) {
	e := fittedEngineer(t)
	rows := []Attributes{
		row("Eiche", "Treppenbau", "Sued", 20, 3, date(2026, 2, 1)),
		row("Eiche", "Treppenbau", "Sued", 21, 3, date(2026, 2, 1)),
		row("Eiche", "Treppenbau", "Sued", 19, 3, date(2026, 2, 1)),
		row("Eiche", "Treppenbau", "Sued", 22, 3, date(2026, 2, 1)),
		row("Eiche", "Treppenbau", "Sued", 18, 3, date(2026, 2, 1)),
		row("Eiche", "Treppenbau", "Sued", 20, 3, date(2026, 2, 1)),
		row("Eiche", "Treppenbau", "Sued", 480, 3, date(2026, 2, 1)),
	}
	matrix, outliers, err := e.ExtractBatch(rows)
	if err != nil {
		t.Fatalf("ExtractBatch: %v", err)
	}
	if len(matrix) != len(rows) {
		t.Fatalf("rows dropped: want=%d got=%d", len(rows), len(matrix))
	}
	found := false
	for _, o := range outliers {
		if o.Row == 6 && o.Feature == "total_area_sqm" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected outlier flag for row 6 total_area_sqm, got=%v", outliers)
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
