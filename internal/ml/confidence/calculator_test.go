package confidence

import (
	"math"
	"testing"
)

func TestCalculateStaysWithinUnitInterval(t *testing.T) {
	cases := []struct {
		name      string
		count     int
		variance  float64
		price     float64
		quality   float64
		monthsOld float64
	}{
		{"all zero", 0, 0, 0, 0, 0},
		{"huge neighbor count", 1_000_000, 100, 1000, 1, 0},
		{"huge variance", 10, 1e12, 100, 0.5, 12},
		{"quality above one", 10, 100, 1000, 5.0, 3},
		{"quality below zero", 10, 100, 1000, -2.0, 3},
		{"negative months", 10, 100, 1000, 0.5, -24},
		{"negative count", -3, 100, 1000, 0.5, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(tc.count, tc.variance, tc.price, tc.quality, tc.monthsOld)
			if got < 0 || got > 1 {
				t.Fatalf("score out of [0,1]: got=%v", got)
			}
		})
	}
}

func TestCalculateZeroNeighborsHasZeroSimilarityComponent(t *testing.T) {
	// With count=0 only variance, quality and temporal contribute; adding a
	// single neighbor must raise the score by exactly the similarity term.
	base := Calculate(0, 100, 1000, 0.5, 3)
	one := Calculate(1, 100, 1000, 0.5, 3)

	wantDelta := 0.35 * math.Log(2) / math.Log(100)
	gotDelta := one - base
	if math.Abs(gotDelta-wantDelta) > 0.002 {
		t.Fatalf("similarity component for one neighbor: want=%v got=%v", wantDelta, gotDelta)
	}
}

func TestCalculateMonotoneInNeighborCount(t *testing.T) {
	prev := Calculate(0, 100, 1000, 0.5, 3)
	for count := 1; count <= 200; count *= 2 {
		cur := Calculate(count, 100, 1000, 0.5, 3)
		if cur < prev {
			t.Fatalf("score decreased at count=%d: prev=%v cur=%v", count, prev, cur)
		}
		prev = cur
	}
}

func TestCalculateMonotoneInQuality(t *testing.T) {
	prev := Calculate(5, 100, 1000, 0, 3)
	for q := 0.1; q <= 1.0; q += 0.1 {
		cur := Calculate(5, 100, 1000, q, 3)
		if cur < prev {
			t.Fatalf("score decreased at quality=%v: prev=%v cur=%v", q, prev, cur)
		}
		prev = cur
	}
}

func TestCalculateNeutralVarianceFallback(t *testing.T) {
	// Non-positive price or negative variance makes the variance ratio
	// meaningless; the component falls back to 0.5 instead of blowing up.
	zeroPrice := Calculate(5, 5000, 0, 0.8, 6)
	negVariance := Calculate(5, -1, 15000, 0.8, 6)
	if zeroPrice != negVariance {
		t.Fatalf("fallback mismatch: zero price=%v negative variance=%v", zeroPrice, negVariance)
	}

	// Same inputs with a real ratio of 1/3 give a variance component of
	// 0.75; the fallback run must differ by exactly 0.30 × (0.75 − 0.5).
	real := Calculate(5, 5000, 15000, 0.8, 6)
	if math.Abs((real-zeroPrice)-0.30*0.25) > 0.002 {
		t.Fatalf("fallback delta: want=%v got=%v", 0.30*0.25, real-zeroPrice)
	}
}

func TestCalculateKnownScenario(t *testing.T) {
	// 5 neighbors, variance 5000 against price 15000, quality 0.8, 6 months:
	// 0.35×0.389 + 0.30×0.75 + 0.20×0.8 + 0.15×0.549 = 0.603.
	got := Calculate(5, 5000, 15000, 0.8, 6)
	if got != 0.603 {
		t.Fatalf("scenario score: want=0.603 got=%v", got)
	}
	if lvl := Classify(got); lvl.Name != "High" {
		t.Fatalf("scenario tier: want=High got=%s", lvl.Name)
	}
}

func TestCalculateRoundsToThreeDecimals(t *testing.T) {
	got := Calculate(5, 5000, 15000, 0.8, 6)
	if got != math.Round(got*1000)/1000 {
		t.Fatalf("score not rounded to 3 decimals: got=%v", got)
	}
}

func TestClassifyTierBoundariesAreInclusive(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.95, "Very High"},
		{0.8, "Very High"},
		{0.799, "High"},
		{0.6, "High"},
		{0.599, "Medium"},
		{0.4, "Medium"},
		{0.399, "Low"},
		{0.2, "Low"},
		{0.199, "Very Low"},
		{0, "Very Low"},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got.Name != tc.want {
			t.Fatalf("Classify(%v): want=%s got=%s", tc.score, tc.want, got.Name)
		}
	}
}

func TestClassifyCarriesRecommendation(t *testing.T) {
	for _, score := range []float64{0.9, 0.7, 0.5, 0.3, 0.1} {
		lvl := Classify(score)
		if lvl.Recommendation == "" || lvl.Color == "" {
			t.Fatalf("Classify(%v): missing recommendation or color: %+v", score, lvl)
		}
	}
}
