package features

import (
	"strings"
	"testing"
)

func TestQualityScoreEmptyAttributes(t *testing.T) {
	if got := QualityScore(Attributes{}); got != 0 {
		t.Fatalf("empty attributes: want=0 got=%v", got)
	}
}

func TestQualityScoreFullyFilledClampsToOne(t *testing.T) {
	a := Attributes{
		WoodType:     "Eiche",
		ProjectType:  "Treppenbau",
		Region:       "Sued",
		Description:  strings.Repeat("x", 120),
		TotalAreaSqm: floatPtr(40),
		Complexity:   intPtr(3),
	}
	// 6/6 base + 0.2 description bonus + 0.1 area bonus clamps to 1.
	if got := QualityScore(a); got != 1 {
		t.Fatalf("fully filled: want=1 got=%v", got)
	}
}

func TestQualityScorePartialFields(t *testing.T) {
	a := Attributes{WoodType: "Eiche"}
	// 1/6 rounded to three decimals.
	if got := QualityScore(a); got != 0.167 {
		t.Fatalf("single field: want=0.167 got=%v", got)
	}
}

func TestQualityScoreDescriptionBonusIsCapped(t *testing.T) {
	short := QualityScore(Attributes{Description: strings.Repeat("x", 20)})
	long := QualityScore(Attributes{Description: strings.Repeat("x", 2000)})
	if short != long {
		t.Fatalf("description bonus not capped: short=%v long=%v", short, long)
	}
	// 1/6 base + 0.2 capped bonus.
	if long != 0.367 {
		t.Fatalf("capped description score: want=0.367 got=%v", long)
	}
}

func TestQualityScoreAreaBonusOnlyInPlausibleRange(t *testing.T) {
	within := QualityScore(Attributes{TotalAreaSqm: floatPtr(50)})
	below := QualityScore(Attributes{TotalAreaSqm: floatPtr(2)})
	above := QualityScore(Attributes{TotalAreaSqm: floatPtr(900)})

	if within != 0.267 {
		t.Fatalf("plausible area: want=0.267 got=%v", within)
	}
	if below != 0.167 {
		t.Fatalf("tiny area: want=0.167 got=%v", below)
	}
	if above != 0.167 {
		t.Fatalf("huge area: want=0.167 got=%v", above)
	}
	// Range boundaries are inclusive.
	if got := QualityScore(Attributes{TotalAreaSqm: floatPtr(5)}); got != 0.267 {
		t.Fatalf("lower bound: want=0.267 got=%v", got)
	}
	if got := QualityScore(Attributes{TotalAreaSqm: floatPtr(500)}); got != 0.267 {
		t.Fatalf("upper bound: want=0.267 got=%v", got)
	}
}

func TestQualityScoreWhitespaceDoesNotCountAsFilled(t *testing.T) {
	a := Attributes{WoodType: "   ", Region: "\t"}
	if got := QualityScore(a); got != 0 {
		t.Fatalf("whitespace-only fields: want=0 got=%v", got)
	}
}
