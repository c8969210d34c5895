package features

import (
	"math"
	"strings"
)

// The required-field set for data-quality scoring is fixed; changing it
// shifts every score and is a model-version change.
var requiredFields = []string{
	"wood_type",
	"total_area_sqm",
	"project_type",
	"complexity",
	"region",
	"description",
}

const (
	descriptionBonusCap = 0.2
	areaBonus           = 0.1
	plausibleAreaMin    = 5.0
	plausibleAreaMax    = 500.0
)

// QualityScore rates completeness and plausibility of the input attributes
// in [0,1]. Base score is the filled fraction of the six required fields;
// a long description and a plausible area earn capped bonuses.
func QualityScore(a Attributes) float64 {
	filled := 0
	if strings.TrimSpace(a.WoodType) != "" {
		filled++
	}
	if a.TotalAreaSqm != nil {
		filled++
	}
	if strings.TrimSpace(a.ProjectType) != "" {
		filled++
	}
	if a.Complexity != nil {
		filled++
	}
	if strings.TrimSpace(a.Region) != "" {
		filled++
	}
	if strings.TrimSpace(a.Description) != "" {
		filled++
	}

	score := float64(filled) / float64(len(requiredFields))

	score += math.Min(float64(len(a.Description))/100.0, descriptionBonusCap)

	if a.TotalAreaSqm != nil && *a.TotalAreaSqm >= plausibleAreaMin && *a.TotalAreaSqm <= plausibleAreaMax {
		score += areaBonus
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return math.Round(score*1000) / 1000
}
