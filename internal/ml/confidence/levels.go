package confidence

// Level is the human-readable classification of a confidence score.
type Level struct {
	Name           string `json:"level"`
	Color          string `json:"color"`
	Recommendation string `json:"recommendation"`
}

var (
	levelVeryHigh = Level{
		Name:           "Very High",
		Color:          "green",
		Recommendation: "Estimate can be used directly.",
	}
	levelHigh = Level{
		Name:           "High",
		Color:          "lightgreen",
		Recommendation: "Estimate is reliable; a manual review is recommended.",
	}
	levelMedium = Level{
		Name:           "Medium",
		Color:          "yellow",
		Recommendation: "Use the estimate with caution; careful review is necessary.",
	}
	levelLow = Level{
		Name:           "Low",
		Color:          "orange",
		Recommendation: "Estimate is uncertain; a manual calculation is recommended.",
	}
	levelVeryLow = Level{
		Name:           "Very Low",
		Color:          "red",
		Recommendation: "Estimate is not reliable; a manual calculation is required.",
	}
)

// Classify maps a confidence score to one of five ordered tiers. Tier
// lower bounds are inclusive: a score of exactly 0.8 is Very High.
func Classify(score float64) Level {
	switch {
	case score >= 0.8:
		return levelVeryHigh
	case score >= 0.6:
		return levelHigh
	case score >= 0.4:
		return levelMedium
	case score >= 0.2:
		return levelLow
	default:
		return levelVeryLow
	}
}
