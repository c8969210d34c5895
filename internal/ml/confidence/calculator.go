package confidence

import "math"

// Component weights. They sum to 1.0 and every component is bounded to
// [0,1] before weighting, so the final score is always in [0,1].
const (
	weightSimilarity = 0.35
	weightVariance   = 0.30
	weightQuality    = 0.20
	weightTemporal   = 0.15

	// Similarity saturates at 99 neighbors: ln(1+99)/ln(100) = 1.
	similaritySaturation = 100.0

	temporalDecayRate = 0.1

	// Neutral variance component when price or variance make the ratio
	// meaningless (non-positive price, negative variance).
	neutralVariance = 0.5
)

// Calculate produces a multi-factor confidence score in [0,1] for one
// prediction, rounded to three decimals.
//
//	confidence = 0.35 × min(ln(1+count)/ln(100), 1)
//	           + 0.30 × 1/(1 + variance/price)
//	           + 0.20 × clamp(quality, 0, 1)
//	           + 0.15 × exp(-0.1 × avgMonthsOld)
//
// similarCount = 0 is a valid input and yields a zero similarity
// component, not an error.
func Calculate(similarCount int, priceVariance, predictedPrice, dataQuality, avgMonthsOld float64) float64 {
	if similarCount < 0 {
		similarCount = 0
	}

	similarity := math.Min(
		math.Log(1+float64(similarCount))/math.Log(similaritySaturation),
		1.0,
	)

	variance := neutralVariance
	if predictedPrice > 0 && priceVariance >= 0 {
		variance = 1 / (1 + priceVariance/predictedPrice)
	}

	quality := math.Max(0, math.Min(1, dataQuality))

	temporal := math.Exp(-temporalDecayRate * avgMonthsOld)
	if temporal > 1 {
		temporal = 1
	}

	score := weightSimilarity*similarity +
		weightVariance*variance +
		weightQuality*quality +
		weightTemporal*temporal

	return math.Round(score*1000) / 1000
}
