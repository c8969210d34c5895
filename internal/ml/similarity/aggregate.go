package similarity

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PriceVariance is the population variance of the neighbors' final prices.
// Neighbors without a final price are skipped. Returns -1 when no neighbor
// carries a price, which the confidence calculator treats as "no variance
// signal" rather than perfect consistency.
func PriceVariance(matches []Match) float64 {
	prices := make([]float64, 0, len(matches))
	for _, m := range matches {
		if m.Project.FinalPrice != nil {
			prices = append(prices, *m.Project.FinalPrice)
		}
	}
	if len(prices) == 0 {
		return -1
	}
	mean := stat.Mean(prices, nil)
	return stat.MomentAbout(2, prices, mean, nil)
}

// AvgMonthsOld is the mean age of the neighbors' project dates in 30-day
// months relative to now. Zero-value dates and future dates count as age 0.
func AvgMonthsOld(matches []Match, now time.Time) float64 {
	if len(matches) == 0 {
		return 0
	}
	ages := make([]float64, 0, len(matches))
	for _, m := range matches {
		d := m.Project.ProjectDate
		if d.IsZero() {
			ages = append(ages, 0)
			continue
		}
		days := now.Sub(d).Hours() / 24
		ages = append(ages, math.Max(0, days/30))
	}
	return stat.Mean(ages, nil)
}
