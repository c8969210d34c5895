package regressor

import "math"

// mape is the mean absolute percentage error as a percent. Rows with a zero
// actual are skipped; a percentage error against zero is undefined and real
// prices are never zero.
func mape(actual, predicted []float64) float64 {
	var sum float64
	var n int
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}

func rmse(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
