package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Outlier flags a single cell whose z-score exceeded the threshold. Flags
// are advisory: callers log or review them, rows are never dropped silently.
type Outlier struct {
	Row     int
	Feature string
	Value   float64
	ZScore  float64
}

// DetectOutliers runs the z-score check column by column over a feature
// matrix. Columns with zero variance produce no flags.
func DetectOutliers(matrix [][]float64, names []string, threshold float64) []Outlier {
	if len(matrix) == 0 || threshold <= 0 {
		return nil
	}
	var out []Outlier
	cols := len(matrix[0])
	column := make([]float64, len(matrix))
	for c := 0; c < cols; c++ {
		for r := range matrix {
			column[r] = matrix[r][c]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		name := ""
		if c < len(names) {
			name = names[c]
		}
		for r, v := range column {
			z := math.Abs(v-mean) / std
			if z > threshold {
				out = append(out, Outlier{Row: r, Feature: name, Value: v, ZScore: z})
			}
		}
	}
	return out
}
