package regressor

import "sort"

// node is one regression-tree node. The exported JSON shape is part of the
// saved model bundle, so field names are stable.
type node struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Left      *node   `json:"left,omitempty"`
	Right     *node   `json:"right,omitempty"`
}

func (n *node) predict(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// buildNode grows a depth-limited CART regression tree on the residuals.
// Splits are greedy least-squares: the split minimizing the summed squared
// error of the two children wins. Feature order breaks gain ties, so the
// tree is deterministic for a given input.
func buildNode(X [][]float64, target []float64, rows []int, depth, maxDepth, minLeaf int) *node {
	if depth >= maxDepth || len(rows) < 2*minLeaf {
		return &node{Leaf: true, Value: meanAt(target, rows)}
	}

	feature, threshold, gain := bestSplit(X, target, rows, minLeaf)
	if gain <= 1e-12 {
		return &node{Leaf: true, Value: meanAt(target, rows)}
	}

	var left, right []int
	for _, i := range rows {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildNode(X, target, left, depth+1, maxDepth, minLeaf),
		Right:     buildNode(X, target, right, depth+1, maxDepth, minLeaf),
	}
}

// bestSplit scans every feature with a sorted prefix-sum sweep. Candidate
// thresholds sit at midpoints between distinct adjacent values; both sides
// must keep at least minLeaf rows.
func bestSplit(X [][]float64, target []float64, rows []int, minLeaf int) (feature int, threshold, gain float64) {
	n := len(rows)
	feature = -1

	var totalSum, totalSq float64
	for _, i := range rows {
		totalSum += target[i]
		totalSq += target[i] * target[i]
	}
	totalSSE := totalSq - totalSum*totalSum/float64(n)

	order := make([]int, n)
	for f := 0; f < len(X[rows[0]]); f++ {
		copy(order, rows)
		sort.SliceStable(order, func(a, b int) bool {
			return X[order[a]][f] < X[order[b]][f]
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			i := order[k]
			leftSum += target[i]
			leftSq += target[i] * target[i]

			// No valid threshold between equal values.
			if X[order[k]][f] == X[order[k+1]][f] {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			leftSSE := leftSq - leftSum*leftSum/float64(nl)
			rightSSE := rightSq - rightSum*rightSum/float64(nr)

			g := totalSSE - leftSSE - rightSSE
			if g > gain {
				gain = g
				feature = f
				threshold = (X[order[k]][f] + X[order[k+1]][f]) / 2
			}
		}
	}
	return feature, threshold, gain
}

func meanAt(values []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, i := range rows {
		sum += values[i]
	}
	return sum / float64(len(rows))
}
