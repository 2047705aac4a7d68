package classify

import (
	"math/rand"
	"sort"
)

// treeConfig holds the per-tree growing parameters.
type treeConfig struct {
	mtry    int
	minLeaf int
}

// treeNode is one node of a binary CART classification tree.  Internal nodes
// split on feature <= threshold; leaves hold class counts from the bootstrap
// sample that reached them.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	counts    [2]int
	leaf      bool
}

// proba walks the tree and returns the leaf's class-frequency estimate.
func (n *treeNode) proba(features []float64) [2]float64 {
	node := n
	for !node.leaf {
		if features[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	total := float64(node.counts[0] + node.counts[1])
	if total == 0 {
		return [2]float64{0.5, 0.5}
	}
	return [2]float64{float64(node.counts[0]) / total, float64(node.counts[1]) / total}
}

// growTree builds a randomized CART tree on the rows idx of x: at every node
// mtry features are sampled without replacement and the best Gini split among
// them is taken.  Growth stops at purity, at the minimum leaf size, or when
// no sampled split improves impurity.
func growTree(x [][]float64, y []int, idx []int, cfg treeConfig, rng *rand.Rand) *treeNode {
	var counts [2]int
	for _, i := range idx {
		counts[y[i]]++
	}

	node := &treeNode{counts: counts}
	if counts[0] == 0 || counts[1] == 0 || len(idx) < 2*cfg.minLeaf {
		node.leaf = true
		return node
	}

	feature, threshold, ok := bestSplit(x, y, idx, cfg, rng)
	if !ok {
		node.leaf = true
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		node.leaf = true
		return node
	}

	node.feature = feature
	node.threshold = threshold
	node.left = growTree(x, y, leftIdx, cfg, rng)
	node.right = growTree(x, y, rightIdx, cfg, rng)
	return node
}

// bestSplit scans mtry randomly sampled features for the split with the
// lowest weighted Gini impurity.  Candidate thresholds are midpoints between
// consecutive distinct values.
func bestSplit(x [][]float64, y []int, idx []int, cfg treeConfig, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	d := len(x[idx[0]])
	mtry := cfg.mtry
	if mtry > d {
		mtry = d
	}
	sampled := rng.Perm(d)[:mtry]

	n := float64(len(idx))
	var total [2]int
	for _, i := range idx {
		total[y[i]]++
	}
	parent := gini(total[0], total[1])

	bestGain := 0.0
	sorted := make([]int, len(idx))

	for _, j := range sampled {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return x[sorted[a]][j] < x[sorted[b]][j] })

		var left [2]int
		right := total
		for pos := 0; pos < len(sorted)-1; pos++ {
			c := y[sorted[pos]]
			left[c]++
			right[c]--

			v, next := x[sorted[pos]][j], x[sorted[pos+1]][j]
			if v == next {
				continue
			}

			nl := float64(pos + 1)
			nr := n - nl
			child := (nl*gini(left[0], left[1]) + nr*gini(right[0], right[1])) / n
			if gain := parent - child; gain > bestGain {
				bestGain = gain
				feature = j
				threshold = (v + next) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// gini returns the Gini impurity of a two-class count.
func gini(a, b int) float64 {
	total := float64(a + b)
	if total == 0 {
		return 0
	}
	pa := float64(a) / total
	pb := float64(b) / total
	return 1 - pa*pa - pb*pb
}
