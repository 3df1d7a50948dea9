package forest

import (
	"math/rand"
	"slices"
)

// featureThreshold is the smallest gap between sorted values that may
// separate two samples
const featureThreshold = 1e-7

// minImprovement is the impurity decrease a split must exceed
const minImprovement = 1e-12

// Node is one node of a fitted decision tree. Leaves have Feature == -1 and
// carry the class distribution of the training samples that reached them.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"`
}

// IsLeaf reports whether n has no children
func (n *Node) IsLeaf() bool {
	return n.Feature < 0
}

// DecisionTree is a CART classification tree stored as a flat node slice;
// node 0 is the root.
type DecisionTree struct {
	Nodes []Node `json:"nodes"`
}

// PredictProba returns the class distribution of the leaf x falls into
func (t *DecisionTree) PredictProba(x []float64) []float64 {
	n := &t.Nodes[0]
	for !n.IsLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

// Depth returns the number of edges on the longest root-to-leaf path
func (t *DecisionTree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

// treeBuilder grows one tree depth-first on a fixed sample set
type treeBuilder struct {
	x        [][]float64
	y        []int
	classes  int
	params   treeParams
	rng      *rand.Rand
	nodes    []Node
	features []int
}

func buildTree(x [][]float64, y []int, samples []int, classes int, params treeParams, rng *rand.Rand) *DecisionTree {
	numFeatures := len(x[0])
	b := &treeBuilder{
		x:        x,
		y:        y,
		classes:  classes,
		params:   params,
		rng:      rng,
		features: make([]int, numFeatures),
	}
	for i := range b.features {
		b.features[i] = i
	}

	work := slices.Clone(samples)
	b.grow(work, 0)
	return &DecisionTree{Nodes: b.nodes}
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples[:pos] go left once sorted by feature
	impurity  float64
}

// grow appends the subtree for samples and returns its node index
func (b *treeBuilder) grow(samples []int, depth int) int {
	counts := b.classCounts(samples)
	index := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	n := len(samples)
	impurity := gini(counts, float64(n))
	if depth >= b.params.maxDepth ||
		n < b.params.minSamplesSplit ||
		n < 2*b.params.minSamplesLeaf ||
		impurity <= 0 {
		b.nodes[index].Value = distribution(counts, n)
		return index
	}

	best, ok := b.findSplit(samples, impurity)
	if !ok {
		b.nodes[index].Value = distribution(counts, n)
		return index
	}

	b.sortByFeature(samples, best.feature)
	left := b.grow(samples[:best.pos], depth+1)
	right := b.grow(samples[best.pos:], depth+1)

	b.nodes[index] = Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      left,
		Right:     right,
	}
	return index
}

// findSplit visits features in random order until maxFeatures non-constant
// ones have been evaluated and returns the split with the lowest weighted
// child impurity.
func (b *treeBuilder) findSplit(samples []int, parentImpurity float64) (split, bool) {
	n := len(samples)
	best := split{impurity: parentImpurity}
	found := false

	b.rng.Shuffle(len(b.features), func(i, j int) {
		b.features[i], b.features[j] = b.features[j], b.features[i]
	})

	leftCounts := make([]float64, b.classes)
	rightCounts := make([]float64, b.classes)
	visited := 0

	for _, feature := range b.features {
		if visited >= b.params.maxFeatures {
			break
		}

		b.sortByFeature(samples, feature)
		lo, hi := b.x[samples[0]][feature], b.x[samples[n-1]][feature]
		if hi-lo <= featureThreshold {
			continue
		}
		visited++

		clear(leftCounts)
		copy(rightCounts, b.classCounts(samples))

		for pos := 1; pos < n; pos++ {
			moved := b.y[samples[pos-1]]
			leftCounts[moved]++
			rightCounts[moved]--

			prev, next := b.x[samples[pos-1]][feature], b.x[samples[pos]][feature]
			if next-prev <= featureThreshold {
				continue
			}
			if pos < b.params.minSamplesLeaf || n-pos < b.params.minSamplesLeaf {
				continue
			}

			nl, nr := float64(pos), float64(n-pos)
			weighted := (nl*gini(leftCounts, nl) + nr*gini(rightCounts, nr)) / float64(n)
			if weighted < best.impurity {
				threshold := prev/2 + next/2
				if threshold >= next || threshold < prev {
					threshold = prev
				}
				best = split{feature: feature, threshold: threshold, pos: pos, impurity: weighted}
				found = true
			}
		}
	}

	if !found || parentImpurity-best.impurity <= minImprovement {
		return split{}, false
	}
	return best, true
}

// sortByFeature orders samples by ascending feature value, breaking ties by
// sample index so the order never depends on the previous permutation.
func (b *treeBuilder) sortByFeature(samples []int, feature int) {
	slices.SortFunc(samples, func(i, j int) int {
		vi, vj := b.x[i][feature], b.x[j][feature]
		switch {
		case vi < vj:
			return -1
		case vi > vj:
			return 1
		default:
			return i - j
		}
	})
}

func (b *treeBuilder) classCounts(samples []int) []float64 {
	counts := make([]float64, b.classes)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	return counts
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}

func distribution(counts []float64, total int) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = c / float64(total)
	}
	return out
}
