package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"slices"

	"github.com/sourcegraph/conc/iter"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// Params controls how a forest is grown
type Params struct {
	NumTrees        int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features"` // 0 selects sqrt(features)
	Seed            int64 `json:"seed"`

	// Workers bounds parallel tree fitting; 0 uses GOMAXPROCS
	Workers int `json:"-"`
}

// DefaultParams returns the parameters used for genre classification
func DefaultParams() Params {
	return Params{
		NumTrees:        300,
		MaxDepth:        25,
		MinSamplesSplit: 3,
		MinSamplesLeaf:  2,
		Seed:            42,
	}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {
	switch {
	case p.NumTrees <= 0:
		return fmt.Errorf("trees must be positive, got %d", p.NumTrees)
	case p.MaxDepth <= 0:
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return fmt.Errorf("min_samples_split must be >= 2, got %d", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return fmt.Errorf("min_samples_leaf must be >= 1, got %d", p.MinSamplesLeaf)
	case p.MaxFeatures < 0:
		return fmt.Errorf("max_features must not be negative, got %d", p.MaxFeatures)
	}
	return nil
}

// RandomForest is a bagged ensemble of CART trees. Each tree is fitted on a
// bootstrap sample and considers a random subset of features at every split;
// predictions average the trees' class distributions.
type RandomForest struct {
	Params      Params          `json:"params"`
	Classes     []string        `json:"classes"`
	NumFeatures int             `json:"n_features"`
	Trees       []*DecisionTree `json:"trees"`

	logger logging.Logger
}

// New creates an unfitted forest
func New(params Params) *RandomForest {
	return &RandomForest{
		Params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "random_forest",
		}),
	}
}

// Fit grows the forest on rows x with string labels. Classes are ordered
// lexically, which also decides probability ties.
func (f *RandomForest) Fit(ctx context.Context, x [][]float64, labels []string) error {
	if err := f.Params.Validate(); err != nil {
		return err
	}
	if f.logger == nil {
		f.logger = logging.NewNop()
	}
	if len(x) == 0 {
		return fmt.Errorf("cannot fit forest on zero rows")
	}
	if len(x) != len(labels) {
		return fmt.Errorf("got %d rows but %d labels", len(x), len(labels))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}

	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)

	y := make([]int, len(labels))
	for i, l := range labels {
		y[i], _ = slices.BinarySearch(classes, l)
	}

	maxFeatures := f.Params.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(width))))
	}
	params := treeParams{
		maxDepth:        f.Params.MaxDepth,
		minSamplesSplit: f.Params.MinSamplesSplit,
		minSamplesLeaf:  f.Params.MinSamplesLeaf,
		maxFeatures:     min(maxFeatures, width),
	}

	logger := f.logger.WithFields(logging.Fields{
		"function":     "Fit",
		"rows":         len(x),
		"features":     width,
		"classes":      len(classes),
		"trees":        f.Params.NumTrees,
		"max_features": params.maxFeatures,
	})
	logger.Debug("Fitting random forest")

	// Tree seeds come from the master seed up front so every tree is the
	// same regardless of which worker fits it.
	master := rand.New(rand.NewSource(f.Params.Seed))
	seeds := make([]int64, f.Params.NumTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := f.Params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	mapper := iter.Mapper[int64, *DecisionTree]{MaxGoroutines: workers}

	trees, err := mapper.MapErr(seeds, func(seed *int64) (*DecisionTree, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewSource(*seed))
		return buildTree(x, y, bootstrap(len(x), rng), len(classes), params, rng), nil
	})
	if err != nil {
		return fmt.Errorf("fit trees: %w", err)
	}

	f.Classes = classes
	f.NumFeatures = width
	f.Trees = trees

	logger.Debug("Random forest fitted", logging.Fields{
		"max_depth": f.MaxDepth(),
	})
	return nil
}

func bootstrap(n int, rng *rand.Rand) []int {
	samples := make([]int, n)
	for i := range samples {
		samples[i] = rng.Intn(n)
	}
	return samples
}

// PredictProba averages the class distributions of every tree
func (f *RandomForest) PredictProba(x []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("forest has not been fitted")
	}
	if len(x) != f.NumFeatures {
		return nil, fmt.Errorf("row has %d features, forest expects %d", len(x), f.NumFeatures)
	}

	proba := make([]float64, len(f.Classes))
	for _, tree := range f.Trees {
		for i, p := range tree.PredictProba(x) {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the most probable class; ties go to the lexically first
func (f *RandomForest) Predict(x []float64) (string, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return "", err
	}

	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return f.Classes[best], nil
}

// PredictBatch predicts every row
func (f *RandomForest) PredictBatch(x [][]float64) ([]string, error) {
	out := make([]string, len(x))
	for i, row := range x {
		label, err := f.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}

// MaxDepth returns the depth of the deepest tree
func (f *RandomForest) MaxDepth() int {
	depth := 0
	for _, t := range f.Trees {
		depth = max(depth, t.Depth())
	}
	return depth
}

// Validate checks a forest restored from storage is internally consistent
func (f *RandomForest) Validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if len(f.Classes) == 0 {
		return fmt.Errorf("forest has no classes")
	}
	if f.NumFeatures <= 0 {
		return fmt.Errorf("forest has invalid feature count %d", f.NumFeatures)
	}

	for ti, tree := range f.Trees {
		if tree == nil || len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, node := range tree.Nodes {
			if node.IsLeaf() {
				if len(node.Value) != len(f.Classes) {
					return fmt.Errorf("tree %d leaf %d has %d class values, want %d", ti, ni, len(node.Value), len(f.Classes))
				}
				continue
			}
			if node.Feature >= f.NumFeatures ||
				node.Left <= ni || node.Left >= len(tree.Nodes) ||
				node.Right <= ni || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d is malformed", ti, ni)
			}
		}
	}
	return nil
}

// SetLogger replaces the logger, mainly for forests restored from JSON
func (f *RandomForest) SetLogger(logger logging.Logger) {
	f.logger = logger
}
