package training

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// StratifiedSplit partitions row indices into train and test sets so each
// label keeps roughly the same share of rows in both. Labels are visited in
// sorted order and their rows shuffled with a generator seeded by seed, so
// the split is reproducible. A label with a single row always stays in the
// train partition, and every label keeps at least one train row.
func StratifiedSplit(labels []string, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be between 0 and 1, got %g", testSize)
	}
	if len(labels) == 0 {
		return nil, nil, fmt.Errorf("cannot split zero rows")
	}

	byLabel := make(map[string][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	classes := make([]string, 0, len(byLabel))
	for l := range byLabel {
		classes = append(classes, l)
	}
	slices.Sort(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, class := range classes {
		rows := byLabel[class]
		rng.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})

		n := len(rows)
		nTest := int(math.Round(testSize * float64(n)))
		nTest = min(nTest, n-1)

		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}

	slices.Sort(train)
	slices.Sort(test)
	return train, test, nil
}
