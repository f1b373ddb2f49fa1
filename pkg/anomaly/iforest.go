package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Isolation forest defaults
const (
	DefaultTrees         = 100
	DefaultContamination = 0.1
	DefaultSeed          = 42
	maxSampleSize        = 256
)

// IsolationForest scores one-dimensional series by how quickly random
// splits isolate each value. Runs are deterministic for a given Seed.
type IsolationForest struct {
	Trees         int
	Contamination float64
	Seed          int64
}

// NewIsolationForest returns a forest with the default parameters
func NewIsolationForest() *IsolationForest {
	return &IsolationForest{Trees: DefaultTrees, Contamination: DefaultContamination, Seed: DefaultSeed}
}

func (f *IsolationForest) Name() string { return StrategyIsolationForest }

// Detect flags values whose score is above the (1-Contamination) quantile
func (f *IsolationForest) Detect(values []float64) []bool {
	flags := make([]bool, len(values))
	if len(values) < 2 {
		return flags
	}
	scores := f.Scores(values)

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	cut := stat.Quantile(1-f.Contamination, stat.LinInterp, sorted, nil)
	for i, s := range scores {
		flags[i] = s > cut
	}
	return flags
}

// Scores returns the anomaly score in (0, 1] of every value. Higher is
// more isolated.
func (f *IsolationForest) Scores(values []float64) []float64 {
	n := len(values)
	scores := make([]float64, n)
	if n < 2 {
		return scores
	}
	rng := rand.New(rand.NewSource(f.Seed))
	sample := min(n, maxSampleSize)
	limit := int(math.Ceil(math.Log2(float64(sample))))

	depth := make([]float64, n)
	buf := make([]float64, sample)
	for t := 0; t < f.Trees; t++ {
		perm := rng.Perm(n)
		for i := 0; i < sample; i++ {
			buf[i] = values[perm[i]]
		}
		root := grow(rng, append([]float64(nil), buf...), 0, limit)
		for i, v := range values {
			depth[i] += root.pathLength(v, 0)
		}
	}

	norm := averagePath(sample)
	for i := range scores {
		mean := depth[i] / float64(f.Trees)
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores
}

type node struct {
	split       float64
	left, right *node
	size        int
}

func grow(rng *rand.Rand, xs []float64, depth, limit int) *node {
	if depth >= limit || len(xs) <= 1 {
		return &node{size: len(xs)}
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if lo == hi {
		return &node{size: len(xs)}
	}
	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, x := range xs {
		if x < split {
			left = append(left, x)
		} else {
			right = append(right, x)
		}
	}
	return &node{
		split: split,
		left:  grow(rng, left, depth+1, limit),
		right: grow(rng, right, depth+1, limit),
	}
}

func (nd *node) pathLength(x float64, depth int) float64 {
	if nd.left == nil {
		return float64(depth) + averagePath(nd.size)
	}
	if x < nd.split {
		return nd.left.pathLength(x, depth+1)
	}
	return nd.right.pathLength(x, depth+1)
}

// averagePath is the expected path length of an unsuccessful search in a
// binary search tree of n nodes
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}
