package engine

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleBranch picks one branch of a chance node with probability
// proportional to its weight. Search never samples; callers that play a
// chance game forward use this to resolve the roll.
func SampleBranch(branches []Branch, src rand.Source) (Branch, error) {
	i, err := SampleBranchIndex(branches, src)
	if err != nil {
		return Branch{}, err
	}
	return branches[i], nil
}

// SampleBranchIndex is SampleBranch returning the index of the drawn branch
func SampleBranchIndex(branches []Branch, src rand.Source) (int, error) {
	if len(branches) == 0 {
		return 0, fmt.Errorf("%w: no branches to sample", ErrBadProbability)
	}
	weights := make([]float64, len(branches))
	for i, b := range branches {
		if !(b.Probability > 0) || math.IsInf(b.Probability, 0) {
			return 0, fmt.Errorf("%w: branch %d has probability %g", ErrBadProbability, i, b.Probability)
		}
		weights[i] = b.Probability
	}
	if len(branches) == 1 {
		return 0, nil
	}
	c := distuv.NewCategorical(weights, src)
	return int(c.Rand()), nil
}
