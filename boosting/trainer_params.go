package boosting

import (
	"math"
	"math/rand/v2"
)

// SamplingStrategy handles row and feature subsampling during training
type SamplingStrategy struct {
	rng             *rand.Rand
	featureFraction float64
	baggingFraction float64
	baggingFreq     int
	deterministic   bool
}

// NewSamplingStrategy creates a sampling strategy from training parameters.
// A zero seed with deterministic mode off draws a fresh seed, otherwise the
// configured seed is used so sampling is reproducible.
func NewSamplingStrategy(params TrainingParams) *SamplingStrategy {
	seed := uint64(params.Seed)
	if params.Seed == 0 && !params.Deterministic {
		seed = rand.Uint64()
	}

	return &SamplingStrategy{
		rng:             rand.New(rand.NewPCG(seed, seed)),
		featureFraction: params.FeatureFraction,
		baggingFraction: params.BaggingFraction,
		baggingFreq:     params.BaggingFreq,
		deterministic:   params.Deterministic,
	}
}

// SampleFeatures returns the feature indices to consider this iteration
func (s *SamplingStrategy) SampleFeatures(numFeatures, iteration int) []int {
	if s.featureFraction >= 1.0 || s.featureFraction <= 0 {
		return allIndices(numFeatures)
	}

	numSampled := int(float64(numFeatures) * s.featureFraction)
	if numSampled < 1 {
		numSampled = 1
	}
	if numSampled > numFeatures {
		numSampled = numFeatures
	}

	return s.samplePrefix(numFeatures, numSampled)
}

// SampleInstances returns the row indices to train on this iteration.
// Bagging only applies on iterations that are multiples of baggingFreq.
func (s *SamplingStrategy) SampleInstances(numInstances, iteration int) []int {
	if s.baggingFreq <= 0 || iteration%s.baggingFreq != 0 {
		return allIndices(numInstances)
	}
	if s.baggingFraction >= 1.0 || s.baggingFraction <= 0 {
		return allIndices(numInstances)
	}

	numSampled := int(float64(numInstances) * s.baggingFraction)
	if numSampled < 1 {
		numSampled = 1
	}
	if numSampled > numInstances {
		numSampled = numInstances
	}

	return s.samplePrefix(numInstances, numSampled)
}

// samplePrefix draws numSampled distinct indices from [0, n) via a partial
// Fisher-Yates shuffle
func (s *SamplingStrategy) samplePrefix(n, numSampled int) []int {
	indices := allIndices(n)
	for i := 0; i < numSampled; i++ {
		j := i + s.rng.IntN(n-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices[:numSampled]
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// RegularizationStrategy applies L1 and L2 penalties to leaf values and
// split gains
type RegularizationStrategy struct {
	lambdaL1 float64
	lambdaL2 float64
}

// NewRegularizationStrategy creates a regularization strategy from
// training parameters
func NewRegularizationStrategy(params TrainingParams) *RegularizationStrategy {
	return &RegularizationStrategy{
		lambdaL1: params.Alpha,
		lambdaL2: params.Lambda,
	}
}

// ApplyLeafRegularization computes the optimal leaf value -G/(H + lambda2)
// with L1 soft-thresholding applied to the gradient sum
func (r *RegularizationStrategy) ApplyLeafRegularization(sumGrad, sumHess float64) float64 {
	const eps = 1e-10
	denom := sumHess + r.lambdaL2 + eps

	if r.lambdaL1 > 0 {
		if sumGrad > r.lambdaL1 {
			return -(sumGrad - r.lambdaL1) / denom
		}
		if sumGrad < -r.lambdaL1 {
			return -(sumGrad + r.lambdaL1) / denom
		}
		return 0.0
	}

	return -sumGrad / denom
}

// CalculateSplitGain computes the regularized gain of splitting a node
// into the given left and right children
func (r *RegularizationStrategy) CalculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	leftScore := r.calculateScore(leftGrad, leftHess)
	rightScore := r.calculateScore(rightGrad, rightHess)
	parentScore := r.calculateScore(totalGrad, totalHess)

	return leftScore + rightScore - parentScore
}

// calculateScore computes the structure score G^2/(2(H + lambda2)) of a
// node, with L1 soft-thresholding on G
func (r *RegularizationStrategy) calculateScore(sumGrad, sumHess float64) float64 {
	const eps = 1e-10
	denom := sumHess + r.lambdaL2 + eps

	numerator := sumGrad
	if r.lambdaL1 > 0 {
		if math.Abs(sumGrad) <= r.lambdaL1 {
			return 0.0
		}
		if sumGrad > 0 {
			numerator = sumGrad - r.lambdaL1
		} else {
			numerator = sumGrad + r.lambdaL1
		}
	}

	return 0.5 * numerator * numerator / denom
}
