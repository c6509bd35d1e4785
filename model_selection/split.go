// Package model_selection provides dataset splitting and cross-validation
// utilities shared by the classifier comparison pipeline.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/MAyub114/tabPFN/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TrainTestSplit partitions X and y into disjoint train and test sets.
//
// testSize is the fraction of samples assigned to the test set and must lie
// in the open interval (0, 1). The test set receives ceil(testSize * n)
// samples. The split is a pure function of (testSize, seed): repeated calls
// with the same arguments return identical partitions, and every input row
// appears in exactly one of the two sides with its label kept aligned.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64) (XTrain, XTest, yTrain, yTest *mat.Dense, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_size", "must be in the open interval (0, 1)", testSize)
	}

	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit", "empty feature matrix")
	}

	yRows, _ := y.Dims()
	if yRows != nSamples {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", nSamples, yRows, 0)
	}

	nTest := int(math.Ceil(testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTrain < 1 {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit", "test_size leaves no training samples")
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	testIndices := make([]int, nTest)
	copy(testIndices, indices[:nTest])
	trainIndices := make([]int, nTrain)
	copy(trainIndices, indices[nTest:])

	// Keep rows in their original relative order within each side.
	sort.Ints(testIndices)
	sort.Ints(trainIndices)

	XTrain, yTrain = subset(X, y, trainIndices)
	XTest, yTest = subset(X, y, testIndices)
	return XTrain, XTest, yTrain, yTest, nil
}

// subset copies the selected rows of X and y into fresh matrices.
func subset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	rows := len(indices)
	_, xCols := X.Dims()
	_, yCols := y.Dims()

	xSubset := mat.NewDense(rows, xCols, nil)
	ySubset := mat.NewDense(rows, yCols, nil)

	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xSubset.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ySubset.Set(i, j, y.At(idx, j))
		}
	}

	return xSubset, ySubset
}
