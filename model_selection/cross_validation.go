package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/MAyub114/tabPFN/core/model"
	"github.com/MAyub114/tabPFN/pkg/errors"
	"github.com/MAyub114/tabPFN/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// KFoldSplitter defines interface for cross-validation splitters
type KFoldSplitter interface {
	Split(X, y mat.Matrix) []CVFold
	GetNSplits() int
}

// CVFold represents a single fold in cross-validation
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	if nSplits < 2 {
		nSplits = 5 // Default to 5-fold
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold
func (kf *KFold) Split(X, _ mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()

	// Create indices
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	// Shuffle if requested
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	// Create folds
	folds := make([]CVFold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	currentIdx := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		// Test indices for this fold
		testIndices := make([]int, testSize)
		copy(testIndices, indices[currentIdx:currentIdx+testSize])

		testSet := make(map[int]bool, testSize)
		for _, idx := range testIndices {
			testSet[idx] = true
		}

		// Train indices (all except test)
		trainIndices := make([]int, 0, nSamples-testSize)
		for j := 0; j < nSamples; j++ {
			if !testSet[indices[j]] {
				trainIndices = append(trainIndices, indices[j])
			}
		}

		folds[i] = CVFold{
			TrainIndices: trainIndices,
			TestIndices:  testIndices,
		}

		currentIdx += testSize
	}

	return folds
}

// StratifiedKFold implements stratified k-fold cross-validation
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold
func (skf *StratifiedKFold) Split(X, y mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()

	// Group indices by class
	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}

	// Process classes in sorted label order so fold contents do not depend
	// on map iteration order.
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	// Shuffle indices within each class if requested
	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	// Create stratified folds
	folds := make([]CVFold, skf.NSplits)
	for i := 0; i < skf.NSplits; i++ {
		folds[i] = CVFold{
			TrainIndices: make([]int, 0),
			TestIndices:  make([]int, 0),
		}
	}

	// Distribute each class across folds
	for _, label := range labels {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		currentIdx := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}

			// Add to test set for this fold
			for j := 0; j < testSize && currentIdx < nClass; j++ {
				folds[i].TestIndices = append(folds[i].TestIndices, indices[currentIdx])
				currentIdx++
			}
		}
	}

	// Build train sets (all samples not in test)
	for i := 0; i < skf.NSplits; i++ {
		testSet := make(map[int]bool)
		for _, idx := range folds[i].TestIndices {
			testSet[idx] = true
		}

		for j := 0; j < nSamples; j++ {
			if !testSet[j] {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
	}

	return folds
}

// CVResult stores cross-validation results
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
	FitTimes    []float64
	ScoreTimes  []float64
	Models      []model.Classifier
	BestFold    int
	BestScore   float64
}

// GetMeanScore returns mean test score
func (cv *CVResult) GetMeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range cv.TestScores {
		sum += score
	}
	return sum / float64(len(cv.TestScores))
}

// GetStdScore returns standard deviation of test scores
func (cv *CVResult) GetStdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}

	mean := cv.GetMeanScore()
	sumSq := 0.0
	for _, score := range cv.TestScores {
		diff := score - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(cv.TestScores)-1))
}

// CrossValidate trains one fresh classifier per fold and scores it on the
// held-out data. newEstimator must return an unfitted classifier; each fold
// gets its own instance so folds can run concurrently. Scores come from the
// classifier's own Score method, so higher is better.
func CrossValidate(newEstimator func() model.Classifier, X, y mat.Matrix,
	splitter KFoldSplitter, verbose bool) (*CVResult, error) {

	if newEstimator == nil {
		return nil, errors.NewValueError("CrossValidate", "newEstimator must not be nil")
	}

	logger := log.GetLoggerWithName("model_selection.cross_validation")

	folds := splitter.Split(X, y)
	nFolds := len(folds)

	result := &CVResult{
		TrainScores: make([]float64, nFolds),
		TestScores:  make([]float64, nFolds),
		FitTimes:    make([]float64, nFolds),
		ScoreTimes:  make([]float64, nFolds),
		Models:      make([]model.Classifier, nFolds),
	}

	// Process each fold
	var wg sync.WaitGroup
	foldErrors := make([]error, nFolds)

	for foldIdx := 0; foldIdx < nFolds; foldIdx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			fold := folds[idx]

			// Create train and test matrices
			trainX, trainY := subset(X, y, fold.TrainIndices)
			testX, testY := subset(X, y, fold.TestIndices)

			clf := newEstimator()

			fitStart := time.Now()
			if err := clf.Fit(trainX, trainY); err != nil {
				foldErrors[idx] = errors.Wrapf(err, "fold %d training failed", idx)
				return
			}
			result.FitTimes[idx] = time.Since(fitStart).Seconds()
			result.Models[idx] = clf

			scoreStart := time.Now()
			trainScore, err := clf.Score(trainX, trainY)
			if err != nil {
				foldErrors[idx] = errors.Wrapf(err, "fold %d train scoring failed", idx)
				return
			}
			result.TrainScores[idx] = trainScore

			testScore, err := clf.Score(testX, testY)
			if err != nil {
				foldErrors[idx] = errors.Wrapf(err, "fold %d test scoring failed", idx)
				return
			}
			result.TestScores[idx] = testScore
			result.ScoreTimes[idx] = time.Since(scoreStart).Seconds()

			if verbose {
				logger.Info("fold complete",
					"fold", idx+1,
					"folds", nFolds,
					"train_score", trainScore,
					log.AccuracyKey, testScore)
			}
		}(foldIdx)
	}

	wg.Wait()

	// Check for errors
	for _, err := range foldErrors {
		if err != nil {
			return nil, err
		}
	}

	// Find best fold; Score is higher-is-better.
	result.BestScore = result.TestScores[0]
	result.BestFold = 0
	for i := 1; i < len(result.TestScores); i++ {
		if result.TestScores[i] > result.BestScore {
			result.BestScore = result.TestScores[i]
			result.BestFold = i
		}
	}

	if verbose {
		logger.Info("cross-validation complete",
			"mean_score", result.GetMeanScore(),
			"std_score", result.GetStdScore(),
			"best_fold", result.BestFold+1,
			"best_score", result.BestScore)
	}

	return result, nil
}
