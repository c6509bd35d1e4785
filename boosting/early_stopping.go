package boosting

import (
	"math"

	"gonum.org/v1/gonum/mat"

	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
	"github.com/MAyub114/tabPFN/pkg/log"
)

// EarlyStopping tracks a validation metric across iterations and signals
// when training should stop
type EarlyStopping struct {
	Rounds          int
	BestScore       float64
	BestIteration   int
	RoundsNoImprove int
	Metric          string
	Minimize        bool
	Enabled         bool
}

// Metrics where a larger value is better. Everything else is treated as
// a loss to minimize.
var maximizeMetrics = map[string]bool{
	"auc":       true,
	"accuracy":  true,
	"precision": true,
	"recall":    true,
	"f1":        true,
	"r2":        true,
}

// NewEarlyStopping creates an early stopping tracker. A non-positive
// rounds value disables it.
func NewEarlyStopping(rounds int, metric string) *EarlyStopping {
	es := &EarlyStopping{
		Rounds:        rounds,
		Metric:        metric,
		Minimize:      !maximizeMetrics[metric],
		Enabled:       rounds > 0,
		BestIteration: 0,
	}

	if es.Minimize {
		es.BestScore = math.Inf(1)
	} else {
		es.BestScore = math.Inf(-1)
	}

	return es
}

// Update records the score for an iteration and reports whether training
// should stop
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if !es.Enabled {
		return false
	}

	improved := score < es.BestScore
	if !es.Minimize {
		improved = score > es.BestScore
	}

	if improved {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
		return false
	}

	es.RoundsNoImprove++
	return es.RoundsNoImprove >= es.Rounds
}

// ShouldStop reports whether the stopping condition has been reached
func (es *EarlyStopping) ShouldStop() bool {
	return es.Enabled && es.RoundsNoImprove >= es.Rounds
}

// GetBestIteration returns the iteration with the best score, or -1 when
// early stopping is disabled
func (es *EarlyStopping) GetBestIteration() int {
	if !es.Enabled {
		return -1
	}
	return es.BestIteration
}

// ValidationData holds a held-out set evaluated during training. Weight
// may be nil for uniform weighting.
type ValidationData struct {
	X      mat.Matrix
	Y      mat.Matrix
	Weight []float64
}

// FitWithValidation trains the ensemble while monitoring loss on a
// held-out set, stopping after earlyStoppingRounds iterations without
// improvement and truncating the ensemble to the best iteration
func (t *Trainer) FitWithValidation(X, y mat.Matrix, valData *ValidationData, earlyStoppingRounds int) error {
	if valData == nil || valData.X == nil || valData.Y == nil {
		return tabpfnErrors.NewValueError("Trainer.FitWithValidation", "validation data is required")
	}

	if err := t.setup(X, y); err != nil {
		return err
	}

	valRows, valCols := valData.X.Dims()
	_, cols := t.X.Dims()
	if valCols != cols {
		return tabpfnErrors.NewDimensionError("Trainer.FitWithValidation", cols, valCols, 1)
	}

	// Cache validation rows and raw predictions so each iteration costs
	// one traversal of the new tree
	valFeatures := make([][]float64, valRows)
	valPredictions := make([]float64, valRows)
	for i := 0; i < valRows; i++ {
		valFeatures[i] = mat.Row(nil, i, valData.X)
		valPredictions[i] = t.initScore
	}

	earlyStopping := NewEarlyStopping(earlyStoppingRounds, t.objective.Name())
	logger := log.GetLoggerWithName("boosting.trainer")

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter

		t.calculateGradients()

		tree, err := t.buildTree()
		if err != nil {
			return tabpfnErrors.Wrapf(err, "tree building failed at iteration %d", iter)
		}
		t.trees = append(t.trees, tree)
		t.updatePredictions(&tree)

		for i := 0; i < valRows; i++ {
			valPredictions[i] += tree.Predict(valFeatures[i])
		}

		valLoss := t.evaluateValidation(valData, valPredictions)
		if earlyStopping.Update(iter, valLoss) {
			if t.params.Verbosity > 0 {
				logger.Info("Early stopping on validation loss",
					log.IterationKey, iter,
					log.LossKey, earlyStopping.BestScore)
			}
			break
		}

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Validation progress",
				log.IterationKey, iter,
				log.LossKey, valLoss)
		}
	}

	if best := earlyStopping.GetBestIteration(); best >= 0 && best+1 < len(t.trees) {
		t.trees = t.trees[:best+1]
	}

	return nil
}

// evaluateValidation computes the weighted mean objective loss over the
// validation set given raw ensemble predictions
func (t *Trainer) evaluateValidation(valData *ValidationData, predictions []float64) float64 {
	rows, _ := valData.Y.Dims()
	loss := 0.0
	totalWeight := 0.0

	for i := 0; i < rows; i++ {
		weight := 1.0
		if valData.Weight != nil {
			weight = valData.Weight[i]
		}

		sampleLoss := t.objective.CalculateLoss(predictions[i], valData.Y.At(i, 0))
		loss += sampleLoss * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0
	}
	return loss / totalWeight
}
