package boosting

import (
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/MAyub114/tabPFN/core/parallel"
	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
)

// Predictor evaluates a trained Model. Rows are predicted independently,
// so prediction parallelizes across rows without changing results.
type Predictor struct {
	model         *Model
	numThreads    int
	deterministic bool
}

// NewPredictor creates a predictor for the given model
func NewPredictor(model *Model) *Predictor {
	return &Predictor{
		model:         model,
		numThreads:    runtime.NumCPU(),
		deterministic: model.Deterministic,
	}
}

// SetNumThreads sets the number of worker goroutines used for prediction
func (p *Predictor) SetNumThreads(n int) *Predictor {
	if n > 0 {
		p.numThreads = n
	}
	return p
}

// SetDeterministic forces single-threaded prediction
func (p *Predictor) SetDeterministic(deterministic bool) *Predictor {
	p.deterministic = deterministic
	return p
}

// Predict returns predictions with the objective's output transformation
// applied: probabilities for classification objectives, counts for
// poisson, raw values otherwise
func (p *Predictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return p.predict(X, true)
}

// PredictRaw returns untransformed margin scores
func (p *Predictor) PredictRaw(X mat.Matrix) (mat.Matrix, error) {
	return p.predict(X, false)
}

func (p *Predictor) predict(X mat.Matrix, transform bool) (*mat.Dense, error) {
	if err := p.model.validateFeatures(X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	outputCols := p.model.NumOutputs()
	predictions := mat.NewDense(rows, outputCols, nil)

	predictRange := func(start, end int) {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(features, i, X)
			out := predictions.RawRowView(i)
			p.predictSingleSample(features, out)
			if transform {
				p.applyObjectiveTransformation(out)
			}
		}
	}

	if p.deterministic || p.numThreads <= 1 || rows == 1 {
		predictRange(0, rows)
	} else {
		parallel.ParallelizeWithWorkers(rows, p.numThreads, predictRange)
	}

	return predictions, nil
}

// predictSingleSample accumulates raw tree outputs for one row into out.
// Trees are laid out iteration-major, so tree i contributes to output
// column i modulo the output count.
func (p *Predictor) predictSingleSample(features, out []float64) {
	for k := range out {
		if k < len(p.model.InitScores) {
			out[k] = p.model.InitScores[k]
		} else if len(p.model.InitScores) > 0 {
			out[k] = p.model.InitScores[0]
		} else {
			out[k] = 0.0
		}
	}

	numIteration := len(p.model.Trees)
	if p.model.BestIteration > 0 && p.model.BestIteration < numIteration {
		numIteration = p.model.BestIteration
	}

	numOutputs := len(out)
	for i := 0; i < numIteration; i++ {
		out[i%numOutputs] += p.model.Trees[i].Predict(features)
	}
}

// applyObjectiveTransformation maps raw scores to the objective's
// output scale in place
func (p *Predictor) applyObjectiveTransformation(out []float64) {
	switch p.model.Objective {
	case BinaryLogistic, MulticlassOVR:
		for k := range out {
			out[k] = logisticProbability(out[k])
		}
	case RegressionPoisson:
		for k := range out {
			out[k] = tabpfnErrors.StabilizeExp(out[k])
		}
	}
}

// PredictProba returns class membership probabilities. Binary models
// yield an n x 2 matrix, one-vs-rest multiclass models an n x k matrix
// with rows normalized to sum to one.
func (p *Predictor) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	predictions, err := p.predict(X, true)
	if err != nil {
		return nil, err
	}

	rows, _ := predictions.Dims()

	switch p.model.Objective {
	case BinaryLogistic:
		proba := mat.NewDense(rows, 2, nil)
		for i := 0; i < rows; i++ {
			p1 := predictions.At(i, 0)
			proba.Set(i, 0, 1.0-p1)
			proba.Set(i, 1, p1)
		}
		return proba, nil

	case MulticlassOVR:
		// Per-class sigmoids do not sum to one, normalize each row
		numClass := p.model.NumClass
		for i := 0; i < rows; i++ {
			row := predictions.RawRowView(i)
			sum := 0.0
			for k := 0; k < numClass; k++ {
				sum += row[k]
			}
			if sum > 0 {
				for k := 0; k < numClass; k++ {
					row[k] /= sum
				}
			} else {
				for k := 0; k < numClass; k++ {
					row[k] = 1.0 / float64(numClass)
				}
			}
		}
		return predictions, nil
	}

	return predictions, nil
}
