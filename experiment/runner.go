// Package experiment orchestrates the classifier comparison pipeline:
// load a dataset, hold out a test split, fit the in-context and boosted
// models on the same training rows, and report the fraction of held-out
// rows each one labels correctly.
//
// Runs are reproducible. The split and both models derive all randomness
// from the seeds in the Config, so repeating a run with the same
// configuration yields identical accuracies. Results can be appended to
// a SQLite history and rendered as a bar chart.
package experiment

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/MAyub114/tabPFN/boosting"
	"github.com/MAyub114/tabPFN/datasets"
	"github.com/MAyub114/tabPFN/metrics"
	"github.com/MAyub114/tabPFN/model_selection"
	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
	"github.com/MAyub114/tabPFN/pkg/log"
	"github.com/MAyub114/tabPFN/tabpfn"
)

// classifier is the uniform surface both model adapters share.
type classifier interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Runner executes the comparison pipeline described by its Config.
type Runner struct {
	config Config
}

// NewRunner creates a runner for the given configuration.
func NewRunner(config Config) *Runner {
	return &Runner{config: config}
}

// Run executes the pipeline and returns the report. History and plot
// outputs are written when the configuration enables them.
func (r *Runner) Run() (*Report, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("experiment.runner")

	X, y, err := r.loadDataset()
	if err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	logger.Info("Dataset loaded", log.SamplesKey, rows, log.FeaturesKey, cols)

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(
		X, y, r.config.Split.TestSize, r.config.Split.Seed)
	if err != nil {
		return nil, err
	}
	trainRows, _ := XTrain.Dims()
	testRows, _ := XTest.Dims()
	logger.Info("Split complete", "train_rows", trainRows, "test_rows", testRows)

	report := &Report{
		Dataset:   r.config.Data.Name,
		CreatedAt: time.Now(),
		TrainRows: trainRows,
		TestRows:  testRows,
		Features:  cols,
		Classes:   countClasses(y),
		TestSize:  r.config.Split.TestSize,
		Seed:      r.config.Split.Seed,
	}

	models := []struct {
		name string
		clf  classifier
	}{
		{"TabPFN", r.newTabPFN()},
		{"GradientBoosting", r.newBoosting()},
	}
	for _, m := range models {
		result, err := evaluate(m.name, m.clf, XTrain, yTrain, XTest, yTest)
		if err != nil {
			return nil, err
		}
		logger.Info("Model evaluated",
			"model", m.name,
			log.AccuracyKey, result.Accuracy,
			log.DurationSecondsKey, result.FitSeconds+result.PredictSeconds)
		report.Results = append(report.Results, result)
	}

	if r.config.History.Path != "" {
		if err := r.appendHistory(report); err != nil {
			return nil, err
		}
	}
	if r.config.Plot.Path != "" {
		if err := SaveAccuracyPlot(report, r.config.Plot.Path); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (r *Runner) loadDataset() (*mat.Dense, *mat.VecDense, error) {
	if path := r.config.Data.CSVPath; path != "" {
		return datasets.LoadBreastCancerCSV(path)
	}
	return datasets.LoadBreastCancer()
}

func (r *Runner) newTabPFN() classifier {
	return tabpfn.NewTabPFNClassifier().
		WithNEnsembleConfigurations(r.config.TabPFN.Ensembles).
		WithSeed(r.config.TabPFN.Seed).
		WithNJobs(r.config.TabPFN.NJobs)
}

func (r *Runner) newBoosting() classifier {
	clf := boosting.NewGradientBoostingClassifier().
		WithNumIterations(r.config.Boosting.NumIterations).
		WithLearningRate(r.config.Boosting.LearningRate).
		WithNumLeaves(r.config.Boosting.NumLeaves).
		WithMaxDepth(r.config.Boosting.MaxDepth).
		WithRandomState(r.config.Boosting.RandomState).
		WithDeterministic(true)
	if r.config.Boosting.EarlyStopping > 0 {
		clf = clf.WithEarlyStopping(r.config.Boosting.EarlyStopping)
	}
	return clf
}

func (r *Runner) appendHistory(report *Report) error {
	history, err := OpenHistory(r.config.History.Path)
	if err != nil {
		return err
	}
	defer history.Close()
	return history.Append(report)
}

// evaluate fits one model on the training split and scores the fraction
// of held-out rows it labels correctly.
func evaluate(name string, clf classifier, XTrain, yTrain, XTest, yTest mat.Matrix) (Result, error) {
	fitStart := time.Now()
	if err := clf.Fit(XTrain, yTrain); err != nil {
		return Result{}, tabpfnErrors.Wrapf(err, "failed to fit %s", name)
	}
	fitSeconds := time.Since(fitStart).Seconds()

	predictStart := time.Now()
	predictions, err := clf.Predict(XTest)
	if err != nil {
		return Result{}, tabpfnErrors.Wrapf(err, "failed to predict with %s", name)
	}
	predictSeconds := time.Since(predictStart).Seconds()

	accuracy, err := metrics.Accuracy(columnVec(yTest), columnVec(predictions))
	if err != nil {
		return Result{}, tabpfnErrors.Wrapf(err, "failed to score %s", name)
	}

	return Result{
		Name:           name,
		Accuracy:       accuracy,
		FitSeconds:     fitSeconds,
		PredictSeconds: predictSeconds,
	}, nil
}

func columnVec(m mat.Matrix) *mat.VecDense {
	rows, _ := m.Dims()
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

func countClasses(y mat.Matrix) int {
	rows, _ := y.Dims()
	seen := make(map[float64]struct{})
	for i := 0; i < rows; i++ {
		seen[y.At(i, 0)] = struct{}{}
	}
	return len(seen)
}
