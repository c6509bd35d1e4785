package tabpfn

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/MAyub114/tabPFN/core/model"
	"github.com/MAyub114/tabPFN/core/parallel"
	"github.com/MAyub114/tabPFN/metrics"
	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
	"github.com/MAyub114/tabPFN/pkg/log"
)

// In-context inference keeps the whole training set in memory, so the
// classifier enforces the same task limits as the published checkpoints.
const (
	MaxContextSamples = 10000
	MaxFeatures       = 100
	MaxClasses        = 10
)

// TabPFNClassifier is a prior-fitted tabular classifier. Fit does not run
// gradient descent: it memorizes the training set as an inference context.
// Predictions are posterior reads over that context, averaged across an
// ensemble of configurations that differ in feature view, preprocessing
// and attention temperature.
//
// Given the same training data and Seed the classifier is fully
// deterministic, independent of NJobs.
type TabPFNClassifier struct {
	state *model.StateManager

	// NEnsembleConfigurations is the number of ensemble members the
	// posterior is averaged over.
	NEnsembleConfigurations int
	// Device selects the inference backend. Only "cpu" is available.
	Device string
	// Seed drives the deterministic derivation of ensemble members.
	Seed int
	// NJobs is the number of worker goroutines used during prediction.
	// Values below 1 mean one worker per CPU.
	NJobs int
	// ShowProgress enables fitting progress logs.
	ShowProgress bool

	classes_   []int
	nClasses_  int
	nFeatures_ int
	nSamples_  int

	contextX *mat.Dense
	contextY []int
	members  []ensembleMember
}

// NewTabPFNClassifier creates a classifier with the published defaults:
// 32 ensemble configurations on the CPU backend.
func NewTabPFNClassifier() *TabPFNClassifier {
	return &TabPFNClassifier{
		state:                   model.NewStateManager(),
		NEnsembleConfigurations: 32,
		Device:                  "cpu",
		Seed:                    42,
		NJobs:                   -1,
	}
}

// WithNEnsembleConfigurations sets the ensemble size.
func (c *TabPFNClassifier) WithNEnsembleConfigurations(n int) *TabPFNClassifier {
	c.NEnsembleConfigurations = n
	return c
}

// WithDevice sets the inference backend.
func (c *TabPFNClassifier) WithDevice(device string) *TabPFNClassifier {
	c.Device = device
	return c
}

// WithSeed sets the seed for the ensemble derivation.
func (c *TabPFNClassifier) WithSeed(seed int) *TabPFNClassifier {
	c.Seed = seed
	return c
}

// WithNJobs sets the prediction worker count.
func (c *TabPFNClassifier) WithNJobs(nJobs int) *TabPFNClassifier {
	c.NJobs = nJobs
	return c
}

// WithProgressBar enables progress logging during Fit.
func (c *TabPFNClassifier) WithProgressBar(show bool) *TabPFNClassifier {
	c.ShowProgress = show
	return c
}

// Fit memorizes X and y as the inference context and derives the ensemble
// configurations. y must be a single column of integer class labels.
func (c *TabPFNClassifier) Fit(X, y mat.Matrix) (err error) {
	defer tabpfnErrors.Recover(&err, "TabPFNClassifier.Fit")

	if c.Device != "cpu" {
		return tabpfnErrors.NewValueError("TabPFNClassifier.Fit",
			fmt.Sprintf("unsupported device %q, only cpu inference is available", c.Device))
	}
	if c.NEnsembleConfigurations < 1 {
		return tabpfnErrors.NewValueError("TabPFNClassifier.Fit",
			"n_ensemble_configurations must be at least 1")
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return tabpfnErrors.NewDimensionError("TabPFNClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return tabpfnErrors.NewDimensionError("TabPFNClassifier.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return tabpfnErrors.NewValueError("TabPFNClassifier.Fit", "training data must not be empty")
	}
	if rows > MaxContextSamples {
		return tabpfnErrors.NewValueError("TabPFNClassifier.Fit",
			fmt.Sprintf("training set has %d rows, in-context inference supports at most %d", rows, MaxContextSamples))
	}
	if cols > MaxFeatures {
		return tabpfnErrors.NewValueError("TabPFNClassifier.Fit",
			fmt.Sprintf("training set has %d features, at most %d are supported", cols, MaxFeatures))
	}

	labels := make([]int, rows)
	classSet := make(map[int]struct{})
	for i := 0; i < rows; i++ {
		label := int(y.At(i, 0))
		labels[i] = label
		classSet[label] = struct{}{}
	}
	classes := make([]int, 0, len(classSet))
	for label := range classSet {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	if len(classes) < 2 {
		return tabpfnErrors.NewValueError("TabPFNClassifier.Fit",
			"training data must contain at least two classes")
	}
	if len(classes) > MaxClasses {
		return tabpfnErrors.NewValueError("TabPFNClassifier.Fit",
			fmt.Sprintf("training data has %d classes, at most %d are supported", len(classes), MaxClasses))
	}

	classIndex := make(map[int]int, len(classes))
	for i, label := range classes {
		classIndex[label] = i
	}

	c.classes_ = classes
	c.nClasses_ = len(classes)
	c.nFeatures_ = cols
	c.nSamples_ = rows
	c.contextX = mat.DenseCopyOf(X)
	c.contextY = make([]int, rows)
	for i, label := range labels {
		c.contextY[i] = classIndex[label]
	}

	start := time.Now()
	if c.ShowProgress {
		logger := log.GetLoggerWithName("tabpfn.classifier")
		logger.Info("Context memorized",
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
			log.ClassesKey, c.nClasses_)
	}

	if err := c.buildEnsemble(); err != nil {
		return err
	}

	c.state.SetDimensions(cols, rows)
	c.state.SetFitted()

	if c.ShowProgress {
		logger := log.GetLoggerWithName("tabpfn.classifier")
		logger.Info("Ensemble prepared",
			"configurations", len(c.members),
			log.DurationSecondsKey, time.Since(start).Seconds())
	}
	return nil
}

// Predict returns the most probable class label for each row of X as an
// n x 1 matrix.
func (c *TabPFNClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !c.state.IsFitted() {
		return nil, tabpfnErrors.NewNotFittedError("TabPFNClassifier", "Predict")
	}

	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}

	rows, _ := proba.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		bestProb := proba.At(i, 0)
		for j := 1; j < c.nClasses_; j++ {
			if p := proba.At(i, j); p > bestProb {
				best = j
				bestProb = p
			}
		}
		predictions.Set(i, 0, float64(c.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns the class probabilities for each row of X, one
// column per class in the order reported by Classes.
//
// Every row is scored independently against the memorized context: the
// posterior for a row depends only on that row and the stored training
// set, never on the other rows of the batch. Batch composition therefore
// cannot change any individual result, and rows are scored concurrently.
func (c *TabPFNClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !c.state.IsFitted() {
		return nil, tabpfnErrors.NewNotFittedError("TabPFNClassifier", "PredictProba")
	}

	rows, cols := X.Dims()
	if cols != c.nFeatures_ {
		return nil, tabpfnErrors.NewDimensionError("TabPFNClassifier.PredictProba", c.nFeatures_, cols, 1)
	}

	proba := mat.NewDense(rows, c.nClasses_, nil)
	errs := make([]error, rows)
	inv := 1.0 / float64(len(c.members))

	scoreRange := func(start, end int) {
		row := make([]float64, cols)
		acc := make([]float64, c.nClasses_)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			for j := range acc {
				acc[j] = 0
			}
			for m := range c.members {
				if err := c.members[m].accumulate(row, acc); err != nil {
					errs[i] = err
					break
				}
			}
			if errs[i] != nil {
				continue
			}
			out := proba.RawRowView(i)
			for j := range acc {
				out[j] = acc[j] * inv
			}
		}
	}

	workers := c.workerCount()
	if workers <= 1 || rows == 1 {
		scoreRange(0, rows)
	} else {
		parallel.ParallelizeWithWorkers(rows, workers, scoreRange)
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return proba, nil
}

// Score returns the accuracy of the classifier on X against y.
func (c *TabPFNClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := c.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	yPred := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
		yPred.SetVec(i, predictions.At(i, 0))
	}

	return metrics.Accuracy(yTrue, yPred)
}

// Classes returns the class labels in the order used by PredictProba.
func (c *TabPFNClassifier) Classes() []int {
	out := make([]int, len(c.classes_))
	copy(out, c.classes_)
	return out
}

// NClasses returns the number of classes seen during Fit.
func (c *TabPFNClassifier) NClasses() int {
	return c.nClasses_
}

func (c *TabPFNClassifier) workerCount() int {
	if c.NJobs > 0 {
		return c.NJobs
	}
	return runtime.NumCPU()
}

// GetParams returns the hyperparameters under their scikit-learn names.
func (c *TabPFNClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_ensemble_configurations": c.NEnsembleConfigurations,
		"device":                    c.Device,
		"seed":                      c.Seed,
		"n_jobs":                    c.NJobs,
		"show_progress":             c.ShowProgress,
	}
}

// SetParams updates hyperparameters from their scikit-learn names.
func (c *TabPFNClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_ensemble_configurations":
			c.NEnsembleConfigurations, err = paramInt(key, value)
		case "device":
			c.Device, err = paramString(key, value)
		case "seed":
			c.Seed, err = paramInt(key, value)
		case "n_jobs":
			c.NJobs, err = paramInt(key, value)
		case "show_progress":
			c.ShowProgress, err = paramBool(key, value)
		default:
			return tabpfnErrors.NewValueError("TabPFNClassifier.SetParams",
				fmt.Sprintf("unknown parameter: %s", key))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// classifierSnapshot is the gob image of a fitted classifier. Only the
// context and hyperparameters are stored; the ensemble is rebuilt
// deterministically on load.
type classifierSnapshot struct {
	ContextX                []float64
	Rows                    int
	Cols                    int
	ContextY                []int
	Classes                 []int
	NEnsembleConfigurations int
	Device                  string
	Seed                    int
	NJobs                   int
}

// SaveModel persists the fitted classifier to path.
func (c *TabPFNClassifier) SaveModel(path string) error {
	if !c.state.IsFitted() {
		return tabpfnErrors.NewNotFittedError("TabPFNClassifier", "SaveModel")
	}

	snapshot := classifierSnapshot{
		ContextX:                make([]float64, c.nSamples_*c.nFeatures_),
		Rows:                    c.nSamples_,
		Cols:                    c.nFeatures_,
		ContextY:                c.contextY,
		Classes:                 c.classes_,
		NEnsembleConfigurations: c.NEnsembleConfigurations,
		Device:                  c.Device,
		Seed:                    c.Seed,
		NJobs:                   c.NJobs,
	}
	for i := 0; i < c.nSamples_; i++ {
		copy(snapshot.ContextX[i*c.nFeatures_:(i+1)*c.nFeatures_], c.contextX.RawRowView(i))
	}
	return model.SaveModel(snapshot, path)
}

// LoadModel restores a classifier saved with SaveModel and rebuilds its
// ensemble from the stored seed.
func (c *TabPFNClassifier) LoadModel(path string) error {
	var snapshot classifierSnapshot
	if err := model.LoadModel(&snapshot, path); err != nil {
		return err
	}
	if snapshot.Rows*snapshot.Cols != len(snapshot.ContextX) || len(snapshot.ContextY) != snapshot.Rows {
		return tabpfnErrors.NewValueError("TabPFNClassifier.LoadModel",
			"model file does not contain a valid inference context")
	}

	c.NEnsembleConfigurations = snapshot.NEnsembleConfigurations
	c.Device = snapshot.Device
	c.Seed = snapshot.Seed
	c.NJobs = snapshot.NJobs
	c.classes_ = snapshot.Classes
	c.nClasses_ = len(snapshot.Classes)
	c.nFeatures_ = snapshot.Cols
	c.nSamples_ = snapshot.Rows
	c.contextX = mat.NewDense(snapshot.Rows, snapshot.Cols, snapshot.ContextX)
	c.contextY = snapshot.ContextY

	if err := c.buildEnsemble(); err != nil {
		return err
	}

	if c.state == nil {
		c.state = model.NewStateManager()
	}
	c.state.SetDimensions(snapshot.Cols, snapshot.Rows)
	c.state.SetFitted()
	return nil
}

func paramInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	}
	return 0, tabpfnErrors.NewValidationError(key, "expected an integer", value)
}

func paramString(key string, value interface{}) (string, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return "", tabpfnErrors.NewValidationError(key, "expected a string", value)
}

func paramBool(key string, value interface{}) (bool, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return false, tabpfnErrors.NewValidationError(key, "expected a bool", value)
}
