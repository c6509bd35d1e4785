package boosting

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/MAyub114/tabPFN/core/model"
	"github.com/MAyub114/tabPFN/metrics"
	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
	"github.com/MAyub114/tabPFN/pkg/log"
)

// GradientBoostingClassifier is a decision tree gradient boosting
// classifier. Binary problems train a single logistic ensemble, problems
// with more classes train one ensemble per class one-vs-rest.
type GradientBoostingClassifier struct {
	state *model.StateManager

	// Model is the trained ensemble
	Model *Model

	// Hyperparameters
	NumLeaves       int
	MaxDepth        int
	LearningRate    float64
	NumIterations   int
	MinChildSamples int
	MinChildWeight  float64
	Subsample       float64
	SubsampleFreq   int
	ColsampleBytree float64
	RegAlpha        float64
	RegLambda       float64
	RandomState     int
	Objective       string
	Metric          string
	NumThreads      int
	Deterministic   bool
	Verbosity       int
	EarlyStopping   int
	ShowProgress    bool

	// Fitted attributes
	classes_   []int
	nClasses_  int
	nFeatures_ int
	nSamples_  int
}

// NewGradientBoostingClassifier creates a classifier with default
// hyperparameters
func NewGradientBoostingClassifier() *GradientBoostingClassifier {
	return &GradientBoostingClassifier{
		state:           model.NewStateManager(),
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		NumIterations:   100,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		Subsample:       1.0,
		SubsampleFreq:   0,
		ColsampleBytree: 1.0,
		RegAlpha:        0.0,
		RegLambda:       0.0,
		RandomState:     42,
		Objective:       "binary",
		Metric:          "binary_logloss",
		NumThreads:      -1,
		Verbosity:       -1,
	}
}

// WithNumLeaves sets the maximum number of leaves per tree
func (c *GradientBoostingClassifier) WithNumLeaves(numLeaves int) *GradientBoostingClassifier {
	c.NumLeaves = numLeaves
	return c
}

// WithMaxDepth sets the maximum tree depth
func (c *GradientBoostingClassifier) WithMaxDepth(maxDepth int) *GradientBoostingClassifier {
	c.MaxDepth = maxDepth
	return c
}

// WithLearningRate sets the shrinkage rate
func (c *GradientBoostingClassifier) WithLearningRate(learningRate float64) *GradientBoostingClassifier {
	c.LearningRate = learningRate
	return c
}

// WithNumIterations sets the number of boosting iterations
func (c *GradientBoostingClassifier) WithNumIterations(numIterations int) *GradientBoostingClassifier {
	c.NumIterations = numIterations
	return c
}

// WithRandomState sets the random seed
func (c *GradientBoostingClassifier) WithRandomState(randomState int) *GradientBoostingClassifier {
	c.RandomState = randomState
	return c
}

// WithDeterministic enables fully reproducible training and prediction
func (c *GradientBoostingClassifier) WithDeterministic(deterministic bool) *GradientBoostingClassifier {
	c.Deterministic = deterministic
	return c
}

// WithEarlyStopping stops training after the given number of iterations
// without training loss improvement
func (c *GradientBoostingClassifier) WithEarlyStopping(rounds int) *GradientBoostingClassifier {
	c.EarlyStopping = rounds
	return c
}

// WithProgressBar enables progress logging during training
func (c *GradientBoostingClassifier) WithProgressBar(show bool) *GradientBoostingClassifier {
	c.ShowProgress = show
	return c
}

// Fit trains the classifier on X and integer class labels y
func (c *GradientBoostingClassifier) Fit(X, y mat.Matrix) (err error) {
	defer tabpfnErrors.Recover(&err, "GradientBoostingClassifier.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return tabpfnErrors.NewDimensionError("GradientBoostingClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return tabpfnErrors.NewDimensionError("GradientBoostingClassifier.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return tabpfnErrors.NewValueError("GradientBoostingClassifier.Fit", "training data is empty")
	}

	classSet := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classSet[int(y.At(i, 0))] = true
	}
	classes := make([]int, 0, len(classSet))
	for cls := range classSet {
		classes = append(classes, cls)
	}
	sort.Ints(classes)

	if len(classes) < 2 {
		return tabpfnErrors.NewValueError("GradientBoostingClassifier.Fit",
			"training data must contain at least two classes")
	}

	c.classes_ = classes
	c.nClasses_ = len(classes)
	c.nFeatures_ = cols
	c.nSamples_ = rows

	logger := log.GetLoggerWithName("boosting.classifier")
	start := time.Now()
	if c.ShowProgress {
		logger.Info("Starting training",
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
			log.ClassesKey, c.nClasses_)
	}

	if c.nClasses_ == 2 {
		err = c.fitBinary(X, y)
	} else {
		err = c.fitOneVsRest(X, y)
	}
	if err != nil {
		return err
	}

	c.state.SetDimensions(cols, rows)
	c.state.SetFitted()

	if c.ShowProgress {
		logger.Info("Training complete",
			log.TreesKey, len(c.Model.Trees),
			log.DurationSecondsKey, time.Since(start).Seconds())
	}

	return nil
}

// trainingParams maps the sklearn style hyperparameters onto trainer
// parameters for a single binary ensemble
func (c *GradientBoostingClassifier) trainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:   c.NumIterations,
		LearningRate:    c.LearningRate,
		NumLeaves:       c.NumLeaves,
		MaxDepth:        c.MaxDepth,
		MinDataInLeaf:   c.MinChildSamples,
		Lambda:          c.RegLambda,
		Alpha:           c.RegAlpha,
		MinGainToSplit:  1e-7,
		BaggingFraction: c.Subsample,
		BaggingFreq:     c.SubsampleFreq,
		FeatureFraction: c.ColsampleBytree,
		Objective:       "binary",
		NumClass:        1,
		Seed:            c.RandomState,
		Deterministic:   c.Deterministic,
		Verbosity:       c.Verbosity,
		EarlyStopping:   c.EarlyStopping,
		Metric:          c.Metric,
	}
}

func (c *GradientBoostingClassifier) fitBinary(X, y mat.Matrix) error {
	rows, _ := X.Dims()

	targets := mat.NewDense(rows, 1, nil)
	positive := c.classes_[1]
	for i := 0; i < rows; i++ {
		if int(y.At(i, 0)) == positive {
			targets.Set(i, 0, 1.0)
		}
	}

	trainer := NewTrainer(c.trainingParams())
	if err := trainer.Fit(X, targets); err != nil {
		return err
	}

	m := trainer.GetModel()
	m.Objective = BinaryLogistic
	m.NumClass = 2
	c.Model = m

	return nil
}

func (c *GradientBoostingClassifier) fitOneVsRest(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	numClass := c.nClasses_

	perClass := make([][]Tree, numClass)
	initScores := make([]float64, numClass)

	for k := 0; k < numClass; k++ {
		targets := mat.NewDense(rows, 1, nil)
		for i := 0; i < rows; i++ {
			if int(y.At(i, 0)) == c.classes_[k] {
				targets.Set(i, 0, 1.0)
			}
		}

		params := c.trainingParams()
		params.Seed = c.RandomState + k

		trainer := NewTrainer(params)
		if err := trainer.Fit(X, targets); err != nil {
			return tabpfnErrors.Wrapf(err, "one-vs-rest training failed for class %d", c.classes_[k])
		}

		perClass[k] = trainer.trees
		initScores[k] = trainer.initScore
	}

	// Interleave per-class trees iteration-major so tree i scores class
	// i modulo the class count. Early stopping can leave ensembles with
	// different lengths, so all are truncated to the shortest.
	numIterations := len(perClass[0])
	for k := 1; k < numClass; k++ {
		if len(perClass[k]) < numIterations {
			numIterations = len(perClass[k])
		}
	}

	trees := make([]Tree, 0, numIterations*numClass)
	for i := 0; i < numIterations; i++ {
		for k := 0; k < numClass; k++ {
			tree := perClass[k][i]
			tree.TreeIndex = len(trees)
			trees = append(trees, tree)
		}
	}

	m := NewModel()
	m.Objective = MulticlassOVR
	m.NumClass = numClass
	m.Trees = trees
	m.NumIteration = numIterations
	m.LearningRate = c.LearningRate
	m.NumLeaves = c.NumLeaves
	m.MaxDepth = c.MaxDepth
	m.NumFeatures = c.nFeatures_
	m.InitScores = initScores
	m.Deterministic = c.Deterministic
	m.RandomSeed = c.RandomState
	c.Model = m

	return nil
}

func (c *GradientBoostingClassifier) predictor() *Predictor {
	p := NewPredictor(c.Model)
	if c.NumThreads > 0 {
		p.SetNumThreads(c.NumThreads)
	}
	return p
}

// Predict returns the predicted class label for each row of X
func (c *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !c.state.IsFitted() {
		return nil, tabpfnErrors.NewNotFittedError("GradientBoostingClassifier", "Predict")
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
		for k := 1; k < c.nClasses_; k++ {
			if p := proba.At(i, k); p > bestProb {
				bestProb = p
				best = k
			}
		}
		predictions.Set(i, 0, float64(c.classes_[best]))
	}

	return predictions, nil
}

// PredictProba returns class membership probabilities, one column per
// class in ascending label order, each row summing to one
func (c *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !c.state.IsFitted() {
		return nil, tabpfnErrors.NewNotFittedError("GradientBoostingClassifier", "PredictProba")
	}
	return c.predictor().PredictProba(X)
}

// DecisionFunction returns raw margin scores before the logistic
// transformation
func (c *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if !c.state.IsFitted() {
		return nil, tabpfnErrors.NewNotFittedError("GradientBoostingClassifier", "DecisionFunction")
	}
	return c.predictor().PredictRaw(X)
}

// Score returns the mean accuracy on the given test data and labels
func (c *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
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

// GetFeatureImportance returns per-feature importances of the trained
// ensemble. importanceType is "split" or "gain".
func (c *GradientBoostingClassifier) GetFeatureImportance(importanceType string) []float64 {
	if c.Model == nil {
		return nil
	}
	return c.Model.GetFeatureImportance(importanceType)
}

// Classes returns the class labels seen during Fit in ascending order
func (c *GradientBoostingClassifier) Classes() []int {
	out := make([]int, len(c.classes_))
	copy(out, c.classes_)
	return out
}

// NClasses returns the number of classes seen during Fit
func (c *GradientBoostingClassifier) NClasses() int {
	return c.nClasses_
}

// GetParams returns the hyperparameters using scikit-learn naming
func (c *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      c.NumIterations,
		"learning_rate":     c.LearningRate,
		"max_depth":         c.MaxDepth,
		"num_leaves":        c.NumLeaves,
		"min_child_samples": c.MinChildSamples,
		"min_child_weight":  c.MinChildWeight,
		"subsample":         c.Subsample,
		"subsample_freq":    c.SubsampleFreq,
		"colsample_bytree":  c.ColsampleBytree,
		"reg_alpha":         c.RegAlpha,
		"reg_lambda":        c.RegLambda,
		"random_state":      c.RandomState,
		"objective":         c.Objective,
		"metric":            c.Metric,
		"n_jobs":            c.NumThreads,
		"deterministic":     c.Deterministic,
		"verbosity":         c.Verbosity,
	}
}

// SetParams sets hyperparameters from a map using scikit-learn naming
func (c *GradientBoostingClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			c.NumIterations, err = paramInt(key, value)
		case "learning_rate":
			c.LearningRate, err = paramFloat(key, value)
		case "max_depth":
			c.MaxDepth, err = paramInt(key, value)
		case "num_leaves":
			c.NumLeaves, err = paramInt(key, value)
		case "min_child_samples":
			c.MinChildSamples, err = paramInt(key, value)
		case "min_child_weight":
			c.MinChildWeight, err = paramFloat(key, value)
		case "subsample":
			c.Subsample, err = paramFloat(key, value)
		case "subsample_freq":
			c.SubsampleFreq, err = paramInt(key, value)
		case "colsample_bytree":
			c.ColsampleBytree, err = paramFloat(key, value)
		case "reg_alpha":
			c.RegAlpha, err = paramFloat(key, value)
		case "reg_lambda":
			c.RegLambda, err = paramFloat(key, value)
		case "random_state":
			c.RandomState, err = paramInt(key, value)
		case "objective":
			c.Objective, err = paramString(key, value)
		case "metric":
			c.Metric, err = paramString(key, value)
		case "n_jobs":
			c.NumThreads, err = paramInt(key, value)
		case "deterministic":
			c.Deterministic, err = paramBool(key, value)
		case "verbosity":
			c.Verbosity, err = paramInt(key, value)
		default:
			err = tabpfnErrors.NewValueError("GradientBoostingClassifier.SetParams",
				"unknown parameter: "+key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// classifierSnapshot is the gob serialized form of a fitted classifier
type classifierSnapshot struct {
	Model           *Model
	Classes         []int
	NumLeaves       int
	MaxDepth        int
	LearningRate    float64
	NumIterations   int
	MinChildSamples int
	MinChildWeight  float64
	Subsample       float64
	SubsampleFreq   int
	ColsampleBytree float64
	RegAlpha        float64
	RegLambda       float64
	RandomState     int
	Objective       string
	Metric          string
	Deterministic   bool
	NumFeatures     int
	NumSamples      int
}

// SaveModel writes the fitted classifier to a file in gob format
func (c *GradientBoostingClassifier) SaveModel(path string) error {
	if !c.state.IsFitted() {
		return tabpfnErrors.NewNotFittedError("GradientBoostingClassifier", "SaveModel")
	}

	snapshot := &classifierSnapshot{
		Model:           c.Model,
		Classes:         c.classes_,
		NumLeaves:       c.NumLeaves,
		MaxDepth:        c.MaxDepth,
		LearningRate:    c.LearningRate,
		NumIterations:   c.NumIterations,
		MinChildSamples: c.MinChildSamples,
		MinChildWeight:  c.MinChildWeight,
		Subsample:       c.Subsample,
		SubsampleFreq:   c.SubsampleFreq,
		ColsampleBytree: c.ColsampleBytree,
		RegAlpha:        c.RegAlpha,
		RegLambda:       c.RegLambda,
		RandomState:     c.RandomState,
		Objective:       c.Objective,
		Metric:          c.Metric,
		Deterministic:   c.Deterministic,
		NumFeatures:     c.nFeatures_,
		NumSamples:      c.nSamples_,
	}

	return model.SaveModel(snapshot, path)
}

// LoadModel restores a classifier previously written by SaveModel
func (c *GradientBoostingClassifier) LoadModel(path string) error {
	snapshot := &classifierSnapshot{}
	if err := model.LoadModel(snapshot, path); err != nil {
		return err
	}
	if snapshot.Model == nil {
		return tabpfnErrors.NewValueError("GradientBoostingClassifier.LoadModel",
			"file does not contain a classifier model")
	}

	c.Model = snapshot.Model
	c.classes_ = snapshot.Classes
	c.nClasses_ = len(snapshot.Classes)
	c.nFeatures_ = snapshot.NumFeatures
	c.nSamples_ = snapshot.NumSamples
	c.NumLeaves = snapshot.NumLeaves
	c.MaxDepth = snapshot.MaxDepth
	c.LearningRate = snapshot.LearningRate
	c.NumIterations = snapshot.NumIterations
	c.MinChildSamples = snapshot.MinChildSamples
	c.MinChildWeight = snapshot.MinChildWeight
	c.Subsample = snapshot.Subsample
	c.SubsampleFreq = snapshot.SubsampleFreq
	c.ColsampleBytree = snapshot.ColsampleBytree
	c.RegAlpha = snapshot.RegAlpha
	c.RegLambda = snapshot.RegLambda
	c.RandomState = snapshot.RandomState
	c.Objective = snapshot.Objective
	c.Metric = snapshot.Metric
	c.Deterministic = snapshot.Deterministic

	if c.state == nil {
		c.state = model.NewStateManager()
	}
	c.state.SetDimensions(snapshot.NumFeatures, snapshot.NumSamples)
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

func paramFloat(key string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, tabpfnErrors.NewValidationError(key, "expected a number", value)
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
