package boosting

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/MAyub114/tabPFN/core/model"
	"github.com/MAyub114/tabPFN/metrics"
	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
	"github.com/MAyub114/tabPFN/pkg/log"
)

// GradientBoostingRegressor is a decision tree gradient boosting
// regressor supporting l2, l1, huber, quantile, fair and poisson
// objectives.
type GradientBoostingRegressor struct {
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

	// Alpha is the quantile level for the quantile objective
	Alpha float64
	// Lambda is the delta parameter for the huber objective
	Lambda float64

	// Fitted attributes
	nFeatures_ int
	nSamples_  int
}

// NewGradientBoostingRegressor creates a regressor with default
// hyperparameters
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
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
		Objective:       "regression",
		Metric:          "l2",
		NumThreads:      -1,
		Verbosity:       -1,
		Alpha:           0.5,
		Lambda:          1.5,
	}
}

// WithNumLeaves sets the maximum number of leaves per tree
func (r *GradientBoostingRegressor) WithNumLeaves(numLeaves int) *GradientBoostingRegressor {
	r.NumLeaves = numLeaves
	return r
}

// WithMaxDepth sets the maximum tree depth
func (r *GradientBoostingRegressor) WithMaxDepth(maxDepth int) *GradientBoostingRegressor {
	r.MaxDepth = maxDepth
	return r
}

// WithLearningRate sets the shrinkage rate
func (r *GradientBoostingRegressor) WithLearningRate(learningRate float64) *GradientBoostingRegressor {
	r.LearningRate = learningRate
	return r
}

// WithNumIterations sets the number of boosting iterations
func (r *GradientBoostingRegressor) WithNumIterations(numIterations int) *GradientBoostingRegressor {
	r.NumIterations = numIterations
	return r
}

// WithRandomState sets the random seed
func (r *GradientBoostingRegressor) WithRandomState(randomState int) *GradientBoostingRegressor {
	r.RandomState = randomState
	return r
}

// WithDeterministic enables fully reproducible training and prediction
func (r *GradientBoostingRegressor) WithDeterministic(deterministic bool) *GradientBoostingRegressor {
	r.Deterministic = deterministic
	return r
}

// WithObjective sets the regression objective
func (r *GradientBoostingRegressor) WithObjective(objective string) *GradientBoostingRegressor {
	r.Objective = objective
	return r
}

// WithEarlyStopping stops training after the given number of iterations
// without training loss improvement
func (r *GradientBoostingRegressor) WithEarlyStopping(rounds int) *GradientBoostingRegressor {
	r.EarlyStopping = rounds
	return r
}

// WithProgressBar enables progress logging during training
func (r *GradientBoostingRegressor) WithProgressBar(show bool) *GradientBoostingRegressor {
	r.ShowProgress = show
	return r
}

// Fit trains the regressor on X and continuous targets y
func (r *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer tabpfnErrors.Recover(&err, "GradientBoostingRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return tabpfnErrors.NewDimensionError("GradientBoostingRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return tabpfnErrors.NewDimensionError("GradientBoostingRegressor.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return tabpfnErrors.NewValueError("GradientBoostingRegressor.Fit", "training data is empty")
	}

	r.nFeatures_ = cols
	r.nSamples_ = rows

	logger := log.GetLoggerWithName("boosting.regressor")
	start := time.Now()
	if r.ShowProgress {
		logger.Info("Starting training",
			log.SamplesKey, rows,
			log.FeaturesKey, cols)
	}

	params := TrainingParams{
		NumIterations:   r.NumIterations,
		LearningRate:    r.LearningRate,
		NumLeaves:       r.NumLeaves,
		MaxDepth:        r.MaxDepth,
		MinDataInLeaf:   r.MinChildSamples,
		Lambda:          r.RegLambda,
		Alpha:           r.RegAlpha,
		MinGainToSplit:  1e-7,
		BaggingFraction: r.Subsample,
		BaggingFreq:     r.SubsampleFreq,
		FeatureFraction: r.ColsampleBytree,
		Objective:       r.Objective,
		NumClass:        1,
		HuberDelta:      r.Lambda,
		QuantileAlpha:   r.Alpha,
		Seed:            r.RandomState,
		Deterministic:   r.Deterministic,
		Verbosity:       r.Verbosity,
		EarlyStopping:   r.EarlyStopping,
		Metric:          r.Metric,
	}

	trainer := NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		return err
	}

	r.Model = trainer.GetModel()
	r.state.SetDimensions(cols, rows)
	r.state.SetFitted()

	if r.ShowProgress {
		logger.Info("Training complete",
			log.TreesKey, len(r.Model.Trees),
			log.DurationSecondsKey, time.Since(start).Seconds())
	}

	return nil
}

// Predict returns the predicted target value for each row of X
func (r *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.state.IsFitted() {
		return nil, tabpfnErrors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}

	p := NewPredictor(r.Model)
	if r.NumThreads > 0 {
		p.SetNumThreads(r.NumThreads)
	}
	return p.Predict(X)
}

// predictVecs predicts X and returns true and predicted targets as
// vectors for the metrics package
func (r *GradientBoostingRegressor) predictVecs(X, y mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	predictions, err := r.Predict(X)
	if err != nil {
		return nil, nil, err
	}

	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	yPred := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
		yPred.SetVec(i, predictions.At(i, 0))
	}

	return yTrue, yPred, nil
}

// Score returns the coefficient of determination R^2 on the given data
func (r *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	yTrue, yPred, err := r.predictVecs(X, y)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred)
}

// GetResiduals returns y minus the predictions as an n x 1 matrix
func (r *GradientBoostingRegressor) GetResiduals(X, y mat.Matrix) (mat.Matrix, error) {
	predictions, err := r.Predict(X)
	if err != nil {
		return nil, err
	}

	rows, _ := y.Dims()
	residuals := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		residuals.Set(i, 0, y.At(i, 0)-predictions.At(i, 0))
	}

	return residuals, nil
}

// GetMSE returns the mean squared error on the given data
func (r *GradientBoostingRegressor) GetMSE(X, y mat.Matrix) (float64, error) {
	yTrue, yPred, err := r.predictVecs(X, y)
	if err != nil {
		return 0, err
	}
	return metrics.MSE(yTrue, yPred)
}

// GetMAE returns the mean absolute error on the given data
func (r *GradientBoostingRegressor) GetMAE(X, y mat.Matrix) (float64, error) {
	yTrue, yPred, err := r.predictVecs(X, y)
	if err != nil {
		return 0, err
	}
	return metrics.MAE(yTrue, yPred)
}

// GetRMSE returns the root mean squared error on the given data
func (r *GradientBoostingRegressor) GetRMSE(X, y mat.Matrix) (float64, error) {
	yTrue, yPred, err := r.predictVecs(X, y)
	if err != nil {
		return 0, err
	}
	return metrics.RMSE(yTrue, yPred)
}

// GetFeatureImportance returns per-feature importances of the trained
// ensemble. importanceType is "split" or "gain".
func (r *GradientBoostingRegressor) GetFeatureImportance(importanceType string) []float64 {
	if r.Model == nil {
		return nil
	}
	return r.Model.GetFeatureImportance(importanceType)
}

// GetParams returns the hyperparameters using scikit-learn naming
func (r *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      r.NumIterations,
		"learning_rate":     r.LearningRate,
		"max_depth":         r.MaxDepth,
		"num_leaves":        r.NumLeaves,
		"min_child_samples": r.MinChildSamples,
		"min_child_weight":  r.MinChildWeight,
		"subsample":         r.Subsample,
		"subsample_freq":    r.SubsampleFreq,
		"colsample_bytree":  r.ColsampleBytree,
		"reg_alpha":         r.RegAlpha,
		"reg_lambda":        r.RegLambda,
		"random_state":      r.RandomState,
		"objective":         r.Objective,
		"metric":            r.Metric,
		"n_jobs":            r.NumThreads,
		"deterministic":     r.Deterministic,
		"verbosity":         r.Verbosity,
		"alpha":             r.Alpha,
		"lambda":            r.Lambda,
	}
}

// SetParams sets hyperparameters from a map using scikit-learn naming
func (r *GradientBoostingRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			r.NumIterations, err = paramInt(key, value)
		case "learning_rate":
			r.LearningRate, err = paramFloat(key, value)
		case "max_depth":
			r.MaxDepth, err = paramInt(key, value)
		case "num_leaves":
			r.NumLeaves, err = paramInt(key, value)
		case "min_child_samples":
			r.MinChildSamples, err = paramInt(key, value)
		case "min_child_weight":
			r.MinChildWeight, err = paramFloat(key, value)
		case "subsample":
			r.Subsample, err = paramFloat(key, value)
		case "subsample_freq":
			r.SubsampleFreq, err = paramInt(key, value)
		case "colsample_bytree":
			r.ColsampleBytree, err = paramFloat(key, value)
		case "reg_alpha":
			r.RegAlpha, err = paramFloat(key, value)
		case "reg_lambda":
			r.RegLambda, err = paramFloat(key, value)
		case "random_state":
			r.RandomState, err = paramInt(key, value)
		case "objective":
			r.Objective, err = paramString(key, value)
		case "metric":
			r.Metric, err = paramString(key, value)
		case "n_jobs":
			r.NumThreads, err = paramInt(key, value)
		case "deterministic":
			r.Deterministic, err = paramBool(key, value)
		case "verbosity":
			r.Verbosity, err = paramInt(key, value)
		case "alpha":
			r.Alpha, err = paramFloat(key, value)
		case "lambda":
			r.Lambda, err = paramFloat(key, value)
		default:
			err = tabpfnErrors.NewValueError("GradientBoostingRegressor.SetParams",
				"unknown parameter: "+key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// regressorSnapshot is the gob serialized form of a fitted regressor
type regressorSnapshot struct {
	Model           *Model
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
	Alpha           float64
	Lambda          float64
	NumFeatures     int
	NumSamples      int
}

// SaveModel writes the fitted regressor to a file in gob format
func (r *GradientBoostingRegressor) SaveModel(path string) error {
	if !r.state.IsFitted() {
		return tabpfnErrors.NewNotFittedError("GradientBoostingRegressor", "SaveModel")
	}

	snapshot := &regressorSnapshot{
		Model:           r.Model,
		NumLeaves:       r.NumLeaves,
		MaxDepth:        r.MaxDepth,
		LearningRate:    r.LearningRate,
		NumIterations:   r.NumIterations,
		MinChildSamples: r.MinChildSamples,
		MinChildWeight:  r.MinChildWeight,
		Subsample:       r.Subsample,
		SubsampleFreq:   r.SubsampleFreq,
		ColsampleBytree: r.ColsampleBytree,
		RegAlpha:        r.RegAlpha,
		RegLambda:       r.RegLambda,
		RandomState:     r.RandomState,
		Objective:       r.Objective,
		Metric:          r.Metric,
		Deterministic:   r.Deterministic,
		Alpha:           r.Alpha,
		Lambda:          r.Lambda,
		NumFeatures:     r.nFeatures_,
		NumSamples:      r.nSamples_,
	}

	return model.SaveModel(snapshot, path)
}

// LoadModel restores a regressor previously written by SaveModel
func (r *GradientBoostingRegressor) LoadModel(path string) error {
	snapshot := &regressorSnapshot{}
	if err := model.LoadModel(snapshot, path); err != nil {
		return err
	}
	if snapshot.Model == nil {
		return tabpfnErrors.NewValueError("GradientBoostingRegressor.LoadModel",
			"file does not contain a regressor model")
	}

	r.Model = snapshot.Model
	r.nFeatures_ = snapshot.NumFeatures
	r.nSamples_ = snapshot.NumSamples
	r.NumLeaves = snapshot.NumLeaves
	r.MaxDepth = snapshot.MaxDepth
	r.LearningRate = snapshot.LearningRate
	r.NumIterations = snapshot.NumIterations
	r.MinChildSamples = snapshot.MinChildSamples
	r.MinChildWeight = snapshot.MinChildWeight
	r.Subsample = snapshot.Subsample
	r.SubsampleFreq = snapshot.SubsampleFreq
	r.ColsampleBytree = snapshot.ColsampleBytree
	r.RegAlpha = snapshot.RegAlpha
	r.RegLambda = snapshot.RegLambda
	r.RandomState = snapshot.RandomState
	r.Objective = snapshot.Objective
	r.Metric = snapshot.Metric
	r.Deterministic = snapshot.Deterministic
	r.Alpha = snapshot.Alpha
	r.Lambda = snapshot.Lambda

	if r.state == nil {
		r.state = model.NewStateManager()
	}
	r.state.SetDimensions(snapshot.NumFeatures, snapshot.NumSamples)
	r.state.SetFitted()

	return nil
}
