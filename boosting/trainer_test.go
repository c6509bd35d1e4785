package boosting

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func makeRegressionData(rows int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(rows, 2, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		x1 := float64(i % 10)
		x2 := float64((i * 7) % 13)
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y.Set(i, 0, 2.0*x1+3.0*x2+0.01*float64(i%3))
	}
	return X, y
}

func makeSeparableData(rows int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(rows, 2, nil)
	y := mat.NewDense(rows, 1, nil)
	half := rows / 2
	for i := 0; i < rows; i++ {
		if i < half {
			X.Set(i, 0, -1.0-float64(i%5))
		} else {
			X.Set(i, 0, 1.0+float64(i%5))
			y.Set(i, 0, 1.0)
		}
		X.Set(i, 1, float64(i%3))
	}
	return X, y
}

func TestTrainerBasic(t *testing.T) {
	X, y := makeRegressionData(100)

	trainer := NewTrainer(TrainingParams{
		NumIterations: 10,
		LearningRate:  0.1,
		NumLeaves:     15,
		MinDataInLeaf: 5,
		Objective:     "regression",
		Seed:          42,
	})

	require.NoError(t, trainer.Fit(X, y))
	assert.NotEmpty(t, trainer.trees)

	model := trainer.GetModel()
	assert.Equal(t, len(trainer.trees), model.NumIteration)
	assert.Equal(t, 2, model.NumFeatures)
	assert.Equal(t, 1, model.NumClass)
	require.Len(t, model.InitScores, 1)

	// Training should reduce the loss below the constant-prediction
	// baseline
	predictions, err := model.Predict(X)
	require.NoError(t, err)

	baselineSSE := 0.0
	fittedSSE := 0.0
	for i := 0; i < 100; i++ {
		baseDiff := y.At(i, 0) - model.InitScores[0]
		fitDiff := y.At(i, 0) - predictions.At(i, 0)
		baselineSSE += baseDiff * baseDiff
		fittedSSE += fitDiff * fitDiff
	}
	assert.Less(t, fittedSSE, baselineSSE)
}

func TestTrainerFitBinaryClassification(t *testing.T) {
	X, y := makeSeparableData(50)

	trainer := NewTrainer(TrainingParams{
		NumIterations:  10,
		LearningRate:   0.1,
		NumLeaves:      7,
		MinDataInLeaf:  5,
		MinGainToSplit: 1e-7,
		Objective:      "binary",
		Seed:           42,
		Deterministic:  true,
	})

	require.NoError(t, trainer.Fit(X, y))

	model := trainer.GetModel()
	assert.Equal(t, BinaryLogistic, model.Objective)
	assert.Len(t, model.Trees, 10)

	// Predictions are probabilities and the separable boundary at zero
	// must be learned
	predictions, err := model.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		p := predictions.At(i, 0)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if y.At(i, 0) == 1.0 {
			assert.Greater(t, p, 0.5, "sample %d", i)
		} else {
			assert.Less(t, p, 0.5, "sample %d", i)
		}
	}
}

func TestBinaryClassificationGradients(t *testing.T) {
	X, y := makeSeparableData(40)

	trainer := NewTrainer(TrainingParams{
		Objective: "binary",
		Seed:      42,
	})
	require.NoError(t, trainer.setup(X, y))

	// Balanced classes give a zero log-odds init score, so the first
	// iteration sees probabilities of exactly 0.5
	assert.InDelta(t, 0.0, trainer.initScore, 1e-9)

	trainer.calculateGradients()
	for i := 0; i < 40; i++ {
		if y.At(i, 0) == 1.0 {
			assert.InDelta(t, -0.5, trainer.gradients[i], 1e-9)
		} else {
			assert.InDelta(t, 0.5, trainer.gradients[i], 1e-9)
		}
		assert.InDelta(t, 0.25, trainer.hessians[i], 1e-9)
	}
}

func TestSplitGainCalculation(t *testing.T) {
	params := TrainingParams{Lambda: 1.0}
	trainer := &Trainer{
		params:      params,
		regularizer: NewRegularizationStrategy(params),
	}

	// 0.5 * (100/6 + 100/6 - 0/11)
	gain := trainer.calculateSplitGain(-10.0, 5.0, 10.0, 5.0, 0.0, 10.0)
	assert.InDelta(t, 16.667, gain, 0.01)

	neutral := trainer.calculateSplitGain(0.0, 5.0, 0.0, 5.0, 0.0, 10.0)
	assert.InDelta(t, 0.0, neutral, 1e-9)
}

func TestLeafValueCalculation(t *testing.T) {
	params := TrainingParams{Lambda: 1.0}
	trainer := &Trainer{
		params:      params,
		regularizer: NewRegularizationStrategy(params),
		gradients:   []float64{-1.0, -2.0, -3.0, 1.0, 2.0},
		hessians:    []float64{1.0, 1.0, 1.0, 1.0, 1.0},
	}

	// -(-6)/(3+1) = 1.5
	value := trainer.calculateLeafValue([]int{0, 1, 2})
	assert.InDelta(t, 1.5, value, 1e-6)
}

func TestTrainerInitScore(t *testing.T) {
	X := mat.NewDense(40, 1, nil)
	y := mat.NewDense(40, 1, nil)
	for i := 0; i < 40; i++ {
		X.Set(i, 0, float64(i))
		if i < 30 {
			y.Set(i, 0, 1.0)
		}
	}

	trainer := NewTrainer(TrainingParams{
		NumIterations: 1,
		Objective:     "binary",
		MinDataInLeaf: 5,
		Seed:          42,
	})
	require.NoError(t, trainer.Fit(X, y))

	// 30 positives out of 40 gives log(0.75/0.25)
	model := trainer.GetModel()
	require.Len(t, model.InitScores, 1)
	assert.InDelta(t, math.Log(3.0), model.InitScores[0], 1e-6)
}

func TestTrainerEarlyStopping(t *testing.T) {
	// Constant targets stall the training loss from the first
	// iteration, so stopping triggers after exactly the configured
	// number of non-improving rounds
	rows := 60
	X := mat.NewDense(rows, 2, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
		y.Set(i, 0, 5.0)
	}

	trainer := NewTrainer(TrainingParams{
		NumIterations:  50,
		MinDataInLeaf:  5,
		MinGainToSplit: 1e-7,
		Objective:      "regression",
		EarlyStopping:  3,
		Seed:           42,
	})

	require.NoError(t, trainer.Fit(X, y))
	assert.Equal(t, 4, len(trainer.trees))
}

func TestEarlyStoppingTracker(t *testing.T) {
	es := NewEarlyStopping(2, "l2")
	assert.True(t, es.Enabled)
	assert.True(t, es.Minimize)

	assert.False(t, es.Update(0, 1.0))
	assert.False(t, es.Update(1, 0.5))
	assert.False(t, es.Update(2, 0.6))
	assert.True(t, es.Update(3, 0.7))
	assert.True(t, es.ShouldStop())
	assert.Equal(t, 1, es.GetBestIteration())

	maximize := NewEarlyStopping(2, "accuracy")
	assert.False(t, maximize.Minimize)
	assert.False(t, maximize.Update(0, 0.8))
	assert.False(t, maximize.Update(1, 0.9))
	assert.False(t, maximize.Update(2, 0.85))
	assert.True(t, maximize.Update(3, 0.85))
	assert.Equal(t, 1, maximize.GetBestIteration())

	disabled := NewEarlyStopping(0, "l2")
	assert.False(t, disabled.Enabled)
	assert.False(t, disabled.Update(0, 1.0))
	assert.Equal(t, -1, disabled.GetBestIteration())
}

func TestFitWithValidation(t *testing.T) {
	rows := 60
	X := mat.NewDense(rows, 2, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%5))
		y.Set(i, 0, 5.0)
	}
	valX := mat.NewDense(20, 2, nil)
	valY := mat.NewDense(20, 1, nil)
	for i := 0; i < 20; i++ {
		valX.Set(i, 0, float64(i))
		valY.Set(i, 0, 5.0)
	}

	trainer := NewTrainer(TrainingParams{
		NumIterations:  50,
		MinDataInLeaf:  5,
		MinGainToSplit: 1e-7,
		Objective:      "regression",
		Seed:           42,
	})

	valData := &ValidationData{X: valX, Y: valY}
	require.NoError(t, trainer.FitWithValidation(X, y, valData, 3))

	// Stops well before the configured iteration count and keeps only the best
	// iteration
	assert.Less(t, len(trainer.trees), 50)
	assert.Equal(t, 1, len(trainer.trees))

	t.Run("validation dimension mismatch", func(t *testing.T) {
		bad := NewTrainer(TrainingParams{Objective: "regression"})
		badVal := &ValidationData{X: mat.NewDense(5, 3, nil), Y: mat.NewDense(5, 1, nil)}
		assert.Error(t, bad.FitWithValidation(X, y, badVal, 3))
	})

	t.Run("missing validation data", func(t *testing.T) {
		bad := NewTrainer(TrainingParams{Objective: "regression"})
		assert.Error(t, bad.FitWithValidation(X, y, nil, 3))
	})
}

func TestTrainingCallbacks(t *testing.T) {
	X, y := makeRegressionData(60)

	t.Run("RecordEvaluation", func(t *testing.T) {
		var history map[string][]float64

		trainer := NewTrainer(TrainingParams{
			NumIterations: 5,
			MinDataInLeaf: 5,
			Objective:     "regression",
			Seed:          42,
		})

		require.NoError(t, trainer.FitWithCallbacks(X, y, RecordEvaluation(&history)))
		assert.Len(t, history["training_loss"], 5)
	})

	t.Run("EarlyStoppingCallback", func(t *testing.T) {
		constY := mat.NewDense(60, 1, nil)
		for i := 0; i < 60; i++ {
			constY.Set(i, 0, 5.0)
		}

		trainer := NewTrainer(TrainingParams{
			NumIterations:  50,
			MinDataInLeaf:  5,
			MinGainToSplit: 1e-7,
			Objective:      "regression",
			Seed:           42,
		})

		stop := EarlyStoppingCallback(1, "training_loss", true)
		require.NoError(t, trainer.FitWithCallbacks(X, constY, stop))
		assert.Equal(t, 2, len(trainer.trees))
	})
}

func TestTrainerValidation(t *testing.T) {
	t.Run("row count mismatch", func(t *testing.T) {
		trainer := NewTrainer(TrainingParams{})
		err := trainer.Fit(mat.NewDense(10, 2, nil), mat.NewDense(5, 1, nil))
		assert.Error(t, err)
	})

	t.Run("multi column targets", func(t *testing.T) {
		trainer := NewTrainer(TrainingParams{})
		err := trainer.Fit(mat.NewDense(10, 2, nil), mat.NewDense(10, 2, nil))
		assert.Error(t, err)
	})

	t.Run("unknown objective", func(t *testing.T) {
		trainer := NewTrainer(TrainingParams{Objective: "nope"})
		err := trainer.Fit(mat.NewDense(30, 2, nil), mat.NewDense(30, 1, nil))
		assert.Error(t, err)
	})
}

func BenchmarkTraining(b *testing.B) {
	X, y := makeRegressionData(200)
	params := TrainingParams{
		NumIterations: 10,
		LearningRate:  0.1,
		NumLeaves:     15,
		MinDataInLeaf: 5,
		Objective:     "regression",
		Seed:          42,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		trainer := NewTrainer(params)
		_ = trainer.Fit(X, y)
	}
}
