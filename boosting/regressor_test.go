package boosting

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func makeRegressorData(rows, cols int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			X.Set(i, j, float64((i*(j+2))%13)*0.1)
		}
		X.Set(i, 0, float64(i)*0.1)
		y.Set(i, 0, 0.5*X.At(i, 0)+10.0)
	}
	return X, y
}

func TestGradientBoostingRegressorFit(t *testing.T) {
	X, y := makeRegressorData(100, 4)

	reg := NewGradientBoostingRegressor().
		WithNumIterations(20).
		WithRandomState(42)

	require.NoError(t, reg.Fit(X, y))

	assert.True(t, reg.state.IsFitted())
	assert.NotNil(t, reg.Model)
	assert.Equal(t, 4, reg.Model.NumFeatures)
	assert.Equal(t, RegressionL2, reg.Model.Objective)
}

func TestGradientBoostingRegressorPredict(t *testing.T) {
	X, y := makeRegressorData(100, 4)

	reg := NewGradientBoostingRegressor().
		WithNumIterations(20).
		WithRandomState(42)
	require.NoError(t, reg.Fit(X, y))

	predictions, err := reg.Predict(X)
	require.NoError(t, err)

	rows, cols := predictions.Dims()
	assert.Equal(t, 100, rows)
	assert.Equal(t, 1, cols)

	for i := 0; i < rows; i++ {
		assert.False(t, math.IsNaN(predictions.At(i, 0)))
	}
}

func TestGradientBoostingRegressorScore(t *testing.T) {
	X, y := makeRegressorData(100, 4)

	reg := NewGradientBoostingRegressor().
		WithNumIterations(30).
		WithRandomState(42)
	require.NoError(t, reg.Fit(X, y))

	score, err := reg.Score(X, y)
	require.NoError(t, err)

	// The target is a linear function of the first feature
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestGradientBoostingRegressorMetrics(t *testing.T) {
	X, y := makeRegressorData(100, 4)

	reg := NewGradientBoostingRegressor().
		WithNumIterations(30).
		WithRandomState(42)
	require.NoError(t, reg.Fit(X, y))

	mse, err := reg.GetMSE(X, y)
	require.NoError(t, err)
	rmse, err := reg.GetRMSE(X, y)
	require.NoError(t, err)
	mae, err := reg.GetMAE(X, y)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, mse, 0.0)
	assert.InDelta(t, math.Sqrt(mse), rmse, 1e-9)
	assert.GreaterOrEqual(t, mae, 0.0)

	residuals, err := reg.GetResiduals(X, y)
	require.NoError(t, err)

	rows, cols := residuals.Dims()
	assert.Equal(t, 100, rows)
	assert.Equal(t, 1, cols)

	predictions, err := reg.Predict(X)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, y.At(i, 0)-predictions.At(i, 0), residuals.At(i, 0), 1e-12)
	}
}

func TestGradientBoostingRegressorObjectives(t *testing.T) {
	X, y := makeRegressorData(100, 4)

	for _, objective := range []string{"regression", "regression_l1", "huber", "quantile", "fair"} {
		t.Run(objective, func(t *testing.T) {
			reg := NewGradientBoostingRegressor().
				WithObjective(objective).
				WithNumIterations(10).
				WithRandomState(42)

			require.NoError(t, reg.Fit(X, y))

			predictions, err := reg.Predict(X)
			require.NoError(t, err)
			for i := 0; i < 100; i++ {
				assert.False(t, math.IsNaN(predictions.At(i, 0)))
			}
		})
	}
}

func TestGradientBoostingRegressorParameters(t *testing.T) {
	reg := NewGradientBoostingRegressor()

	err := reg.SetParams(map[string]interface{}{
		"n_estimators":  50,
		"learning_rate": 0.05,
		"max_depth":     5,
		"num_leaves":    20,
		"alpha":         0.9,
		"lambda":        2.0,
	})
	require.NoError(t, err)

	params := reg.GetParams()
	assert.Equal(t, 50, params["n_estimators"])
	assert.Equal(t, 0.05, params["learning_rate"])
	assert.Equal(t, 5, params["max_depth"])
	assert.Equal(t, 20, params["num_leaves"])
	assert.Equal(t, 0.9, params["alpha"])
	assert.Equal(t, 2.0, params["lambda"])

	assert.Error(t, reg.SetParams(map[string]interface{}{"bogus": 1}))
}

func TestGradientBoostingRegressorFeatureImportance(t *testing.T) {
	X, y := makeRegressorData(100, 4)

	reg := NewGradientBoostingRegressor().
		WithNumIterations(20).
		WithRandomState(42)
	require.NoError(t, reg.Fit(X, y))

	importance := reg.GetFeatureImportance("gain")
	require.Len(t, importance, 4)

	for j := 1; j < 4; j++ {
		assert.GreaterOrEqual(t, importance[0], importance[j])
	}
	assert.Greater(t, importance[0], 0.0)
}

func TestGradientBoostingRegressorNotFittedError(t *testing.T) {
	reg := NewGradientBoostingRegressor()
	X := mat.NewDense(5, 4, nil)

	_, err := reg.Predict(X)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not fitted")

	_, err = reg.Score(X, mat.NewDense(5, 1, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not fitted")
}

func TestGradientBoostingRegressorSaveLoad(t *testing.T) {
	X, y := makeRegressorData(100, 4)

	reg := NewGradientBoostingRegressor().
		WithNumIterations(10).
		WithRandomState(42).
		WithDeterministic(true)
	require.NoError(t, reg.Fit(X, y))

	path := filepath.Join(t.TempDir(), "regressor.gob")
	require.NoError(t, reg.SaveModel(path))

	restored := NewGradientBoostingRegressor()
	require.NoError(t, restored.LoadModel(path))
	assert.True(t, restored.state.IsFitted())

	want, err := reg.Predict(X)
	require.NoError(t, err)
	got, err := restored.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-10))

	t.Run("unfitted regressors cannot be saved", func(t *testing.T) {
		err := NewGradientBoostingRegressor().SaveModel(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not fitted")
	})
}
