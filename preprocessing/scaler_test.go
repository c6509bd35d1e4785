package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStandardScaler(t *testing.T) {
	t.Run("fit and transform produce zero mean and unit variance", func(t *testing.T) {
		X := mat.NewDense(4, 2, []float64{
			1.0, 10.0,
			2.0, 20.0,
			3.0, 30.0,
			4.0, 40.0,
		})

		scaler := NewStandardScalerDefault()
		scaled, err := scaler.FitTransform(X)
		require.NoError(t, err)

		r, c := scaled.Dims()
		require.Equal(t, 4, r)
		require.Equal(t, 2, c)

		for j := 0; j < c; j++ {
			var sum, sumSq float64
			for i := 0; i < r; i++ {
				v := scaled.At(i, j)
				sum += v
				sumSq += v * v
			}
			mean := sum / float64(r)
			variance := sumSq/float64(r) - mean*mean

			assert.InDelta(t, 0.0, mean, 1e-10, "column %d mean", j)
			assert.InDelta(t, 1.0, variance, 1e-10, "column %d variance", j)
		}
	})

	t.Run("transform uses statistics from fit data", func(t *testing.T) {
		XTrain := mat.NewDense(2, 1, []float64{0.0, 2.0})
		XTest := mat.NewDense(2, 1, []float64{1.0, 3.0})

		scaler := NewStandardScalerDefault()
		require.NoError(t, scaler.Fit(XTrain))

		scaled, err := scaler.Transform(XTest)
		require.NoError(t, err)

		// mean=1, std=1: expect (1-1)/1=0 and (3-1)/1=2
		assert.InDelta(t, 0.0, scaled.At(0, 0), 1e-10)
		assert.InDelta(t, 2.0, scaled.At(1, 0), 1e-10)
	})

	t.Run("constant feature does not divide by zero", func(t *testing.T) {
		X := mat.NewDense(3, 1, []float64{5.0, 5.0, 5.0})

		scaler := NewStandardScalerDefault()
		scaled, err := scaler.FitTransform(X)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			assert.False(t, math.IsNaN(scaled.At(i, 0)))
			assert.False(t, math.IsInf(scaled.At(i, 0), 0))
		}
	})

	t.Run("inverse transform recovers original values", func(t *testing.T) {
		X := mat.NewDense(3, 2, []float64{
			1.5, -2.0,
			0.5, 4.0,
			-1.0, 8.0,
		})

		scaler := NewStandardScalerDefault()
		scaled, err := scaler.FitTransform(X)
		require.NoError(t, err)

		recovered, err := scaler.InverseTransform(scaled)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			for j := 0; j < 2; j++ {
				assert.InDelta(t, X.At(i, j), recovered.At(i, j), 1e-10)
			}
		}
	})

	t.Run("transform before fit returns not fitted error", func(t *testing.T) {
		scaler := NewStandardScalerDefault()
		_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1.0}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not fitted")
	})

	t.Run("feature count mismatch returns error", func(t *testing.T) {
		scaler := NewStandardScalerDefault()
		require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))

		_, err := scaler.Transform(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}))
		require.Error(t, err)
	})
}

func TestMinMaxScaler(t *testing.T) {
	t.Run("scales to unit range by default", func(t *testing.T) {
		X := mat.NewDense(3, 1, []float64{2.0, 4.0, 6.0})

		scaler := NewMinMaxScalerDefault()
		scaled, err := scaler.FitTransform(X)
		require.NoError(t, err)

		assert.InDelta(t, 0.0, scaled.At(0, 0), 1e-10)
		assert.InDelta(t, 0.5, scaled.At(1, 0), 1e-10)
		assert.InDelta(t, 1.0, scaled.At(2, 0), 1e-10)
	})

	t.Run("respects custom feature range", func(t *testing.T) {
		X := mat.NewDense(2, 1, []float64{0.0, 10.0})

		scaler := NewMinMaxScaler([2]float64{-1.0, 1.0})
		scaled, err := scaler.FitTransform(X)
		require.NoError(t, err)

		assert.InDelta(t, -1.0, scaled.At(0, 0), 1e-10)
		assert.InDelta(t, 1.0, scaled.At(1, 0), 1e-10)
	})

	t.Run("inverse transform round trips", func(t *testing.T) {
		X := mat.NewDense(4, 2, []float64{
			1.0, 100.0,
			2.0, 50.0,
			3.0, 25.0,
			4.0, 75.0,
		})

		scaler := NewMinMaxScalerDefault()
		scaled, err := scaler.FitTransform(X)
		require.NoError(t, err)

		recovered, err := scaler.InverseTransform(scaled)
		require.NoError(t, err)

		for i := 0; i < 4; i++ {
			for j := 0; j < 2; j++ {
				assert.InDelta(t, X.At(i, j), recovered.At(i, j), 1e-10)
			}
		}
	})

	t.Run("constant feature maps without NaN", func(t *testing.T) {
		X := mat.NewDense(3, 1, []float64{7.0, 7.0, 7.0})

		scaler := NewMinMaxScalerDefault()
		scaled, err := scaler.FitTransform(X)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			assert.False(t, math.IsNaN(scaled.At(i, 0)))
		}
	})

	t.Run("transform before fit returns not fitted error", func(t *testing.T) {
		scaler := NewMinMaxScalerDefault()
		_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1.0}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not fitted")
	})
}
