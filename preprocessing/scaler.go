// Package preprocessing provides the feature scalers the ensemble members
// fit on their context views.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/MAyub114/tabPFN/core/model"
	"github.com/MAyub114/tabPFN/pkg/errors"
)

// StandardScaler shifts each feature to zero mean and unit variance.
// Statistics come from the data passed to Fit; Transform never looks at
// the data it is given beyond applying them.
type StandardScaler struct {
	model.BaseEstimator

	Mean      []float64
	Scale     []float64
	NFeatures int
}

// NewStandardScalerDefault creates a StandardScaler that centers and
// scales every feature.
func NewStandardScalerDefault() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes the per-feature mean and standard deviation.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		s.Mean[j] = sum / float64(r)

		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - s.Mean[j]
			sumSquares += diff * diff
		}
		s.Scale[j] = math.Sqrt(sumSquares / float64(r))

		// A constant feature keeps scale 1 so Transform never divides
		// by zero.
		if s.Scale[j] < 1e-8 {
			s.Scale[j] = 1.0
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X with the statistics learned by Fit.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits on X and returns the standardized copy.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized data back to the original scale.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// MinMaxScaler maps each feature linearly onto FeatureRange, [0, 1] by
// default.
type MinMaxScaler struct {
	model.BaseEstimator

	DataMin      []float64
	Scale        []float64
	NFeatures    int
	FeatureRange [2]float64
}

// NewMinMaxScaler creates a MinMaxScaler targeting the given range.
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault creates a MinMaxScaler targeting [0, 1].
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit computes the per-feature minimum and range.
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		min := X.At(0, j)
		max := min
		for i := 1; i < r; i++ {
			val := X.At(i, j)
			if val < min {
				min = val
			}
			if val > max {
				max = val
			}
		}

		m.DataMin[j] = min
		m.Scale[j] = max - min
		// A constant feature keeps scale 1 so Transform never divides
		// by zero.
		if m.Scale[j] < 1e-8 {
			m.Scale[j] = 1.0
		}
	}

	m.SetFitted()
	return nil
}

// Transform rescales X onto FeatureRange with the statistics learned by
// Fit. Values outside the fitted min and max land outside the range.
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}

	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", m.NFeatures, c, 1)
	}

	span := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			scaled := (X.At(i, j)-m.DataMin[j])/m.Scale[j]*span + m.FeatureRange[0]
			result.Set(i, j, scaled)
		}
	}
	return result, nil
}

// FitTransform fits on X and returns the rescaled copy.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform maps rescaled data back to the original units.
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.InverseTransform", m.NFeatures, c, 1)
	}

	span := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			original := (X.At(i, j)-m.FeatureRange[0])/span*m.Scale[j] + m.DataMin[j]
			result.Set(i, j, original)
		}
	}
	return result, nil
}
