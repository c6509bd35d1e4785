// Package model provides additional interfaces and types for machine learning models.
// This file complements the basic interfaces in estimator.go
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns a single quality figure for the prediction:
	// mean accuracy for classifiers, R^2 for regressors.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	// SaveModel writes the fitted model to a file.
	SaveModel(path string) error

	// LoadModel restores the model from a file.
	LoadModel(path string) error
}
