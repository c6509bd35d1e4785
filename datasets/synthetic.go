package datasets

import (
	"math"
	"math/rand/v2"

	"github.com/MAyub114/tabPFN/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ClassificationParams configures MakeClassification.
type ClassificationParams struct {
	// NSamples is the total number of generated rows.
	NSamples int

	// NFeatures is the number of feature columns.
	NFeatures int

	// NInformative is the number of leading features that carry class
	// signal. The remaining features are pure noise.
	NInformative int

	// ClassSep is the distance between the two class centers along each
	// informative feature, in units of the noise standard deviation.
	ClassSep float64

	// PositiveFraction is the fraction of samples labeled 1.
	PositiveFraction float64

	// Seed fixes the generator. The same parameters always produce the
	// same dataset.
	Seed uint64
}

// DefaultBreastCancerParams returns generator parameters matching the
// shape and class balance of the Wisconsin breast cancer data:
// 569 samples, 30 features, 212 positive (malignant) cases.
func DefaultBreastCancerParams() ClassificationParams {
	return ClassificationParams{
		NSamples:         BreastCancerSamples,
		NFeatures:        BreastCancerFeatures,
		NInformative:     10,
		ClassSep:         1.5,
		PositiveFraction: float64(BreastCancerMalignant) / float64(BreastCancerSamples),
		Seed:             42,
	}
}

// MakeClassification generates a synthetic binary classification dataset.
//
// Samples of each class are drawn from Gaussian clusters separated by
// ClassSep along the informative features. Each feature column is then
// rescaled and shifted by a fixed per-column factor so the columns have
// heterogeneous ranges, the way real measurement data does. Rows are
// shuffled so both classes appear throughout the dataset.
//
// The output depends only on the parameters: calling the function twice
// with the same ClassificationParams yields identical matrices.
func MakeClassification(params ClassificationParams) (*mat.Dense, *mat.VecDense, error) {
	if params.NSamples < 2 {
		return nil, nil, errors.NewValidationError("n_samples", "must be at least 2", params.NSamples)
	}
	if params.NFeatures < 1 {
		return nil, nil, errors.NewValidationError("n_features", "must be positive", params.NFeatures)
	}
	if params.NInformative < 0 || params.NInformative > params.NFeatures {
		return nil, nil, errors.NewValidationError("n_informative", "must be in [0, n_features]", params.NInformative)
	}
	if params.PositiveFraction <= 0 || params.PositiveFraction >= 1 {
		return nil, nil, errors.NewValidationError("positive_fraction", "must be in (0, 1)", params.PositiveFraction)
	}
	if params.ClassSep < 0 {
		return nil, nil, errors.NewValidationError("class_sep", "must be non-negative", params.ClassSep)
	}

	n := params.NSamples
	d := params.NFeatures
	rng := rand.New(rand.NewPCG(params.Seed, params.Seed))

	nPos := int(math.Round(params.PositiveFraction * float64(n)))
	if nPos < 1 {
		nPos = 1
	}
	if nPos > n-1 {
		nPos = n - 1
	}

	// Per-column affine transforms giving features heterogeneous scales,
	// roughly spanning 0.01 to 100.
	scales := make([]float64, d)
	offsets := make([]float64, d)
	for j := 0; j < d; j++ {
		scales[j] = math.Pow(10, rng.Float64()*4-2)
		offsets[j] = rng.Float64() * 10 * scales[j]
	}

	rows := make([][]float64, n)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		class := 0.0
		if i >= n-nPos {
			class = 1.0
		}
		labels[i] = class

		center := -params.ClassSep / 2
		if class == 1 {
			center = params.ClassSep / 2
		}

		row := make([]float64, d)
		for j := 0; j < d; j++ {
			v := rng.NormFloat64()
			if j < params.NInformative {
				v += center
			}
			row[j] = v*scales[j] + offsets[j]
		}
		rows[i] = row
	}

	rng.Shuffle(n, func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
		labels[i], labels[j] = labels[j], labels[i]
	})

	X := mat.NewDense(n, d, nil)
	for i, row := range rows {
		X.SetRow(i, row)
	}

	return X, mat.NewVecDense(n, labels), nil
}
