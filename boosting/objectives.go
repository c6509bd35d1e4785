package boosting

import (
	"math"
	"sort"

	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
)

// ObjectiveFunction defines the interface for training objectives
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial raw score for this objective
	GetInitScore(targets []float64) float64

	// Name returns the name of the objective
	Name() string
}

// L2Objective implements squared error loss
type L2Objective struct{}

func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return "regression"
}

// L1Objective implements absolute error loss
type L1Objective struct {
	epsilon float64 // Width of the flat region around zero residual
}

func NewL1Objective() *L1Objective {
	return &L1Objective{
		epsilon: 1e-7,
	}
}

func (o *L1Objective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	if math.Abs(diff) < o.epsilon {
		return 0.0
	}
	if diff > 0 {
		return 1.0
	}
	return -1.0
}

func (o *L1Objective) CalculateHessian(prediction, target float64) float64 {
	// The second derivative is zero almost everywhere; use a unit
	// hessian so leaf values stay bounded.
	return 1.0
}

func (o *L1Objective) CalculateLoss(prediction, target float64) float64 {
	return math.Abs(prediction - target)
}

func (o *L1Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	return calculateMedian(targets)
}

func (o *L1Objective) Name() string {
	return "regression_l1"
}

// HuberObjective implements Huber loss, quadratic near zero residual and
// linear beyond delta
type HuberObjective struct {
	delta float64
}

func NewHuberObjective(delta float64) *HuberObjective {
	if delta <= 0 {
		delta = 1.0
	}
	return &HuberObjective{
		delta: delta,
	}
}

func (o *HuberObjective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	if math.Abs(diff) <= o.delta {
		return diff
	}
	if diff > 0 {
		return o.delta
	}
	return -o.delta
}

func (o *HuberObjective) CalculateHessian(prediction, target float64) float64 {
	if math.Abs(prediction-target) <= o.delta {
		return 1.0
	}
	return 1e-7
}

func (o *HuberObjective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	absDiff := math.Abs(diff)
	if absDiff <= o.delta {
		return 0.5 * diff * diff
	}
	return o.delta * (absDiff - 0.5*o.delta)
}

func (o *HuberObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *HuberObjective) Name() string {
	return "huber"
}

// QuantileObjective implements pinball loss for quantile regression
type QuantileObjective struct {
	alpha float64 // Quantile level (0 < alpha < 1)
}

func NewQuantileObjective(alpha float64) *QuantileObjective {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.5
	}
	return &QuantileObjective{
		alpha: alpha,
	}
}

func (o *QuantileObjective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	if diff > 0 {
		return o.alpha
	} else if diff < 0 {
		return o.alpha - 1.0
	}
	return 0.0
}

func (o *QuantileObjective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *QuantileObjective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	if diff > 0 {
		return o.alpha * diff
	}
	return (o.alpha - 1.0) * diff
}

func (o *QuantileObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	return calculateQuantile(targets, o.alpha)
}

func (o *QuantileObjective) Name() string {
	return "quantile"
}

// FairObjective implements Fair loss, a robust loss with bounded gradient
type FairObjective struct {
	c float64 // Scale parameter
}

func NewFairObjective(c float64) *FairObjective {
	if c <= 0 {
		c = 1.0
	}
	return &FairObjective{
		c: c,
	}
}

func (o *FairObjective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	return o.c * diff / (math.Abs(diff) + o.c)
}

func (o *FairObjective) CalculateHessian(prediction, target float64) float64 {
	diff := prediction - target
	denominator := math.Abs(diff) + o.c
	return o.c * o.c / (denominator * denominator)
}

func (o *FairObjective) CalculateLoss(prediction, target float64) float64 {
	diff := math.Abs(prediction - target)
	return o.c * o.c * (diff/o.c - math.Log(1+diff/o.c))
}

func (o *FairObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	return calculateMedian(targets)
}

func (o *FairObjective) Name() string {
	return "fair"
}

// PoissonObjective implements Poisson loss on a log link
type PoissonObjective struct{}

func NewPoissonObjective() *PoissonObjective {
	return &PoissonObjective{}
}

func (o *PoissonObjective) CalculateGradient(prediction, target float64) float64 {
	return tabpfnErrors.StabilizeExp(prediction) - target
}

func (o *PoissonObjective) CalculateHessian(prediction, target float64) float64 {
	return tabpfnErrors.StabilizeExp(prediction)
}

func (o *PoissonObjective) CalculateLoss(prediction, target float64) float64 {
	return tabpfnErrors.StabilizeExp(prediction) - target*prediction
}

func (o *PoissonObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	mean := sum / float64(len(targets))
	if mean <= 0 {
		return -10.0
	}
	return math.Log(mean)
}

func (o *PoissonObjective) Name() string {
	return "poisson"
}

// BinaryLogisticObjective implements logistic loss for binary classification.
// Predictions are raw log-odds; gradients and hessians follow the standard
// logistic formulation: g = sigmoid(pred) - y, h = p * (1 - p).
type BinaryLogisticObjective struct{}

func NewBinaryLogisticObjective() *BinaryLogisticObjective {
	return &BinaryLogisticObjective{}
}

func (o *BinaryLogisticObjective) CalculateGradient(prediction, target float64) float64 {
	return logisticProbability(prediction) - target
}

func (o *BinaryLogisticObjective) CalculateHessian(prediction, target float64) float64 {
	p := logisticProbability(prediction)
	hess := p * (1.0 - p)
	if hess < 1e-16 {
		hess = 1e-16
	}
	return hess
}

func (o *BinaryLogisticObjective) CalculateLoss(prediction, target float64) float64 {
	// log(1 + exp(-|x|)) + max(x, 0) - x*y is the overflow-safe form of
	// -y*log(p) - (1-y)*log(1-p).
	loss := math.Log1p(math.Exp(-math.Abs(prediction))) - prediction*target
	if prediction > 0 {
		loss += prediction
	}
	return loss
}

func (o *BinaryLogisticObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	// Log-odds of the positive rate, clipped away from 0 and 1
	p := tabpfnErrors.ClipValue(sum/float64(len(targets)), 1e-12, 1.0-1e-12)
	return math.Log(p / (1.0 - p))
}

func (o *BinaryLogisticObjective) Name() string {
	return "binary"
}

// logisticProbability computes sigmoid(x) without overflowing for large |x|
func logisticProbability(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

// Helper functions

func calculateMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

func calculateQuantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	// Linear interpolation between the two closest order statistics
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))

	if lower == upper {
		return sorted[lower]
	}

	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// CreateObjectiveFunction creates an objective function from its name.
// The params argument supplies objective-specific settings such as the
// Huber delta or the quantile level.
func CreateObjectiveFunction(objective string, params *TrainingParams) (ObjectiveFunction, error) {
	switch objective {
	case "regression", "regression_l2", "l2", "mean_squared_error", "mse":
		return NewL2Objective(), nil
	case "regression_l1", "l1", "mean_absolute_error", "mae":
		return NewL1Objective(), nil
	case "huber":
		delta := 1.0
		if params != nil && params.HuberDelta > 0 {
			delta = params.HuberDelta
		}
		return NewHuberObjective(delta), nil
	case "fair":
		c := 1.0
		if params != nil && params.FairC > 0 {
			c = params.FairC
		}
		return NewFairObjective(c), nil
	case "poisson":
		return NewPoissonObjective(), nil
	case "quantile":
		alpha := 0.5
		if params != nil && params.QuantileAlpha > 0 && params.QuantileAlpha < 1 {
			alpha = params.QuantileAlpha
		}
		return NewQuantileObjective(alpha), nil
	case "binary", "binary_logloss", "logistic":
		return NewBinaryLogisticObjective(), nil
	default:
		return nil, tabpfnErrors.NewValueError("CreateObjectiveFunction", "unknown objective: "+objective)
	}
}
