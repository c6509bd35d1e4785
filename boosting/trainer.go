package boosting

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
	"github.com/MAyub114/tabPFN/pkg/log"
)

// Trainer implements histogram-free gradient boosting over regression trees.
// One tree is fit per iteration against the gradient of the configured
// objective, with optional row and feature subsampling.
type Trainer struct {
	params TrainingParams

	// Data
	X            *mat.Dense
	y            *mat.Dense
	sampleWeight []float64

	// Gradient and hessian per training row, refreshed every iteration
	gradients []float64
	hessians  []float64

	// Cached raw ensemble prediction per training row, updated as trees
	// are added so each iteration costs one tree traversal per row
	rawPredictions []float64

	// Trees
	trees []Tree

	// Training state
	iteration       int
	bestLoss        float64
	roundsNoImprove int

	// Objective function
	objective ObjectiveFunction
	initScore float64

	// Strategies
	sampler     *SamplingStrategy
	regularizer *RegularizationStrategy

	// Callbacks
	callbacks *CallbackList
}

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	Alpha          float64 `json:"lambda_l1"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq"`
	FeatureFraction float64 `json:"feature_fraction"`

	// Objective
	Objective string `json:"objective"`
	NumClass  int    `json:"num_class"`

	// Objective-specific parameters
	HuberDelta    float64 `json:"huber_delta"`
	QuantileAlpha float64 `json:"quantile_alpha"`
	FairC         float64 `json:"fair_c"`

	// Other
	Seed          int    `json:"seed"`
	Deterministic bool   `json:"deterministic"`
	Verbosity     int    `json:"verbosity"`
	EarlyStopping int    `json:"early_stopping_rounds"`
	Metric        string `json:"metric"`
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
	LeftGrad   float64
	RightGrad  float64
	LeftHess   float64
	RightHess  float64
}

// NewTrainer creates a new trainer with defaults filled in for any
// unset parameters
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = 31
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.BaggingFraction == 0 {
		params.BaggingFraction = 1.0
	}
	if params.FeatureFraction == 0 {
		params.FeatureFraction = 1.0
	}
	if params.Objective == "" {
		params.Objective = "regression"
	}

	return &Trainer{
		params:      params,
		sampler:     NewSamplingStrategy(params),
		regularizer: NewRegularizationStrategy(params),
	}
}

// WithCallbacks sets the callbacks invoked around each boosting iteration
func (t *Trainer) WithCallbacks(callbacks ...Callback) *Trainer {
	t.callbacks = NewCallbackList(callbacks...)
	return t
}

// denseCopy returns m as a *mat.Dense, copying only when necessary
func denseCopy(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

// Fit trains the boosting ensemble on X and y
func (t *Trainer) Fit(X, y mat.Matrix) error {
	if err := t.setup(X, y); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("boosting.trainer")

	// Main training loop
	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter

		if t.callbacks != nil {
			if err := t.callbacks.BeforeIteration(iter, t.GetModel()); err != nil {
				return tabpfnErrors.Wrapf(err, "callback error at iteration %d", iter)
			}
			if t.callbacks.ShouldStop() {
				if t.params.Verbosity > 0 {
					logger.Info("Training stopped by callback", log.IterationKey, iter)
				}
				break
			}
		}

		t.calculateGradients()

		tree, err := t.buildTree()
		if err != nil {
			return tabpfnErrors.Wrapf(err, "tree building failed at iteration %d", iter)
		}
		t.trees = append(t.trees, tree)
		t.updatePredictions(&tree)

		loss := t.calculateLoss()
		evalResults := map[string]float64{"training_loss": loss}

		if t.callbacks != nil {
			if err := t.callbacks.AfterIteration(iter, t.GetModel(), evalResults); err != nil {
				return tabpfnErrors.Wrapf(err, "callback error at iteration %d", iter)
			}
			if t.callbacks.ShouldStop() {
				if t.params.Verbosity > 0 {
					logger.Info("Training stopped by callback", log.IterationKey, iter)
				}
				break
			}
		}

		if t.params.EarlyStopping > 0 && t.checkEarlyStopping(loss) {
			if t.params.Verbosity > 0 {
				logger.Info("Early stopping on training loss", log.IterationKey, iter)
			}
			break
		}

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss)
		}
	}

	return nil
}

// setup validates the data, resolves the objective and prepares the
// per-row training state
func (t *Trainer) setup(X, y mat.Matrix) error {
	t.X = denseCopy(X)
	t.y = denseCopy(y)

	rows, _ := t.X.Dims()
	yRows, yCols := t.y.Dims()
	if rows != yRows {
		return tabpfnErrors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return tabpfnErrors.NewDimensionError("Trainer.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return tabpfnErrors.NewValueError("Trainer.Fit", "training data is empty")
	}

	if err := t.initialize(); err != nil {
		return err
	}

	objFunc, err := CreateObjectiveFunction(t.params.Objective, &t.params)
	if err != nil {
		return tabpfnErrors.Wrap(err, "failed to create objective function")
	}
	t.objective = objFunc

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		targets[i] = t.y.At(i, 0)
	}
	t.initScore = t.objective.GetInitScore(targets)
	for i := range t.rawPredictions {
		t.rawPredictions[i] = t.initScore
	}

	return nil
}

// initialize allocates the per-row training state
func (t *Trainer) initialize() error {
	rows, _ := t.X.Dims()

	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.rawPredictions = make([]float64, rows)
	t.bestLoss = math.Inf(1)
	t.roundsNoImprove = 0

	if t.sampleWeight == nil {
		t.sampleWeight = make([]float64, rows)
		for i := range t.sampleWeight {
			t.sampleWeight[i] = 1.0
		}
	}

	return nil
}

// calculateGradients computes gradients and hessians for current predictions
func (t *Trainer) calculateGradients() {
	rows, _ := t.y.Dims()

	for i := 0; i < rows; i++ {
		prediction := t.rawPredictions[i]
		target := t.y.At(i, 0)

		t.gradients[i] = t.objective.CalculateGradient(prediction, target) * t.sampleWeight[i]
		t.hessians[i] = t.objective.CalculateHessian(prediction, target) * t.sampleWeight[i]
	}
}

// buildTree constructs a single decision tree on the sampled rows and features
func (t *Trainer) buildTree() (Tree, error) {
	tree := Tree{
		TreeIndex:     t.iteration,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         []Node{},
	}

	rows, cols := t.X.Dims()
	rootIndices := t.sampler.SampleInstances(rows, t.iteration)
	features := t.sampler.SampleFeatures(cols, t.iteration)

	t.buildNode(&tree, rootIndices, features, -1, 0)

	tree.NumLeaves = countLeafNodes(&tree)

	return tree, nil
}

// buildNode recursively builds tree nodes, returning the new node's index
func (t *Trainer) buildNode(tree *Tree, indices, features []int, parentIdx, depth int) int {
	nodeIdx := len(tree.Nodes)

	// Stopping conditions
	numLeaves := countLeafNodes(tree)
	if (t.params.MaxDepth > 0 && depth >= t.params.MaxDepth) ||
		len(indices) < t.params.MinDataInLeaf ||
		(t.params.NumLeaves > 0 && numLeaves >= t.params.NumLeaves-1) {
		return t.appendLeaf(tree, indices, parentIdx)
	}

	bestSplit := t.findBestSplit(indices, features)
	if bestSplit.Gain < t.params.MinGainToSplit {
		return t.appendLeaf(tree, indices, parentIdx)
	}

	sumGrad, sumHess := t.sumGradHess(indices)
	tree.Nodes = append(tree.Nodes, Node{
		NodeID:        nodeIdx,
		ParentID:      parentIdx,
		NodeType:      NumericalNode,
		SplitFeature:  bestSplit.Feature,
		Threshold:     bestSplit.Threshold,
		Gain:          bestSplit.Gain,
		InternalValue: t.regularizer.ApplyLeafRegularization(sumGrad, sumHess),
		InternalCount: len(indices),
	})

	leftIndices, rightIndices := t.splitData(indices, bestSplit)

	leftChild := t.buildNode(tree, leftIndices, features, nodeIdx, depth+1)
	rightChild := t.buildNode(tree, rightIndices, features, nodeIdx, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild

	return nodeIdx
}

// appendLeaf adds a leaf node for the given samples
func (t *Trainer) appendLeaf(tree *Tree, indices []int, parentIdx int) int {
	nodeIdx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{
		NodeID:     nodeIdx,
		ParentID:   parentIdx,
		NodeType:   LeafNode,
		LeafValue:  t.calculateLeafValue(indices),
		LeafCount:  len(indices),
		LeftChild:  -1,
		RightChild: -1,
	})
	return nodeIdx
}

// findBestSplit finds the best split across the candidate features
func (t *Trainer) findBestSplit(indices, features []int) SplitInfo {
	bestSplit := SplitInfo{Gain: -math.MaxFloat64}

	for _, j := range features {
		split := t.findBestSplitForFeature(indices, j)
		if split.Gain > bestSplit.Gain {
			bestSplit = split
		}
	}

	return bestSplit
}

// findBestSplitForFeature scans all thresholds of one feature
func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	values := make([]struct {
		value float64
		idx   int
	}, len(indices))

	for i, idx := range indices {
		values[i] = struct {
			value float64
			idx   int
		}{
			value: t.X.At(idx, feature),
			idx:   idx,
		}
	}

	sort.Slice(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	totalGrad, totalHess := t.sumGradHess(indices)

	bestSplit := SplitInfo{
		Feature: feature,
		Gain:    -math.MaxFloat64,
	}

	leftGrad := 0.0
	leftHess := 0.0
	leftCount := 0

	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]
		leftCount++

		// Candidate thresholds sit between distinct values only
		if values[i].value == values[i+1].value {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess
		rightCount := len(indices) - leftCount

		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)
		if gain > bestSplit.Gain {
			bestSplit.Gain = gain
			bestSplit.Threshold = (values[i].value + values[i+1].value) / 2
			bestSplit.LeftCount = leftCount
			bestSplit.RightCount = rightCount
			bestSplit.LeftGrad = leftGrad
			bestSplit.RightGrad = rightGrad
			bestSplit.LeftHess = leftHess
			bestSplit.RightHess = rightHess
		}
	}

	return bestSplit
}

// calculateSplitGain calculates the regularized gain from a split
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	return t.regularizer.CalculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)
}

// splitData partitions indices by the split threshold
func (t *Trainer) splitData(indices []int, split SplitInfo) ([]int, []int) {
	var leftIndices, rightIndices []int

	for _, idx := range indices {
		if t.X.At(idx, split.Feature) <= split.Threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}

	return leftIndices, rightIndices
}

// sumGradHess sums gradients and hessians over the given rows
func (t *Trainer) sumGradHess(indices []int) (float64, float64) {
	sumGrad := 0.0
	sumHess := 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}
	return sumGrad, sumHess
}

// calculateLeafValue calculates the regularized optimal value for a leaf
func (t *Trainer) calculateLeafValue(indices []int) float64 {
	sumGrad, sumHess := t.sumGradHess(indices)
	return t.regularizer.ApplyLeafRegularization(sumGrad, sumHess)
}

// predictSingleTree returns the unscaled leaf value for a training row
func (t *Trainer) predictSingleTree(tree *Tree, sampleIdx int) float64 {
	nodeIdx := 0
	for nodeIdx >= 0 && nodeIdx < len(tree.Nodes) {
		node := &tree.Nodes[nodeIdx]

		if node.NodeType == LeafNode {
			return node.LeafValue
		}

		if t.X.At(sampleIdx, node.SplitFeature) <= node.Threshold {
			nodeIdx = node.LeftChild
		} else {
			nodeIdx = node.RightChild
		}
	}

	return 0.0
}

// updatePredictions folds the new tree into the cached raw predictions
func (t *Trainer) updatePredictions(tree *Tree) {
	rows, _ := t.X.Dims()
	for i := 0; i < rows; i++ {
		t.rawPredictions[i] += t.predictSingleTree(tree, i) * t.params.LearningRate
	}
}

// checkEarlyStopping tracks training loss stagnation and reports whether
// the configured number of non-improving rounds has been reached
func (t *Trainer) checkEarlyStopping(loss float64) bool {
	if loss < t.bestLoss {
		t.bestLoss = loss
		t.roundsNoImprove = 0
		return false
	}

	t.roundsNoImprove++
	return t.roundsNoImprove >= t.params.EarlyStopping
}

// calculateLoss calculates the weighted mean training loss
func (t *Trainer) calculateLoss() float64 {
	rows, _ := t.y.Dims()
	loss := 0.0
	totalWeight := 0.0

	for i := 0; i < rows; i++ {
		sampleLoss := t.objective.CalculateLoss(t.rawPredictions[i], t.y.At(i, 0))
		loss += sampleLoss * t.sampleWeight[i]
		totalWeight += t.sampleWeight[i]
	}

	if totalWeight == 0 {
		return 0.0
	}
	return loss / totalWeight
}

// countLeafNodes counts leaf nodes, valid both during and after construction
func countLeafNodes(tree *Tree) int {
	count := 0
	for i := range tree.Nodes {
		if tree.Nodes[i].NodeType == LeafNode {
			count++
		}
	}
	return count
}

// GetModel returns a snapshot of the trained ensemble
func (t *Trainer) GetModel() *Model {
	model := NewModel()
	model.Trees = t.trees
	model.NumIteration = len(t.trees)
	model.NumFeatures = t.X.RawMatrix().Cols
	model.Objective = ObjectiveType(t.params.Objective)
	model.LearningRate = t.params.LearningRate
	model.NumLeaves = t.params.NumLeaves
	model.MaxDepth = t.params.MaxDepth
	model.InitScores = []float64{t.initScore}
	model.Deterministic = t.params.Deterministic
	model.RandomSeed = t.params.Seed

	if t.params.NumClass > 0 {
		model.NumClass = t.params.NumClass
	} else {
		model.NumClass = 1
	}

	return model
}
