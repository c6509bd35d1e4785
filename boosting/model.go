package boosting

import (
	"math"

	"gonum.org/v1/gonum/mat"

	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
)

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode represents a terminal node with a value
	LeafNode NodeType = iota
	// NumericalNode represents a node with a numerical threshold split
	NumericalNode
)

// Node represents a single node in a decision tree
type Node struct {
	// Node identification
	NodeID     int      // Unique identifier for the node
	ParentID   int      // Parent node ID (-1 for root)
	LeftChild  int      // Left child node ID (-1 if leaf)
	RightChild int      // Right child node ID (-1 if leaf)
	NodeType   NodeType // Type of the node

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Threshold value for the split
	DefaultLeft  bool    // Default direction for missing values
	Gain         float64 // Split gain (reduction in loss)

	// Leaf information (for leaf nodes)
	LeafValue float64 // Value at leaf node
	LeafCount int     // Number of samples at leaf

	// Statistics
	InternalValue float64 // Internal value (used during training)
	InternalCount int     // Internal count (used during training)
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	TreeIndex     int     // Index of the tree in the ensemble
	NumLeaves     int     // Number of leaf nodes
	ShrinkageRate float64 // Learning rate applied to this tree
	Nodes         []Node  // All nodes in the tree
}

// Predict makes a prediction for a single sample using this tree.
// Missing values (NaN) follow the node's default direction.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0

	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]

		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}

		featureValue := features[node.SplitFeature]
		if math.IsNaN(featureValue) {
			if node.DefaultLeft {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
			continue
		}

		if featureValue <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}

	return 0.0
}

// ObjectiveType represents the model objective
type ObjectiveType string

const (
	// BinaryLogistic is binary classification with logistic loss
	BinaryLogistic ObjectiveType = "binary"
	// MulticlassOVR is multiclass classification via one-vs-rest ensembles
	MulticlassOVR ObjectiveType = "multiclassova"
	// RegressionL2 is regression with squared loss
	RegressionL2 ObjectiveType = "regression"
	// RegressionL1 is regression with absolute loss
	RegressionL1 ObjectiveType = "regression_l1"
	// RegressionHuber is regression with Huber loss
	RegressionHuber ObjectiveType = "huber"
	// RegressionQuantile is quantile regression
	RegressionQuantile ObjectiveType = "quantile"
	// RegressionFair is regression with Fair loss
	RegressionFair ObjectiveType = "fair"
	// RegressionPoisson is Poisson regression on a log link
	RegressionPoisson ObjectiveType = "poisson"
)

// Model represents a trained gradient boosting ensemble.
// All fields are exported so the model survives a gob round trip.
type Model struct {
	Objective    ObjectiveType // Training objective
	NumClass     int           // Number of classes (1 for regression, 2 for binary)
	NumIteration int           // Number of boosting iterations
	LearningRate float64       // Shrinkage rate used during training
	NumLeaves    int           // Maximum leaves per tree
	MaxDepth     int           // Maximum tree depth (-1 for unlimited)

	// Trees in iteration order. For one-vs-rest multiclass the trees are
	// interleaved: tree i belongs to class i % NumClass.
	Trees []Tree

	NumFeatures int // Number of input features

	// InitScores holds the raw initial score per output column:
	// one entry for regression and binary, NumClass entries for one-vs-rest.
	InitScores []float64

	// BestIteration caps prediction to the first BestIteration trees
	// when early stopping truncated training (0 means use all trees).
	BestIteration int

	Deterministic bool // Force sequential prediction
	RandomSeed    int  // Seed used during training
}

// NewModel creates a new empty model with default parameters
func NewModel() *Model {
	return &Model{
		Objective:    RegressionL2,
		NumClass:     1,
		LearningRate: 0.1,
		NumLeaves:    31,
		MaxDepth:     -1,
		Trees:        []Tree{},
	}
}

// NumOutputs returns the number of prediction columns
func (m *Model) NumOutputs() int {
	if m.NumClass > 2 {
		return m.NumClass
	}
	return 1
}

// Predict returns transformed predictions for a batch of samples:
// probabilities for classification objectives, values for regression.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	return NewPredictor(m).Predict(X)
}

// GetFeatureImportance calculates feature importance scores, normalized to
// sum to one. Supported types are "split" (number of times a feature is
// used) and "gain" (total gain contributed by splits on the feature).
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)

	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if !node.IsLeaf() {
				switch importanceType {
				case "split":
					importance[node.SplitFeature]++
				case "gain":
					importance[node.SplitFeature] += node.Gain
				}
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}

	return importance
}

// validateFeatures checks that the input column count matches the model
func (m *Model) validateFeatures(X mat.Matrix) error {
	_, cols := X.Dims()
	if cols != m.NumFeatures {
		return tabpfnErrors.NewDimensionError("Predict", m.NumFeatures, cols, 1)
	}
	return nil
}
