// Package metrics provides evaluation metrics for classification and regression models.
package metrics

import (
	"math"
	"sort"

	"github.com/MAyub114/tabPFN/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEpsilon is the clipping bound that keeps log-loss finite at 0 and 1.
const logLossEpsilon = 1e-15

// validateLabelVectors checks the common preconditions shared by the
// classification metrics: non-nil, non-empty, equal-length inputs.
func validateLabelVectors(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil input vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	return n, nil
}

// validateBinaryLabels ensures every label is exactly 0 or 1.
func validateBinaryLabels(op string, yTrue *mat.VecDense) error {
	for i := 0; i < yTrue.Len(); i++ {
		v := yTrue.AtVec(i)
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}

// Accuracy computes the fraction of predictions that exactly match the true labels.
// The result is in [0, 1]. Swapping yTrue and yPred yields the same value.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateLabelVectors("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// ClassificationError computes the fraction of misclassified samples, 1 - Accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// AUC computes the area under the ROC curve for binary labels using the
// rank-based (Mann-Whitney) formulation. Tied scores receive average ranks.
// When only one class is present the metric is undefined and 0.5 is returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateLabelVectors("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	if err := validateBinaryLabels("AUC", yTrue); err != nil {
		return 0, err
	}

	nPos := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		}
	}
	nNeg := n - nPos

	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	// Assign 1-based ranks, averaging over tied score blocks.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yPred.AtVec(idx[j]) == yPred.AtVec(idx[i]) {
			j++
		}
		avg := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var sumPosRanks float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			sumPosRanks += ranks[i]
		}
	}

	auc := (sumPosRanks - float64(nPos)*float64(nPos+1)/2.0) / (float64(nPos) * float64(nNeg))
	return auc, nil
}

// AUCMatrix computes AUC for matrix-shaped inputs.
// Only the first column of each matrix is used.
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil input matrix")
	}

	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 || rPred == 0 || cPred == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}

	if rTrue != rPred {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rPred, 0)
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}

	return AUC(yTrueVec, yPredVec)
}

// BinaryLogLoss computes the negative log-likelihood of binary labels under
// predicted probabilities. Predictions are clipped away from 0 and 1 so the
// loss stays finite.
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateLabelVectors("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	if err := validateBinaryLabels("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEpsilon, 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum += math.Log(p)
		} else {
			sum += math.Log(1 - p)
		}
	}

	return -sum / float64(n), nil
}

// ConfusionMatrix computes the confusion matrix for integer-valued labels.
// Row i and column j count samples whose true class is classes[i] and whose
// predicted class is classes[j]. The returned classes slice holds the sorted
// union of labels seen in either vector.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*mat.Dense, []int, error) {
	n, err := validateLabelVectors("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		seen[int(yTrue.AtVec(i))] = true
		seen[int(yPred.AtVec(i))] = true
	}

	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	cm := mat.NewDense(len(classes), len(classes), nil)
	for i := 0; i < n; i++ {
		row := index[int(yTrue.AtVec(i))]
		col := index[int(yPred.AtVec(i))]
		cm.Set(row, col, cm.At(row, col)+1)
	}

	return cm, classes, nil
}

// Precision computes the binary precision TP / (TP + FP) with 1 as the
// positive class. Returns 0 when no positive predictions exist.
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateLabelVectors("Precision", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	if err := validateBinaryLabels("Precision", yTrue); err != nil {
		return 0, err
	}

	var tp, fp float64
	for i := 0; i < n; i++ {
		if yPred.AtVec(i) == 1 {
			if yTrue.AtVec(i) == 1 {
				tp++
			} else {
				fp++
			}
		}
	}

	if tp+fp == 0 {
		return 0, nil
	}
	return tp / (tp + fp), nil
}

// Recall computes the binary recall TP / (TP + FN) with 1 as the positive
// class. Returns 0 when no positive labels exist.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validateLabelVectors("Recall", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	if err := validateBinaryLabels("Recall", yTrue); err != nil {
		return 0, err
	}

	var tp, fn float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			if yPred.AtVec(i) == 1 {
				tp++
			} else {
				fn++
			}
		}
	}

	if tp+fn == 0 {
		return 0, nil
	}
	return tp / (tp + fn), nil
}

// F1Score computes the harmonic mean of binary precision and recall.
// Returns 0 when both precision and recall are 0.
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	precision, err := Precision(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "F1Score")
	}

	recall, err := Recall(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "F1Score")
	}

	if precision+recall == 0 {
		return 0, nil
	}
	return 2 * precision * recall / (precision + recall), nil
}
