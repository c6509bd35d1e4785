// Package tabpfn is the root of a tabular-classification benchmark that
// compares an in-context ensembling predictor (TabPFN-style) against a
// gradient-boosted decision tree classifier on the Wisconsin breast cancer
// dataset, reporting held-out accuracy for both.
//
// The pipeline is a single sequential chain:
//
//	dataset loader → train/test split → {TabPFN, gradient boosting} → accuracy → report
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/MAyub114/tabPFN/datasets"
//	    "github.com/MAyub114/tabPFN/model_selection"
//	    "github.com/MAyub114/tabPFN/tabpfn"
//	)
//
//	func main() {
//	    X, y, err := datasets.LoadBreastCancer()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(X, y, 0.33, 42)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    clf := tabpfn.NewTabPFNClassifier().WithNEnsembleConfigurations(32).WithSeed(42)
//	    if err := clf.Fit(XTrain, yTrain); err != nil {
//	        log.Fatal(err)
//	    }
//	    acc, err := clf.Score(XTest, yTest)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("Accuracy (TabPFN): %.3f%%\n", acc*100)
//	}
//
// # Packages
//
//   - datasets: breast cancer CSV loader and deterministic synthetic generator
//   - model_selection: train/test split, K-fold and stratified K-fold, cross-validation
//   - tabpfn: in-context ensemble classifier (Model A)
//   - boosting: native gradient-boosting trainer and sklearn-style wrappers (Model B)
//   - metrics: classification and regression metrics
//   - preprocessing: feature standardization
//   - experiment: config, runner, reporter, run history, plots
//   - core/model: estimator interfaces and fitted-state management
//   - core/parallel: chunked parallel helpers
//   - pkg/errors, pkg/log: structured errors and logging
//
// The command line entry point lives in cmd/tabpfn-compare.
package tabpfn
