// Package tabpfn implements a prior-fitted network style classifier for
// small tabular datasets.
//
// Unlike the estimators in package boosting, fitting performs no
// iterative optimization. Fit memorizes the training set as an inference
// context, and every prediction is computed by attention over that
// context: each ensemble member scales the query row with its own
// preprocessor, weighs the context rows by a softmax over negative
// squared distances, and reads off the label distribution of the
// weighted context. The final posterior is the average over all members,
// which differ in feature view, preprocessing and attention temperature.
//
// # Usage
//
//	clf := tabpfn.NewTabPFNClassifier().
//		WithNEnsembleConfigurations(32).
//		WithSeed(42)
//
//	if err := clf.Fit(XTrain, yTrain); err != nil {
//		log.Fatal(err)
//	}
//	proba, err := clf.PredictProba(XTest)
//
// # Task limits
//
// The in-context approach keeps the whole training set in memory and
// scans it for every query, so tasks are bounded by MaxContextSamples
// rows, MaxFeatures features and MaxClasses classes. Fit rejects larger
// inputs.
//
// # Determinism
//
// The ensemble is derived from Seed alone. The same training data and
// seed always yield the same posteriors, regardless of NJobs, and each
// query row is scored independently of the rest of its batch.
package tabpfn
