// Package boosting implements gradient boosted decision trees with a
// scikit-learn style estimator API.
//
// Trees are grown from exact gradient and hessian statistics with L1/L2
// regularization, row and feature subsampling, and optional early
// stopping on training or validation loss.
//
// # Classification
//
// GradientBoostingClassifier trains a logistic ensemble for binary
// problems and one ensemble per class one-vs-rest for multiclass
// problems:
//
//	clf := boosting.NewGradientBoostingClassifier().
//		WithNumIterations(50).
//		WithRandomState(42).
//		WithDeterministic(true)
//
//	if err := clf.Fit(XTrain, yTrain); err != nil {
//		log.Fatal(err)
//	}
//
//	predictions, err := clf.Predict(XTest)
//	probabilities, err := clf.PredictProba(XTest)
//	accuracy, err := clf.Score(XTest, yTest)
//
// # Regression
//
// GradientBoostingRegressor supports the l2, l1, huber, quantile, fair
// and poisson objectives:
//
//	reg := boosting.NewGradientBoostingRegressor().
//		WithObjective("huber").
//		WithNumIterations(100)
//
//	if err := reg.Fit(XTrain, yTrain); err != nil {
//		log.Fatal(err)
//	}
//
//	predictions, err := reg.Predict(XTest)
//
// # Reproducibility
//
// With a fixed random state and deterministic mode enabled, training
// and prediction produce identical results across runs. Deterministic
// mode also forces single threaded prediction.
//
// # Persistence
//
// Fitted estimators round trip through gob encoded files:
//
//	if err := clf.SaveModel("model.gob"); err != nil {
//		log.Fatal(err)
//	}
//
//	restored := boosting.NewGradientBoostingClassifier()
//	if err := restored.LoadModel("model.gob"); err != nil {
//		log.Fatal(err)
//	}
//
// Lower level control is available through Trainer, Predictor and the
// callback system, including FitWithValidation for early stopping on a
// held-out set.
package boosting
