package boosting

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// CallbackEnv carries the training state passed to callbacks
type CallbackEnv struct {
	Model        *Model
	Iteration    int
	BeginTime    time.Time
	EndTime      time.Time
	EvalResults  map[string]float64
	StopTraining bool
}

// Callback is invoked before and after each boosting iteration. EvalResults
// is nil on the before-iteration call.
type Callback func(env *CallbackEnv) error

// PrintEvaluation returns a callback that prints evaluation results
// every period iterations
func PrintEvaluation(period int) Callback {
	if period <= 0 {
		period = 1
	}

	return func(env *CallbackEnv) error {
		if env.EvalResults == nil {
			return nil
		}
		if env.Iteration%period != 0 {
			return nil
		}

		for name, value := range env.EvalResults {
			fmt.Printf("[%d] %s: %.6f\n", env.Iteration, name, value)
		}
		return nil
	}
}

// RecordEvaluation returns a callback that appends evaluation results
// to the given history map
func RecordEvaluation(history *map[string][]float64) Callback {
	if *history == nil {
		*history = make(map[string][]float64)
	}

	return func(env *CallbackEnv) error {
		if env.EvalResults == nil {
			return nil
		}

		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// EarlyStoppingCallback returns a callback that stops training when the
// given metric has not improved for rounds iterations
func EarlyStoppingCallback(rounds int, metric string, minimize bool) Callback {
	bestScore := math.Inf(1)
	if !minimize {
		bestScore = math.Inf(-1)
	}
	bestIteration := 0
	roundsNoImprove := 0

	return func(env *CallbackEnv) error {
		if env.EvalResults == nil {
			return nil
		}

		score, ok := env.EvalResults[metric]
		if !ok {
			return nil
		}

		improved := score < bestScore
		if !minimize {
			improved = score > bestScore
		}

		if improved {
			bestScore = score
			bestIteration = env.Iteration
			roundsNoImprove = 0
			return nil
		}

		roundsNoImprove++
		if roundsNoImprove >= rounds {
			fmt.Printf("Early stopping at iteration %d, best iteration %d with %s: %.6f\n",
				env.Iteration, bestIteration, metric, bestScore)
			env.StopTraining = true
		}
		return nil
	}
}

// TimeLimit returns a callback that stops training once the elapsed
// training time exceeds maxDuration
func TimeLimit(maxDuration time.Duration) Callback {
	return func(env *CallbackEnv) error {
		if time.Since(env.BeginTime) > maxDuration {
			fmt.Printf("Time limit reached at iteration %d\n", env.Iteration)
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList manages the callbacks registered on a trainer
type CallbackList struct {
	callbacks []Callback
	env       *CallbackEnv
}

// NewCallbackList creates a callback list
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{
		callbacks: callbacks,
		env:       &CallbackEnv{},
	}
}

// BeforeIteration runs all callbacks before a boosting iteration
func (cl *CallbackList) BeforeIteration(iteration int, model *Model) error {
	if cl.env.BeginTime.IsZero() {
		cl.env.BeginTime = time.Now()
	}
	cl.env.Iteration = iteration
	cl.env.Model = model
	cl.env.EvalResults = nil

	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
		if cl.env.StopTraining {
			break
		}
	}
	return nil
}

// AfterIteration runs all callbacks after a boosting iteration
func (cl *CallbackList) AfterIteration(iteration int, model *Model, evalResults map[string]float64) error {
	cl.env.Iteration = iteration
	cl.env.Model = model
	cl.env.EndTime = time.Now()
	cl.env.EvalResults = evalResults

	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
		if cl.env.StopTraining {
			break
		}
	}
	return nil
}

// ShouldStop reports whether a callback has requested stopping
func (cl *CallbackList) ShouldStop() bool {
	return cl.env.StopTraining
}

// FitWithCallbacks trains with the given callbacks registered
func (t *Trainer) FitWithCallbacks(X, y mat.Matrix, callbacks ...Callback) error {
	t.WithCallbacks(callbacks...)
	return t.Fit(X, y)
}
