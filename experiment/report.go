package experiment

import (
	"fmt"
	"strings"
	"time"
)

// Result holds one model's evaluation on the held-out split.
type Result struct {
	Name           string
	Accuracy       float64
	FitSeconds     float64
	PredictSeconds float64
}

// Report summarizes a comparison run.
type Report struct {
	Dataset   string
	CreatedAt time.Time
	TrainRows int
	TestRows  int
	Features  int
	Classes   int
	TestSize  float64
	Seed      int64
	Results   []Result
}

// FormatAccuracy renders an accuracy fraction as a percentage with three
// decimal places, e.g. "Accuracy (TabPFN): 95.745%".
func FormatAccuracy(name string, accuracy float64) string {
	return fmt.Sprintf("Accuracy (%s): %.3f%%", name, accuracy*100)
}

// String renders the report in the layout printed by the CLI.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s (%d train / %d test rows, %d features, %d classes)\n",
		r.Dataset, r.TrainRows, r.TestRows, r.Features, r.Classes)
	fmt.Fprintf(&b, "Held out: %.0f%% of the data, split seed %d\n", r.TestSize*100, r.Seed)
	for _, result := range r.Results {
		fmt.Fprintf(&b, "%s  (fit %.2fs, predict %.2fs)\n",
			FormatAccuracy(result.Name, result.Accuracy),
			result.FitSeconds, result.PredictSeconds)
	}
	return b.String()
}
