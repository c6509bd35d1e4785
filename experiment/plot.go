package experiment

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
)

// SaveAccuracyPlot writes a bar chart of the report's per-model
// accuracies to path. The image format follows the file extension.
func SaveAccuracyPlot(report *Report, path string) error {
	if len(report.Results) == 0 {
		return tabpfnErrors.NewValueError("SaveAccuracyPlot", "report has no results to plot")
	}

	p := plot.New()
	p.Title.Text = "Accuracy on " + report.Dataset
	p.Y.Label.Text = "Accuracy (%)"
	p.Y.Min = 0
	p.Y.Max = 100

	values := make(plotter.Values, len(report.Results))
	names := make([]string, len(report.Results))
	for i, result := range report.Results {
		values[i] = result.Accuracy * 100
		names[i] = result.Name
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return tabpfnErrors.Wrap(err, "failed to build accuracy chart")
	}
	p.Add(bars)
	p.NominalX(names...)

	if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return tabpfnErrors.Wrap(err, "failed to save accuracy chart")
	}
	return nil
}
