// Package datasets provides the demonstration datasets used by the
// classifier comparison pipeline: a CSV loader for the Wisconsin
// Diagnostic Breast Cancer data and a deterministic synthetic generator
// with the same shape for offline runs.
package datasets

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/MAyub114/tabPFN/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Breast cancer dataset dimensions (Wisconsin Diagnostic, WDBC).
const (
	BreastCancerSamples   = 569
	BreastCancerFeatures  = 30
	BreastCancerBenign    = 357
	BreastCancerMalignant = 212
)

// LoadBreastCancer returns the bundled deterministic reproduction of the
// breast cancer dataset shape: 569 samples, 30 numeric features, binary
// labels with 357 benign (0) and 212 malignant (1) cases.
//
// Use LoadBreastCancerCSV to read the real measurements from a local copy
// of the WDBC data instead.
func LoadBreastCancer() (*mat.Dense, *mat.VecDense, error) {
	return MakeClassification(DefaultBreastCancerParams())
}

// LoadBreastCancerCSV reads the breast cancer dataset from a CSV file.
//
// Two layouts are recognized:
//
//  1. The original WDBC layout without a header: each row is
//     "ID,diagnosis,30 features" where diagnosis is M (malignant) or
//     B (benign).
//  2. A processed layout with a header row: 30 feature columns followed
//     by a final label column holding 0/1 or B/M.
//
// Malignant maps to label 1 and benign to 0. A missing or unreadable file
// is reported as the dataset being unavailable.
func LoadBreastCancerCSV(path string) (*mat.Dense, *mat.VecDense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "datasets: breast cancer dataset unavailable at %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "datasets: failed to parse %s", path)
	}

	if len(records) == 0 {
		return nil, nil, errors.NewValueError("LoadBreastCancerCSV", "dataset file is empty")
	}

	if isWDBCRow(records[0]) {
		return parseWDBC(records)
	}
	return parseLabeledCSV(records)
}

// isWDBCRow reports whether a record matches the headerless WDBC layout.
// A numeric first field is the sample ID; the labeled layout starts with a
// header of column names instead. The diagnosis letter itself is not
// inspected here so an invalid one is still reported by parseDiagnosis.
func isWDBCRow(record []string) bool {
	if len(record) < 3 {
		return false
	}
	_, err := strconv.ParseFloat(record[0], 64)
	return err == nil
}

func parseWDBC(records [][]string) (*mat.Dense, *mat.VecDense, error) {
	nSamples := len(records)
	nFeatures := len(records[0]) - 2

	X := mat.NewDense(nSamples, nFeatures, nil)
	y := mat.NewVecDense(nSamples, nil)

	for i, record := range records {
		if len(record) != nFeatures+2 {
			return nil, nil, errors.NewDimensionError("LoadBreastCancerCSV", nFeatures+2, len(record), 0)
		}

		label, err := parseDiagnosis(record[1])
		if err != nil {
			return nil, nil, errors.Wrapf(err, "datasets: row %d", i+1)
		}
		y.SetVec(i, label)

		for j, field := range record[2:] {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "datasets: row %d column %d", i+1, j+3)
			}
			X.Set(i, j, value)
		}
	}

	return X, y, nil
}

func parseLabeledCSV(records [][]string) (*mat.Dense, *mat.VecDense, error) {
	// The first row is a header in this layout.
	data := records[1:]
	if len(data) == 0 {
		return nil, nil, errors.NewValueError("LoadBreastCancerCSV", "dataset has a header but no rows")
	}

	nSamples := len(data)
	nFeatures := len(records[0]) - 1
	if nFeatures < 1 {
		return nil, nil, errors.NewValueError("LoadBreastCancerCSV", "dataset needs at least one feature column")
	}

	X := mat.NewDense(nSamples, nFeatures, nil)
	y := mat.NewVecDense(nSamples, nil)

	for i, record := range data {
		if len(record) != nFeatures+1 {
			return nil, nil, errors.NewDimensionError("LoadBreastCancerCSV", nFeatures+1, len(record), 0)
		}

		label, err := parseDiagnosis(record[nFeatures])
		if err != nil {
			return nil, nil, errors.Wrapf(err, "datasets: row %d", i+2)
		}
		y.SetVec(i, label)

		for j := 0; j < nFeatures; j++ {
			value, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "datasets: row %d column %d", i+2, j+1)
			}
			X.Set(i, j, value)
		}
	}

	return X, y, nil
}

// parseDiagnosis maps a label field to 0 (benign) or 1 (malignant).
func parseDiagnosis(field string) (float64, error) {
	switch field {
	case "M", "1", "1.0":
		return 1, nil
	case "B", "0", "0.0":
		return 0, nil
	}
	return 0, errors.NewValueError("LoadBreastCancerCSV", "unknown diagnosis label "+strconv.Quote(field))
}
