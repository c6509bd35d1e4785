package experiment

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
)

// History is an append-only log of comparison runs backed by SQLite.
// Each stored row is one model's result in one run.
type History struct {
	db *sql.DB
}

// RunRecord is one row of the run history.
type RunRecord struct {
	ID        int64
	CreatedAt time.Time
	Dataset   string
	Model     string
	Accuracy  float64
	TestSize  float64
	Seed      int64
	TrainRows int
	TestRows  int
}

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	dataset TEXT NOT NULL,
	model TEXT NOT NULL,
	accuracy REAL NOT NULL,
	test_size REAL NOT NULL,
	seed INTEGER NOT NULL,
	train_rows INTEGER NOT NULL,
	test_rows INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_dataset_model ON runs(dataset, model);
`

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, tabpfnErrors.Wrapf(err, "failed to open run history %s", path)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, tabpfnErrors.Wrap(err, "failed to initialize run history schema")
	}
	return &History{db: db}, nil
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// Append stores every result of the report, one row per model.
func (h *History) Append(report *Report) error {
	tx, err := h.db.Begin()
	if err != nil {
		return tabpfnErrors.Wrap(err, "failed to start history transaction")
	}

	stmt, err := tx.Prepare(`INSERT INTO runs
		(created_at, dataset, model, accuracy, test_size, seed, train_rows, test_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return tabpfnErrors.Wrap(err, "failed to prepare history insert")
	}
	defer stmt.Close()

	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	for _, result := range report.Results {
		if _, err := stmt.Exec(
			createdAt.UTC().Format(time.RFC3339),
			report.Dataset,
			result.Name,
			result.Accuracy,
			report.TestSize,
			report.Seed,
			report.TrainRows,
			report.TestRows,
		); err != nil {
			tx.Rollback()
			return tabpfnErrors.Wrap(err, "failed to insert history row")
		}
	}
	return tx.Commit()
}

// Recent returns the stored results for a dataset in insertion order.
func (h *History) Recent(dataset string) ([]RunRecord, error) {
	rows, err := h.db.Query(`SELECT id, created_at, dataset, model, accuracy,
		test_size, seed, train_rows, test_rows
		FROM runs WHERE dataset = ? ORDER BY id`, dataset)
	if err != nil {
		return nil, tabpfnErrors.Wrap(err, "failed to query run history")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Dataset, &rec.Model,
			&rec.Accuracy, &rec.TestSize, &rec.Seed, &rec.TrainRows, &rec.TestRows); err != nil {
			return nil, tabpfnErrors.Wrap(err, "failed to scan history row")
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, tabpfnErrors.Wrap(err, "failed to parse history timestamp")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, tabpfnErrors.Wrap(err, "failed to read run history")
	}
	return records, nil
}

// BestAccuracy returns the highest stored accuracy for a dataset and
// model. ok reports whether any matching run exists.
func (h *History) BestAccuracy(dataset, model string) (accuracy float64, ok bool, err error) {
	var best sql.NullFloat64
	err = h.db.QueryRow(`SELECT MAX(accuracy) FROM runs WHERE dataset = ? AND model = ?`,
		dataset, model).Scan(&best)
	if err != nil {
		return 0, false, tabpfnErrors.Wrap(err, "failed to query best accuracy")
	}
	return best.Float64, best.Valid, nil
}
