package experiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
)

// Config drives a full comparison run. Zero values in a loaded file fall
// back to the DefaultConfig values.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Split    SplitConfig    `yaml:"split"`
	TabPFN   TabPFNConfig   `yaml:"tabpfn"`
	Boosting BoostingConfig `yaml:"boosting"`
	History  HistoryConfig  `yaml:"history"`
	Plot     PlotConfig     `yaml:"plot"`
}

// DataConfig selects the dataset.
type DataConfig struct {
	// Name labels the dataset in reports and the run history.
	Name string `yaml:"name"`
	// CSVPath points at a local WDBC copy. When empty the bundled
	// deterministic reproduction is used.
	CSVPath string `yaml:"csv_path"`
}

// SplitConfig controls the held-out test partition.
type SplitConfig struct {
	TestSize float64 `yaml:"test_size"`
	Seed     int64   `yaml:"seed"`
}

// TabPFNConfig holds the in-context model hyperparameters.
type TabPFNConfig struct {
	Ensembles int `yaml:"n_ensemble_configurations"`
	Seed      int `yaml:"seed"`
	NJobs     int `yaml:"n_jobs"`
}

// BoostingConfig holds the gradient boosting hyperparameters.
type BoostingConfig struct {
	NumIterations int     `yaml:"n_estimators"`
	LearningRate  float64 `yaml:"learning_rate"`
	NumLeaves     int     `yaml:"num_leaves"`
	MaxDepth      int     `yaml:"max_depth"`
	RandomState   int     `yaml:"random_state"`
	EarlyStopping int     `yaml:"early_stopping_rounds"`
}

// HistoryConfig enables the SQLite run history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// PlotConfig enables the accuracy chart when Path is set.
type PlotConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig mirrors the published demo: a third of the data held
// out with seed 42, 32 TabPFN ensemble configurations and 100 boosting
// rounds.
func DefaultConfig() Config {
	return Config{
		Data:  DataConfig{Name: "breast_cancer"},
		Split: SplitConfig{TestSize: 0.33, Seed: 42},
		TabPFN: TabPFNConfig{
			Ensembles: 32,
			Seed:      42,
			NJobs:     -1,
		},
		Boosting: BoostingConfig{
			NumIterations: 100,
			LearningRate:  0.1,
			NumLeaves:     31,
			MaxDepth:      -1,
			RandomState:   42,
		},
	}
}

// LoadConfig reads a YAML configuration file. Fields absent from the
// file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, tabpfnErrors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, tabpfnErrors.Wrapf(err, "failed to parse config %s", path)
	}
	return config, config.Validate()
}

// Validate checks the value ranges the pipeline depends on.
func (c Config) Validate() error {
	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		return tabpfnErrors.NewValueError("Config.Validate",
			fmt.Sprintf("test_size must be in (0, 1), got %v", c.Split.TestSize))
	}
	if c.TabPFN.Ensembles < 1 {
		return tabpfnErrors.NewValueError("Config.Validate",
			"tabpfn.n_ensemble_configurations must be at least 1")
	}
	if c.Boosting.NumIterations < 1 {
		return tabpfnErrors.NewValueError("Config.Validate",
			"boosting.n_estimators must be at least 1")
	}
	if c.Boosting.LearningRate <= 0 {
		return tabpfnErrors.NewValueError("Config.Validate",
			"boosting.learning_rate must be positive")
	}
	return nil
}
