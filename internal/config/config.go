// Package config defines all configuration structures for stylobench.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// CorpusConfig describes one feature-table input.
type CorpusConfig struct {
	// Name labels the corpus in results and logs ("brown", "guardian").
	Name string `mapstructure:"name"`
	// Path is the CSV feature table on disk.
	Path string `mapstructure:"path"`
}

// SchemaConfig holds the document-id parsing separators.
type SchemaConfig struct {
	GenreSep  string `mapstructure:"genre_sep"`  // genre prefix separator in the id stem
	SourceSep string `mapstructure:"source_sep"` // separator before the source suffix
}

// LabelsConfig names the baseline source and the background sources excluded
// from the candidate sweep.
type LabelsConfig struct {
	Baseline string   `mapstructure:"baseline"`
	Excluded []string `mapstructure:"excluded"`
}

// FoldsConfig holds the stratified fold-assignment parameters.
type FoldsConfig struct {
	Count int   `mapstructure:"count"`
	Seed  int64 `mapstructure:"seed"`
}

// LinearConfig holds the penalised-logistic family tunables.
type LinearConfig struct {
	PathLength     int     `mapstructure:"path_length"`
	LambdaMinRatio float64 `mapstructure:"lambda_min_ratio"`
	MaxIterations  int     `mapstructure:"max_iterations"`
	Tolerance      float64 `mapstructure:"tolerance"`
}

// ForestConfig holds the tree-ensemble family tunables.
type ForestConfig struct {
	Trees    int   `mapstructure:"trees"`
	MtryGrid []int `mapstructure:"mtry_grid"`
	MinLeaf  int   `mapstructure:"min_leaf"`
}

// SweepConfig holds sweep execution parameters.
type SweepConfig struct {
	// Workers bounds the pool; 0 means one worker per CPU.
	Workers int `mapstructure:"workers"`
	// Families restricts the sweep ("linear", "forest"); empty means both.
	Families []string `mapstructure:"families"`
}

// StoreConfig holds the optional PostgreSQL results-store parameters.
type StoreConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// MetricsConfig toggles the Prometheus collector.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for a stylobench run.
type Config struct {
	CorpusA CorpusConfig  `mapstructure:"corpus_a"`
	CorpusB CorpusConfig  `mapstructure:"corpus_b"`
	Schema  SchemaConfig  `mapstructure:"schema"`
	Labels  LabelsConfig  `mapstructure:"labels"`
	Folds   FoldsConfig   `mapstructure:"folds"`
	Linear  LinearConfig  `mapstructure:"linear"`
	Forest  ForestConfig  `mapstructure:"forest"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the run.
func (c *Config) Validate() error {
	if c.CorpusA.Path == "" {
		return fmt.Errorf("config: corpus_a.path is required")
	}
	if c.CorpusB.Path == "" {
		return fmt.Errorf("config: corpus_b.path is required")
	}
	if c.CorpusA.Name == c.CorpusB.Name {
		return fmt.Errorf("config: the two corpora must have distinct names, both are %q", c.CorpusA.Name)
	}

	if c.Labels.Baseline == "" {
		return fmt.Errorf("config: labels.baseline is required")
	}
	for _, ex := range c.Labels.Excluded {
		if ex == c.Labels.Baseline {
			return fmt.Errorf("config: labels.baseline %q cannot also be excluded", ex)
		}
	}

	if c.Folds.Count < 2 {
		return fmt.Errorf("config: folds.count must be ≥ 2, got %d", c.Folds.Count)
	}

	if c.Linear.PathLength < 1 {
		return fmt.Errorf("config: linear.path_length must be ≥ 1, got %d", c.Linear.PathLength)
	}
	if c.Linear.LambdaMinRatio <= 0 || c.Linear.LambdaMinRatio >= 1 {
		return fmt.Errorf("config: linear.lambda_min_ratio must be in (0, 1), got %g", c.Linear.LambdaMinRatio)
	}

	if c.Forest.Trees < 1 {
		return fmt.Errorf("config: forest.trees must be ≥ 1, got %d", c.Forest.Trees)
	}
	for _, m := range c.Forest.MtryGrid {
		if m < 1 {
			return fmt.Errorf("config: forest.mtry_grid entries must be ≥ 1, got %d", m)
		}
	}

	if c.Sweep.Workers < 0 {
		return fmt.Errorf("config: sweep.workers must be ≥ 0, got %d", c.Sweep.Workers)
	}
	for _, f := range c.Sweep.Families {
		switch f {
		case "linear", "forest":
		default:
			return fmt.Errorf("config: sweep.families entry %q is invalid; expected linear|forest", f)
		}
	}

	if c.Store.Enabled {
		if c.Store.Host == "" {
			return fmt.Errorf("config: store.host is required when the store is enabled")
		}
		if c.Store.Port < 1 || c.Store.Port > 65535 {
			return fmt.Errorf("config: store.port %d is out of range [1, 65535]", c.Store.Port)
		}
		if c.Store.User == "" {
			return fmt.Errorf("config: store.user is required when the store is enabled")
		}
		if c.Store.DBName == "" {
			return fmt.Errorf("config: store.db_name is required when the store is enabled")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
