package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultCorpusAName = "corpus-a"
	DefaultCorpusBName = "corpus-b"

	DefaultGenreSep  = "_"
	DefaultSourceSep = "@"

	DefaultFoldCount = 10

	DefaultLinearPathLength     = 50
	DefaultLinearLambdaMinRatio = 0.01
	DefaultLinearMaxIterations  = 500
	DefaultLinearTolerance      = 1e-7

	DefaultForestTrees   = 300
	DefaultForestMinLeaf = 1

	DefaultStorePort            = 5432
	DefaultStoreSSLMode         = "disable"
	DefaultStoreMaxConns        = 5
	DefaultStoreConnMaxLifetime = 30 * time.Minute
	DefaultStoreMigrationPath   = "file://migrations"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultLogOutput = "stderr"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.CorpusA.Name == "" {
		cfg.CorpusA.Name = DefaultCorpusAName
	}
	if cfg.CorpusB.Name == "" {
		cfg.CorpusB.Name = DefaultCorpusBName
	}

	if cfg.Schema.GenreSep == "" {
		cfg.Schema.GenreSep = DefaultGenreSep
	}
	if cfg.Schema.SourceSep == "" {
		cfg.Schema.SourceSep = DefaultSourceSep
	}

	if cfg.Folds.Count == 0 {
		cfg.Folds.Count = DefaultFoldCount
	}

	if cfg.Linear.PathLength == 0 {
		cfg.Linear.PathLength = DefaultLinearPathLength
	}
	if cfg.Linear.LambdaMinRatio == 0 {
		cfg.Linear.LambdaMinRatio = DefaultLinearLambdaMinRatio
	}
	if cfg.Linear.MaxIterations == 0 {
		cfg.Linear.MaxIterations = DefaultLinearMaxIterations
	}
	if cfg.Linear.Tolerance == 0 {
		cfg.Linear.Tolerance = DefaultLinearTolerance
	}

	if cfg.Forest.Trees == 0 {
		cfg.Forest.Trees = DefaultForestTrees
	}
	if cfg.Forest.MinLeaf == 0 {
		cfg.Forest.MinLeaf = DefaultForestMinLeaf
	}

	if cfg.Store.Port == 0 {
		cfg.Store.Port = DefaultStorePort
	}
	if cfg.Store.SSLMode == "" {
		cfg.Store.SSLMode = DefaultStoreSSLMode
	}
	if cfg.Store.MaxConns == 0 {
		cfg.Store.MaxConns = DefaultStoreMaxConns
	}
	if cfg.Store.ConnMaxLifetime == 0 {
		cfg.Store.ConnMaxLifetime = DefaultStoreConnMaxLifetime
	}
	if cfg.Store.MigrationPath == "" {
		cfg.Store.MigrationPath = DefaultStoreMigrationPath
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = DefaultLogOutput
	}
}
