package config

// Config represents the complete Sorrel configuration
type Config struct {
	BaseDir  string                   `yaml:"-"` // Directory containing config file, for resolving relative paths
	Locale   string                   `yaml:"locale"`
	Limits   LimitsConfig             `yaml:"limits"`
	Logging  LoggingConfig            `yaml:"logging"`
	Trace    TraceConfig              `yaml:"trace"`
	Units    UnitsConfig              `yaml:"units"`
	Profiles map[string]ProfileConfig `yaml:"profiles"` // Named overrides selected with --profile
}

// LimitsConfig bounds a single evaluation
type LimitsConfig struct {
	MaxStringLength           int    `yaml:"max_string_length"` // runes; 0 = unlimited
	MaxCallDepth              int    `yaml:"max_call_depth"`    // 0 = unlimited
	AllowUndeclaredAssignment bool   `yaml:"allow_undeclared_assignment"`
	StrictConcat              bool   `yaml:"strict_concat"` // reject + between a string and a non-string
	Timeout                   string `yaml:"timeout"`       // e.g. "5s"; empty = none
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string              `yaml:"level"`  // debug, info, warn, error
	Format string              `yaml:"format"` // json or text
	Output string              `yaml:"output"` // stderr, stdout, or file path
	Script ScriptLoggingConfig `yaml:"script"` // script log() output
}

// ScriptLoggingConfig holds settings for output produced by scripts
type ScriptLoggingConfig struct {
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TraceConfig holds the execution trace store settings
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`   // sqlite, postgres, mysql
	DSN     string `yaml:"dsn"`      // sqlite: file path; others: driver DSN
	Table   string `yaml:"table"`    // default: "_sorrel_trace"
	MaxRows int    `yaml:"max_rows"` // oldest rows are pruned beyond this; 0 = unbounded
}

// UnitsConfig adds unit subgroups to the built-in tables
type UnitsConfig struct {
	Extra []UnitConfig `yaml:"extra"`
}

// UnitConfig describes one extra unit: Factor base units make one Suffix
type UnitConfig struct {
	Suffix string  `yaml:"suffix"`
	Group  string  `yaml:"group"`
	Factor float64 `yaml:"factor"`
}

// ProfileConfig holds per-profile overrides.
// All fields are optional - only non-zero values override the base config
type ProfileConfig struct {
	Locale   string        `yaml:"locale"`
	Limits   LimitsConfig  `yaml:"limits"`
	Logging  LoggingConfig `yaml:"logging"`
	TraceDSN string        `yaml:"trace_dsn"`
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Locale: "en-US",
		Limits: LimitsConfig{
			MaxStringLength:           10 * 1024 * 1024,
			MaxCallDepth:              2000,
			AllowUndeclaredAssignment: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			Script: ScriptLoggingConfig{
				Output: "stdout",
			},
		},
		Trace: TraceConfig{
			Driver:  "sqlite",
			Table:   "_sorrel_trace",
			MaxRows: 100000,
		},
	}
}
