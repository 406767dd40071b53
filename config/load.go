package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations; when none exist
// the defaults are returned.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// The path is empty when no config file was found and defaults are in use.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		if wd, err := os.Getwd(); err == nil {
			cfg.BaseDir = wd
		}
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	if cfg.Trace.Driver == "sqlite" {
		cfg.Trace.DSN = resolvePath(baseDir, cfg.Trace.DSN)
	}
	cfg.Logging.Output = resolveOutput(baseDir, cfg.Logging.Output)
	cfg.Logging.Script.Output = resolveOutput(baseDir, cfg.Logging.Script.Output)

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func resolveOutput(baseDir, output string) string {
	switch output {
	case "", "stdout", "stderr", "discard":
		return output
	}
	return resolvePath(baseDir, output)
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > SORREL_CONFIG env > ./sorrel.yaml > ~/.config/sorrel/sorrel.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("SORREL_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("SORREL_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("sorrel.yaml"); err == nil {
		return "sorrel.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "sorrel", "sorrel.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

var knownGroups = map[string]bool{"length": true, "mass": true, "volume": true, "data": true}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Limits.MaxStringLength < 0 {
		errs = append(errs, fmt.Sprintf("limits.max_string_length: %d (must be 0 or more)", cfg.Limits.MaxStringLength))
	}
	if cfg.Limits.MaxCallDepth < 0 {
		errs = append(errs, fmt.Sprintf("limits.max_call_depth: %d (must be 0 or more)", cfg.Limits.MaxCallDepth))
	}
	if _, err := cfg.Limits.TimeoutDuration(); err != nil {
		errs = append(errs, err.Error())
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if cfg.Trace.Enabled {
		switch cfg.Trace.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Sprintf("trace.driver: unknown driver %q (supported: sqlite, postgres, mysql)", cfg.Trace.Driver))
		}
		if cfg.Trace.DSN == "" {
			errs = append(errs, "trace.dsn is required when trace is enabled")
		}
		if cfg.Trace.MaxRows < 0 {
			errs = append(errs, fmt.Sprintf("trace.max_rows: %d (must be 0 or more)", cfg.Trace.MaxRows))
		}
	}

	for i, u := range cfg.Units.Extra {
		if u.Suffix == "" {
			errs = append(errs, fmt.Sprintf("units.extra[%d]: suffix is required", i))
		}
		if !knownGroups[u.Group] {
			errs = append(errs, fmt.Sprintf("units.extra[%d]: unknown group %q (must be length, mass, volume, or data)", i, u.Group))
		}
		if u.Factor <= 0 {
			errs = append(errs, fmt.Sprintf("units.extra[%d]: factor must be positive", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// TimeoutDuration parses Timeout; an empty string means no timeout.
func (l LimitsConfig) TimeoutDuration() (time.Duration, error) {
	if l.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("limits.timeout: invalid duration %q", l.Timeout)
	}
	return d, nil
}

// ApplyProfile applies a named profile to the configuration.
// Only non-zero values in the profile override the base config.
// Returns an error if the profile name doesn't exist.
func ApplyProfile(cfg *Config, profileName string) error {
	if cfg.Profiles == nil {
		return fmt.Errorf("no profiles defined in config")
	}

	p, ok := cfg.Profiles[profileName]
	if !ok {
		var names []string
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown profile %q (available: %s)", profileName, strings.Join(names, ", "))
	}

	if p.Locale != "" {
		cfg.Locale = p.Locale
	}

	if p.Limits.MaxStringLength != 0 {
		cfg.Limits.MaxStringLength = p.Limits.MaxStringLength
	}
	if p.Limits.MaxCallDepth != 0 {
		cfg.Limits.MaxCallDepth = p.Limits.MaxCallDepth
	}
	if p.Limits.StrictConcat {
		cfg.Limits.StrictConcat = true
	}
	if p.Limits.Timeout != "" {
		cfg.Limits.Timeout = p.Limits.Timeout
	}

	if p.Logging.Level != "" {
		cfg.Logging.Level = p.Logging.Level
	}
	if p.Logging.Format != "" {
		cfg.Logging.Format = p.Logging.Format
	}
	if p.Logging.Output != "" {
		cfg.Logging.Output = resolveOutput(cfg.BaseDir, p.Logging.Output)
	}
	if p.Logging.Script.Output != "" {
		cfg.Logging.Script.Output = resolveOutput(cfg.BaseDir, p.Logging.Script.Output)
	}

	if p.TraceDSN != "" {
		cfg.Trace.DSN = p.TraceDSN
		if cfg.Trace.Driver == "sqlite" {
			cfg.Trace.DSN = resolvePath(cfg.BaseDir, p.TraceDSN)
		}
	}

	return Validate(cfg)
}
