package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLimitsConfig_Unmarshal(t *testing.T) {
	yamlData := `
limits:
  max_string_length: 1024
  strict_concat: true
  timeout: 2s
`
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(yamlData), cfg); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if cfg.Limits.MaxStringLength != 1024 {
		t.Errorf("expected max_string_length 1024, got %d", cfg.Limits.MaxStringLength)
	}
	if !cfg.Limits.StrictConcat {
		t.Error("expected strict_concat true")
	}
	// Unset keys keep their defaults
	if cfg.Limits.MaxCallDepth != 2000 {
		t.Errorf("expected default max_call_depth 2000, got %d", cfg.Limits.MaxCallDepth)
	}
	if !cfg.Limits.AllowUndeclaredAssignment {
		t.Error("expected allow_undeclared_assignment to stay true")
	}

	d, err := cfg.Limits.TimeoutDuration()
	if err != nil || d.Seconds() != 2 {
		t.Errorf("expected 2s timeout, got %v (%v)", d, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "defaults are valid",
			yaml: `locale: en-GB`,
		},
		{
			name:    "negative call depth",
			yaml:    "limits:\n  max_call_depth: -1",
			wantErr: "limits.max_call_depth",
		},
		{
			name:    "bad timeout",
			yaml:    "limits:\n  timeout: soon",
			wantErr: "limits.timeout",
		},
		{
			name:    "bad log level",
			yaml:    "logging:\n  level: loud",
			wantErr: "invalid log level: loud",
		},
		{
			name:    "bad log format",
			yaml:    "logging:\n  format: xml",
			wantErr: "invalid log format: xml",
		},
		{
			name:    "unknown trace driver",
			yaml:    "trace:\n  enabled: true\n  driver: oracle\n  dsn: x",
			wantErr: `unknown driver "oracle"`,
		},
		{
			name:    "trace needs a dsn",
			yaml:    "trace:\n  enabled: true",
			wantErr: "trace.dsn is required",
		},
		{
			name: "disabled trace is not checked",
			yaml: "trace:\n  driver: oracle",
		},
		{
			name:    "extra unit in unknown group",
			yaml:    "units:\n  extra:\n    - suffix: fur\n      group: distance\n      factor: 201.168",
			wantErr: `units.extra[0]: unknown group "distance"`,
		},
		{
			name:    "extra unit without factor",
			yaml:    "units:\n  extra:\n    - suffix: fur\n      group: length",
			wantErr: "factor must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			if err := yaml.Unmarshal([]byte(tt.yaml), cfg); err != nil {
				t.Fatalf("Failed to parse config: %v", err)
			}
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected validation error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), "configuration errors:\n  - ") {
				t.Errorf("unexpected error format: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := strings.Count(err.Error(), "\n  - "); n != 2 {
		t.Errorf("expected 2 errors, got %d: %v", n, err)
	}
}
