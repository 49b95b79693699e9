package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stlcheck/pkg/analysis"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.Check.IgnoreWarnings)
	assert.Equal(t, 45.0, cfg.Check.OverhangThresholdDegrees)
	assert.Equal(t, 5.73, cfg.Check.OrientationToleranceDegrees)
	assert.Equal(t, 1.1, cfg.Check.CostRatioTolerance)
	assert.False(t, cfg.Check.SelfIntersectionCheckEnabled)
	assert.Equal(t, 64, cfg.Check.MaxCandidates)
	assert.Equal(t, 40, cfg.Check.MaxFiles)
	assert.Equal(t, "error", cfg.Check.ParseFailureSeverity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, FormatText, cfg.Output.Format)

	assert.Equal(t, time.Duration(0), cfg.Timeout())
	assert.Greater(t, cfg.WorkerCount(), 0)
	assert.Equal(t, analysis.SeverityError, cfg.ParseFailureSeverity())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "stlcheck.yaml")

	yamlContent := `
check:
  ignore_warnings: true
  overhang_threshold_degrees: 50
  self_intersection_check_enabled: true
  timeout_seconds: 2.5
  parse_failure_severity: warning
  workers: 3

logging:
  level: "debug"
  log_file: "check.log"

output:
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := Load(configPath, "")
	require.NoError(t, err)

	assert.True(t, cfg.Check.IgnoreWarnings)
	assert.Equal(t, 50.0, cfg.Check.OverhangThresholdDegrees)
	// keys absent from the file keep their defaults
	assert.Equal(t, 5.73, cfg.Check.OrientationToleranceDegrees)
	assert.Equal(t, 40, cfg.Check.MaxFiles)
	assert.True(t, cfg.AnalysisOptions().SelfIntersection)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, analysis.SeverityWarning, cfg.ParseFailureSeverity())
	assert.Equal(t, 3, cfg.WorkerCount())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "check.log", cfg.Logging.LogFile)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, 50.0, cfg.OrientationOptions().OverhangThresholdDegrees)
}

func TestLoadFindsDefaultFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultFileName), []byte("check:\n  max_files: 7\n"), 0644))

	cfg, err := Load("", tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Check.MaxFiles)

	cfg, err = Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Check.MaxFiles)
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
check:
  max_files: not a number
  invalid syntax here
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	_, err := Load(configPath, "")
	assert.Error(t, err)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml", "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Check.OverhangThresholdDegrees = 95
	cfg.Check.CostRatioTolerance = 0.9
	cfg.Check.MaxCandidates = 0
	cfg.Check.TimeoutSeconds = -1
	cfg.Check.ParseFailureSeverity = "ok"
	cfg.Logging.Level = "loud"
	cfg.Output.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 7)
	assert.Contains(t, err.Error(), "overhang_threshold_degrees")
	assert.Contains(t, err.Error(), "output.format")
}

func TestValidateRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		set   func(c *CheckConfig)
		field string
	}{
		{"nan overhang", func(c *CheckConfig) { c.OverhangThresholdDegrees = math.NaN() }, "overhang_threshold_degrees"},
		{"nan orientation tolerance", func(c *CheckConfig) { c.OrientationToleranceDegrees = math.NaN() }, "orientation_tolerance_degrees"},
		{"nan cost ratio", func(c *CheckConfig) { c.CostRatioTolerance = math.NaN() }, "cost_ratio_tolerance"},
		{"inf cost ratio", func(c *CheckConfig) { c.CostRatioTolerance = math.Inf(1) }, "cost_ratio_tolerance"},
		{"nan timeout", func(c *CheckConfig) { c.TimeoutSeconds = math.NaN() }, "timeout_seconds"},
		{"inf timeout", func(c *CheckConfig) { c.TimeoutSeconds = math.Inf(1) }, "timeout_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.set(&cfg.Check)

			err := cfg.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Problems, 1)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadRejectsNaNFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("check:\n  cost_ratio_tolerance: .nan\n"), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(cfg.Check.CostRatioTolerance))
	assert.Error(t, cfg.Validate())
}

func TestStructureDefaultsAndValidation(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Structure.Enabled)
	assert.Equal(t, 2, cfg.Structure.ModDepth)
	assert.Equal(t, []string{"README.md", "mods.json"}, cfg.Structure.Ignore)
	require.NoError(t, cfg.Validate())

	cfg.Structure.ModDepth = 0
	cfg.Structure.MaxFileSizeMB = math.NaN()
	err := cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2)
	assert.Contains(t, err.Error(), "structure.mod_depth")
	assert.Contains(t, err.Error(), "structure.max_file_size_mb")
}

func TestValidateWriteRotatedNeedsDir(t *testing.T) {
	cfg := Default()
	cfg.Output.WriteRotated = true
	assert.Error(t, cfg.Validate())

	cfg.Output.Dir = t.TempDir()
	assert.NoError(t, cfg.Validate())
}
