// Package config handles checker configuration loading and validation.
package config

import (
	"runtime"
	"time"

	"github.com/philipparndt/stlcheck/pkg/analysis"
	"github.com/philipparndt/stlcheck/pkg/orientation"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds all checker settings.
type Config struct {
	Check     CheckConfig     `yaml:"check"`
	Structure StructureConfig `yaml:"structure"`
	Logging   LoggingConfig   `yaml:"logging"`
	Output    OutputConfig    `yaml:"output"`
}

// CheckConfig holds analysis and policy settings.
type CheckConfig struct {
	IgnoreWarnings               bool    `yaml:"ignore_warnings"`
	OverhangThresholdDegrees     float64 `yaml:"overhang_threshold_degrees"`
	OrientationToleranceDegrees  float64 `yaml:"orientation_tolerance_degrees"`
	CostRatioTolerance           float64 `yaml:"cost_ratio_tolerance"`
	SelfIntersectionCheckEnabled bool    `yaml:"self_intersection_check_enabled"`
	MaxCandidates                int     `yaml:"max_candidates"`
	TimeoutSeconds               float64 `yaml:"timeout_seconds"` // 0 = no timeout
	ParseFailureSeverity         string  `yaml:"parse_failure_severity"`
	MaxFiles                     int     `yaml:"max_files"` // 0 = unlimited
	Workers                      int     `yaml:"workers"`   // 0 = NumCPU
}

// StructureConfig holds the mod repository layout checks. They need an
// input directory and are off unless Enabled is set.
type StructureConfig struct {
	Enabled       bool     `yaml:"enabled"`
	ModDepth      int      `yaml:"mod_depth"` // directory depth of a mod, 2 = user/mod
	CheckLicense  bool     `yaml:"check_license"`
	MaxFileSizeMB float64  `yaml:"max_file_size_mb"` // 0 = no limit
	Ignore        []string `yaml:"ignore"`           // file names allowed above mod depth
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format            string `yaml:"format"`
	Dir               string `yaml:"dir"`
	WriteRotated      bool   `yaml:"write_rotated"`
	GithubStepSummary bool   `yaml:"github_step_summary"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	orient := orientation.DefaultOptions()
	return &Config{
		Check: CheckConfig{
			IgnoreWarnings:               false,
			OverhangThresholdDegrees:     orient.OverhangThresholdDegrees,
			OrientationToleranceDegrees:  orient.OrientationToleranceDegrees,
			CostRatioTolerance:           orient.CostRatioTolerance,
			SelfIntersectionCheckEnabled: false,
			MaxCandidates:                orient.MaxCandidates,
			TimeoutSeconds:               0,
			ParseFailureSeverity:         "error",
			MaxFiles:                     40,
			Workers:                      0,
		},
		Structure: StructureConfig{
			Enabled:       false,
			ModDepth:      2,
			CheckLicense:  false,
			MaxFileSizeMB: 0,
			Ignore:        []string{"README.md", "mods.json"},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Output: OutputConfig{
			Format: FormatText,
		},
	}
}

// Timeout returns the overall batch timeout, zero when unbounded.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Check.TimeoutSeconds * float64(time.Second))
}

// WorkerCount returns the number of files analyzed in parallel.
func (c *Config) WorkerCount() int {
	if c.Check.Workers > 0 {
		return c.Check.Workers
	}
	return runtime.NumCPU()
}

// ParseFailureSeverity returns the severity assigned to unreadable files.
// Unknown names fall back to error; Validate reports them.
func (c *Config) ParseFailureSeverity() analysis.Severity {
	s, err := analysis.ParseSeverity(c.Check.ParseFailureSeverity)
	if err != nil {
		return analysis.SeverityError
	}
	return s
}

// AnalysisOptions returns the structural analyzer settings.
func (c *Config) AnalysisOptions() analysis.Options {
	opts := analysis.DefaultOptions()
	opts.SelfIntersection = c.Check.SelfIntersectionCheckEnabled
	return opts
}

// OrientationOptions returns the orientation optimizer settings.
func (c *Config) OrientationOptions() orientation.Options {
	opts := orientation.DefaultOptions()
	opts.OverhangThresholdDegrees = c.Check.OverhangThresholdDegrees
	opts.OrientationToleranceDegrees = c.Check.OrientationToleranceDegrees
	opts.CostRatioTolerance = c.Check.CostRatioTolerance
	opts.MaxCandidates = c.Check.MaxCandidates
	return opts
}
