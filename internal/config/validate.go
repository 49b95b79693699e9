package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/philipparndt/stlcheck/internal/logger"
	"github.com/philipparndt/stlcheck/pkg/analysis"
)

// ValidationError lists every invalid setting of a Config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks every setting and returns a *ValidationError describing
// all problems, or nil.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	check := c.Check
	if !finite(check.OverhangThresholdDegrees) || check.OverhangThresholdDegrees < 0 || check.OverhangThresholdDegrees >= 90 {
		add("check.overhang_threshold_degrees must be in [0, 90), got %v", check.OverhangThresholdDegrees)
	}
	if !finite(check.OrientationToleranceDegrees) || check.OrientationToleranceDegrees < 0 || check.OrientationToleranceDegrees > 180 {
		add("check.orientation_tolerance_degrees must be in [0, 180], got %v", check.OrientationToleranceDegrees)
	}
	if !finite(check.CostRatioTolerance) || check.CostRatioTolerance < 1 {
		add("check.cost_ratio_tolerance must be a finite number of at least 1, got %v", check.CostRatioTolerance)
	}
	if check.MaxCandidates < 1 {
		add("check.max_candidates must be at least 1, got %d", check.MaxCandidates)
	}
	if !finite(check.TimeoutSeconds) || check.TimeoutSeconds < 0 {
		add("check.timeout_seconds must be a finite number, not negative, got %v", check.TimeoutSeconds)
	}
	if check.MaxFiles < 0 {
		add("check.max_files must not be negative, got %d", check.MaxFiles)
	}
	if check.Workers < 0 {
		add("check.workers must not be negative, got %d", check.Workers)
	}
	if s, err := analysis.ParseSeverity(check.ParseFailureSeverity); err != nil || s == analysis.SeverityOK {
		add("check.parse_failure_severity must be warning or error, got %q", check.ParseFailureSeverity)
	}

	if c.Structure.ModDepth < 1 {
		add("structure.mod_depth must be at least 1, got %d", c.Structure.ModDepth)
	}
	if !finite(c.Structure.MaxFileSizeMB) || c.Structure.MaxFileSizeMB < 0 {
		add("structure.max_file_size_mb must be a finite number, not negative, got %v", c.Structure.MaxFileSizeMB)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level: unknown level %q", c.Logging.Level)
	}

	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		add("output.format must be one of text, json, yaml, got %q", c.Output.Format)
	}
	if c.Output.WriteRotated && c.Output.Dir == "" {
		add("output.write_rotated requires output.dir")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// finite rejects NaN and the infinities, which slip through plain range checks
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
