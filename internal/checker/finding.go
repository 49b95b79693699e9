package checker

import (
	"fmt"
	"time"

	"github.com/philipparndt/stlcheck/pkg/analysis"
	"github.com/philipparndt/stlcheck/pkg/orientation"
)

// Status is the outcome class of one file
type Status string

const (
	StatusOK              Status = "ok"
	StatusDefects         Status = "defects"
	StatusParseFailure    Status = "parse-failure"
	StatusAnalysisFailure Status = "analysis-failure"
	StatusNotAnalyzed     Status = "not-analyzed"
)

// AnalysisError wraps an unexpected fault raised while analyzing a file
type AnalysisError struct {
	Path string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis of %s failed: %v", e.Path, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// OrientationFinding is the orientation part of a file finding
type OrientationFinding struct {
	CurrentCost  float64                `json:"current_cost" yaml:"current_cost"`
	Recommended  *orientation.Candidate `json:"recommended,omitempty" yaml:"recommended,omitempty"`
	DeltaDegrees float64                `json:"delta_degrees" yaml:"delta_degrees"`
	CostRatio    float64                `json:"cost_ratio" yaml:"cost_ratio"`
	Suboptimal   bool                   `json:"suboptimal" yaml:"suboptimal"`
	// Skipped explains why no orientation was computed
	Skipped string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func newOrientationFinding(r *orientation.Result) *OrientationFinding {
	rec := r.Recommended
	return &OrientationFinding{
		CurrentCost:  r.Current.Cost,
		Recommended:  &rec,
		DeltaDegrees: r.DeltaDegrees,
		CostRatio:    r.CostRatio,
		Suboptimal:   r.Suboptimal,
	}
}

// FileFinding is the result of checking one file
type FileFinding struct {
	Path         string                      `json:"path" yaml:"path"`
	Name         string                      `json:"name" yaml:"name"`
	ModDir       string                      `json:"mod_dir,omitempty" yaml:"mod_dir,omitempty"`
	Status       Status                      `json:"status" yaml:"status"`
	Severity     analysis.Severity           `json:"severity" yaml:"severity"`
	Reason       string                      `json:"reason,omitempty" yaml:"reason,omitempty"`
	Defects      []analysis.Defect           `json:"defects,omitempty" yaml:"defects,omitempty"`
	Summary      map[analysis.Kind]int       `json:"summary,omitempty" yaml:"summary,omitempty"`
	Watertight   bool                        `json:"watertight" yaml:"watertight"`
	Measurements *analysis.MeasurementResult `json:"measurements,omitempty" yaml:"measurements,omitempty"`
	Orientation  *OrientationFinding         `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	RotatedPath  string                      `json:"rotated_path,omitempty" yaml:"rotated_path,omitempty"`
}

// Failed reports whether the file could not be analyzed
func (f FileFinding) Failed() bool {
	switch f.Status {
	case StatusParseFailure, StatusAnalysisFailure, StatusNotAnalyzed:
		return true
	}
	return false
}

// BatchReport is the aggregate result of one checker run
type BatchReport struct {
	RunID            string            `json:"run_id" yaml:"run_id"`
	StartedAt        time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time         `json:"finished_at" yaml:"finished_at"`
	Findings         []FileFinding     `json:"findings" yaml:"findings"`
	Issues           []Issue           `json:"issues,omitempty" yaml:"issues,omitempty"`
	Severity         analysis.Severity `json:"severity" yaml:"severity"`
	Incomplete       bool              `json:"incomplete" yaml:"incomplete"`
	IncompleteReason string            `json:"incomplete_reason,omitempty" yaml:"incomplete_reason,omitempty"`
	IgnoreWarnings   bool              `json:"ignore_warnings" yaml:"ignore_warnings"`
}

// Count returns the number of findings with the given status
func (r *BatchReport) Count(status Status) int {
	n := 0
	for _, f := range r.Findings {
		if f.Status == status {
			n++
		}
	}
	return n
}

// AddIssues merges repository layout issues into the report
func (r *BatchReport) AddIssues(issues []Issue) {
	r.Issues = append(r.Issues, issues...)
	r.Severity = analysis.MaxSeverity(r.Severity, issueSeverity(issues))
}

// Duration returns the wall time of the run
func (r *BatchReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExitThreshold returns the severity at which the run fails
func (r *BatchReport) ExitThreshold() analysis.Severity {
	if r.IgnoreWarnings {
		return analysis.SeverityError
	}
	return analysis.SeverityWarning
}

// ExitCode returns the process exit status for a report: 1 when the batch
// severity reaches the threshold, 0 otherwise.
func ExitCode(r *BatchReport) int {
	if r.Severity >= r.ExitThreshold() {
		return 1
	}
	return 0
}
