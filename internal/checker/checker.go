// Package checker runs the structural and orientation checks over a batch
// of mesh files and aggregates the outcome.
package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/philipparndt/stlcheck/internal/config"
	"github.com/philipparndt/stlcheck/pkg/analysis"
	"github.com/philipparndt/stlcheck/pkg/orientation"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

// Checker analyzes batches of files. It holds no per-run state and may run
// several batches concurrently.
type Checker struct {
	cfg       *config.Config
	log       *zap.Logger
	analysis  analysis.Options
	optimizer *orientation.Optimizer
}

// New creates a checker for an already loaded configuration
func New(cfg *config.Config, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		cfg:       cfg,
		log:       log,
		analysis:  cfg.AnalysisOptions(),
		optimizer: orientation.New(cfg.OrientationOptions()),
	}
}

type indexedFinding struct {
	index   int
	finding FileFinding
}

// Run checks every target and returns the report with findings in target
// order. Failures of single files are recorded as findings. When the
// configured timeout expires or ctx is cancelled, files that were not
// finished are reported as not analyzed and the report is marked
// incomplete. An error is only returned for an invalid configuration.
func (c *Checker) Run(ctx context.Context, targets []Target) (*BatchReport, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	report := &BatchReport{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		IgnoreWarnings: c.cfg.Check.IgnoreWarnings,
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout := c.cfg.Timeout(); timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	c.log.Info("starting check",
		zap.String("run_id", report.RunID),
		zap.Int("files", len(targets)),
		zap.Int("workers", c.cfg.WorkerCount()))

	findings := make([]FileFinding, len(targets))
	finished := make([]bool, len(targets))

	results := make(chan indexedFinding)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			findings[r.index] = r.finding
			finished[r.index] = true
		}
	}()

	sem := semaphore.NewWeighted(int64(c.cfg.WorkerCount()))
	var wg sync.WaitGroup
	for i, t := range targets {
		if runCtx.Err() != nil {
			break
		}
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			defer sem.Release(1)
			results <- indexedFinding{index: i, finding: c.checkFile(runCtx, t)}
		}(i, t)
	}
	wg.Wait()
	close(results)
	<-collected

	reason := ""
	if err := runCtx.Err(); err != nil {
		reason = interruptReason(ctx, err, c.cfg.Timeout())
	}
	for i, t := range targets {
		if !finished[i] {
			findings[i] = notAnalyzed(t, reason)
		}
		if findings[i].Status == StatusNotAnalyzed {
			report.Incomplete = true
		}
	}
	if report.Incomplete {
		if reason == "" {
			reason = "analysis interrupted"
		}
		report.IncompleteReason = reason
	}

	report.Findings = findings
	report.Severity = batchSeverity(findings, report.Incomplete)
	report.FinishedAt = time.Now()

	c.log.Info("check finished",
		zap.String("run_id", report.RunID),
		zap.Stringer("severity", report.Severity),
		zap.Bool("incomplete", report.Incomplete),
		zap.Duration("duration", report.Duration()))

	return report, nil
}

// RunTree checks the targets like Run. With structure checks enabled the
// layout of root is checked afterwards and its issues are merged into the
// report; a structure check that cannot finish marks the report incomplete.
func (c *Checker) RunTree(ctx context.Context, root string, targets []Target) (*BatchReport, error) {
	report, err := c.Run(ctx, targets)
	if err != nil {
		return nil, err
	}
	if !c.cfg.Structure.Enabled {
		return report, nil
	}
	if root == "" {
		c.log.Warn("structure check needs an input directory, skipped")
		return report, nil
	}

	issues, err := c.CheckStructure(ctx, root)
	if err != nil {
		c.log.Error("structure check failed", zap.String("root", root), zap.Error(err))
		report.Incomplete = true
		if report.IncompleteReason == "" {
			report.IncompleteReason = fmt.Sprintf("structure check failed: %v", err)
		}
		report.Severity = analysis.MaxSeverity(report.Severity, analysis.SeverityError)
	} else {
		report.AddIssues(issues)
		c.log.Info("structure checked",
			zap.String("root", root),
			zap.Int("issues", len(issues)))
	}
	report.FinishedAt = time.Now()
	return report, nil
}

func batchSeverity(findings []FileFinding, incomplete bool) analysis.Severity {
	sev := analysis.SeverityOK
	for _, f := range findings {
		sev = analysis.MaxSeverity(sev, f.Severity)
	}
	if incomplete {
		sev = analysis.MaxSeverity(sev, analysis.SeverityError)
	}
	return sev
}

func interruptReason(parent context.Context, err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Sprintf("timeout after %s", timeout)
	}
	return fmt.Sprintf("run interrupted: %v", err)
}

func notAnalyzed(t Target, reason string) FileFinding {
	if reason == "" {
		reason = "analysis interrupted"
	}
	return FileFinding{
		Path:     t.Path,
		Name:     t.Name,
		ModDir:   t.ModDir,
		Status:   StatusNotAnalyzed,
		Severity: analysis.SeverityError,
		Reason:   reason,
	}
}

// checkFile loads and analyzes one file. It never panics and never returns
// an error: every outcome is a finding.
func (c *Checker) checkFile(ctx context.Context, t Target) FileFinding {
	log := c.log.With(zap.String("file", t.Name))
	finding := FileFinding{Path: t.Path, Name: t.Name, ModDir: t.ModDir}

	mesh, err := stl.LoadFile(t.Path)
	if err != nil {
		if stl.IsParseError(err) {
			finding.Status = StatusParseFailure
			finding.Severity = c.cfg.ParseFailureSeverity()
		} else {
			finding.Status = StatusAnalysisFailure
			finding.Severity = analysis.SeverityError
			err = &AnalysisError{Path: t.Path, Err: err}
		}
		finding.Reason = err.Error()
		log.Warn("failed to load file", zap.String("status", string(finding.Status)), zap.Error(err))
		return finding
	}

	if ctx.Err() != nil {
		return notAnalyzed(t, "")
	}

	multiSolid := len(mesh.Solids) > 1
	var (
		defects []analysis.Defect
		result  *orientation.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("structural analysis", func() (err error) {
		defects, err = analysis.Analyze(gctx, mesh, c.analysis)
		return err
	}))
	if !multiSolid {
		g.Go(guard("orientation", func() (err error) {
			result, err = c.optimizer.Optimize(gctx, mesh)
			return err
		}))
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			log.Warn("analysis interrupted", zap.Error(ctx.Err()))
			return notAnalyzed(t, "")
		}
		aerr := &AnalysisError{Path: t.Path, Err: err}
		finding.Status = StatusAnalysisFailure
		finding.Severity = analysis.SeverityError
		finding.Reason = aerr.Error()
		log.Error("analysis failed", zap.Error(aerr))
		return finding
	}

	finding.Defects = defects
	finding.Summary = analysis.Summarize(defects)
	finding.Watertight = analysis.Watertight(defects)
	finding.Measurements = analysis.Measure(mesh)
	finding.Status = StatusOK
	if len(defects) > 0 {
		finding.Status = StatusDefects
	}
	severity := analysis.HighestSeverity(defects)

	switch {
	case multiSolid:
		finding.Orientation = &OrientationFinding{
			Skipped: fmt.Sprintf("file contains %d solids, orientation check skipped", len(mesh.Solids)),
		}
		severity = analysis.MaxSeverity(severity, analysis.SeverityWarning)
	case result != nil:
		finding.Orientation = newOrientationFinding(result)
		if result.Suboptimal {
			severity = analysis.MaxSeverity(severity, analysis.SeverityWarning)
			if c.cfg.Output.WriteRotated {
				path, err := c.writeRotated(t, mesh, result)
				if err != nil {
					log.Warn("failed to write rotated copy", zap.Error(err))
				} else {
					finding.RotatedPath = path
				}
			}
		}
	}
	finding.Severity = severity

	log.Info("checked file",
		zap.String("status", string(finding.Status)),
		zap.Stringer("severity", finding.Severity),
		zap.Int("defects", len(defects)))
	if finding.Orientation != nil && finding.Orientation.Suboptimal {
		log.Warn("orientation is not optimal",
			zap.Float64("delta_degrees", finding.Orientation.DeltaDegrees),
			zap.Float64("cost_ratio", finding.Orientation.CostRatio))
	}

	return finding
}

// guard converts a panic in fn into an error
func guard(stage string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", stage, r)
			}
		}()
		return fn()
	}
}

// writeRotated writes a binary copy of mesh rotated into the recommended
// orientation as <name>_rotated.stl below the output directory
func (c *Checker) writeRotated(t Target, mesh *stl.Mesh, result *orientation.Result) (string, error) {
	name := filepath.FromSlash(t.Name)
	if filepath.IsAbs(name) || strings.HasPrefix(name, "..") {
		name = filepath.Base(name)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + "_rotated.stl"
	path := filepath.Join(c.cfg.Output.Dir, name)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := stl.WriteBinary(f, mesh, result.Recommended.Rotation); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
