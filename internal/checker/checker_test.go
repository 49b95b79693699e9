package checker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stlcheck/internal/config"
	"github.com/philipparndt/stlcheck/internal/logger"
	"github.com/philipparndt/stlcheck/pkg/analysis"
	"github.com/philipparndt/stlcheck/pkg/geometry"
	"github.com/philipparndt/stlcheck/pkg/stl"
	"github.com/philipparndt/stlcheck/pkg/stl/stltest"
)

func writeFile(t *testing.T, dir, name string, data []byte) Target {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return Target{Path: path, Name: name}
}

func slabOnEdge() []byte {
	return stltest.Binary(stltest.Rotate(stltest.Slab(), geometry.NewRotation(geometry.UnitX, math.Pi/2)))
}

func run(t *testing.T, cfg *config.Config, targets []Target) *BatchReport {
	t.Helper()
	report, err := New(cfg, logger.Nop()).Run(context.Background(), targets)
	require.NoError(t, err)
	return report
}

func TestRunBatchIsolation(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{
		writeFile(t, dir, "a.stl", stltest.Binary(stltest.Cube())),
		writeFile(t, dir, "corrupt.stl", []byte("this is not a mesh file at all")),
		writeFile(t, dir, "b.stl", stltest.ASCII(stltest.Cube())),
	}

	report := run(t, config.Default(), targets)

	require.Len(t, report.Findings, 3)
	assert.Equal(t, 1, report.Count(StatusParseFailure))
	assert.Equal(t, 2, report.Count(StatusOK))

	assert.Equal(t, "a.stl", report.Findings[0].Name)
	assert.Equal(t, StatusOK, report.Findings[0].Status)
	assert.Equal(t, StatusParseFailure, report.Findings[1].Status)
	assert.NotEmpty(t, report.Findings[1].Reason)
	assert.Equal(t, StatusOK, report.Findings[2].Status)
	assert.True(t, report.Findings[2].Watertight)
	assert.Equal(t, 12, report.Findings[2].Measurements.FacetCount)

	assert.Equal(t, analysis.SeverityError, report.Severity)
	assert.False(t, report.Incomplete)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, ExitCode(report))
}

func TestRunCleanBatch(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{
		writeFile(t, dir, "cube.stl", stltest.Binary(stltest.Cube())),
		writeFile(t, dir, "slab.stl", stltest.Binary(stltest.Slab())),
	}

	report := run(t, config.Default(), targets)

	assert.Equal(t, analysis.SeverityOK, report.Severity)
	assert.Equal(t, 0, ExitCode(report))
	for _, f := range report.Findings {
		require.NotNil(t, f.Orientation)
		assert.False(t, f.Orientation.Suboptimal)
		assert.Empty(t, f.Defects)
	}
}

func TestRunParseFailureSeverity(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{
		writeFile(t, dir, "cube.stl", stltest.Binary(stltest.Cube())),
		writeFile(t, dir, "truncated.stl", stltest.Binary(stltest.Cube())[:300]),
	}

	cfg := config.Default()
	cfg.Check.ParseFailureSeverity = "warning"
	report := run(t, cfg, targets)

	assert.Equal(t, analysis.SeverityWarning, report.Findings[1].Severity)
	assert.Equal(t, analysis.SeverityWarning, report.Severity)
	assert.Equal(t, 1, ExitCode(report))

	cfg.Check.IgnoreWarnings = true
	report = run(t, cfg, targets)
	assert.Equal(t, 0, ExitCode(report))
}

func TestRunSuboptimalOrientation(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{writeFile(t, dir, "edge.stl", slabOnEdge())}

	report := run(t, config.Default(), targets)

	f := report.Findings[0]
	require.NotNil(t, f.Orientation)
	assert.True(t, f.Orientation.Suboptimal)
	assert.Greater(t, f.Orientation.CurrentCost, f.Orientation.Recommended.Cost)
	assert.Equal(t, StatusOK, f.Status)
	assert.Equal(t, analysis.SeverityWarning, f.Severity)
	assert.Equal(t, 1, ExitCode(report))

	cfg := config.Default()
	cfg.Check.IgnoreWarnings = true
	report = run(t, cfg, targets)
	assert.Equal(t, analysis.SeverityWarning, report.Severity)
	assert.Equal(t, 0, ExitCode(report))
}

func TestRunWriteRotated(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	targets := []Target{writeFile(t, dir, "mod/edge.stl", slabOnEdge())}

	cfg := config.Default()
	cfg.Output.Dir = out
	cfg.Output.WriteRotated = true
	report := run(t, cfg, targets)

	f := report.Findings[0]
	require.NotEmpty(t, f.RotatedPath)
	assert.Equal(t, filepath.Join(out, "mod", "edge_rotated.stl"), f.RotatedPath)

	mesh, err := stl.LoadFile(f.RotatedPath)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, mesh.BoundingBox().Size().Z, 1e-4)
}

func TestRunMultipleSolids(t *testing.T) {
	dir := t.TempDir()
	first := stltest.ASCII(stltest.Cube())
	second := stltest.ASCII(stltest.Box(geometry.NewVector3(3, 0, 0), geometry.NewVector3(4, 1, 1)))
	targets := []Target{writeFile(t, dir, "pair.stl", append(first, second...))}

	report := run(t, config.Default(), targets)

	f := report.Findings[0]
	require.NotNil(t, f.Orientation)
	assert.Contains(t, f.Orientation.Skipped, "2 solids")
	assert.Nil(t, f.Orientation.Recommended)
	assert.Equal(t, analysis.SeverityWarning, f.Severity)
	assert.Empty(t, f.Defects)
}

func TestRunReportsDefects(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{writeFile(t, dir, "open.stl", stltest.Binary(stltest.Without(stltest.Cube(), 0)))}

	report := run(t, config.Default(), targets)

	f := report.Findings[0]
	assert.Equal(t, StatusDefects, f.Status)
	assert.Equal(t, analysis.SeverityError, f.Severity)
	assert.False(t, f.Watertight)
	assert.Equal(t, 3, f.Summary[analysis.KindOpenBoundary])

	cfg := config.Default()
	cfg.Check.IgnoreWarnings = true
	report = run(t, cfg, targets)
	assert.Equal(t, 1, ExitCode(report))
}

func TestRunMissingFile(t *testing.T) {
	targets := []Target{{Path: filepath.Join(t.TempDir(), "gone.stl"), Name: "gone.stl"}}

	report := run(t, config.Default(), targets)

	f := report.Findings[0]
	assert.Equal(t, StatusAnalysisFailure, f.Status)
	assert.Equal(t, analysis.SeverityError, f.Severity)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{
		writeFile(t, dir, "a.stl", stltest.Binary(stltest.Cube())),
		writeFile(t, dir, "b.stl", stltest.Binary(stltest.Cube())),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := New(config.Default(), logger.Nop()).Run(ctx, targets)
	require.NoError(t, err)

	assert.True(t, report.Incomplete)
	assert.Contains(t, report.IncompleteReason, "interrupted")
	assert.Equal(t, 2, report.Count(StatusNotAnalyzed))
	assert.Equal(t, analysis.SeverityError, report.Severity)
	assert.Equal(t, 1, ExitCode(report))
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	data := stltest.Binary(stltest.Slab())
	var targets []Target
	for i := 0; i < 200; i++ {
		targets = append(targets, writeFile(t, dir, fmt.Sprintf("part%03d.stl", i), data))
	}

	cfg := config.Default()
	cfg.Check.Workers = 1
	cfg.Check.TimeoutSeconds = 1e-9
	report := run(t, cfg, targets)

	require.Len(t, report.Findings, 200)
	assert.True(t, report.Incomplete)
	assert.Contains(t, report.IncompleteReason, "timeout")
	assert.Greater(t, report.Count(StatusNotAnalyzed), 0)
	assert.Equal(t, analysis.SeverityError, report.Severity)

	cfg.Check.IgnoreWarnings = true
	report = run(t, cfg, targets)
	assert.Equal(t, 1, ExitCode(report))
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Check.MaxCandidates = 0

	_, err := New(cfg, logger.Nop()).Run(context.Background(), nil)
	var verr *config.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestRunEmpty(t *testing.T) {
	report := run(t, config.Default(), nil)

	assert.Empty(t, report.Findings)
	assert.Equal(t, analysis.SeverityOK, report.Severity)
	assert.Equal(t, 0, ExitCode(report))
}

func TestGuardRecoversPanic(t *testing.T) {
	err := guard("orientation", func() error {
		var m *stl.Mesh
		_ = m.FacetCount()
		return nil
	})()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "orientation panicked")

	aerr := &AnalysisError{Path: "x.stl", Err: err}
	assert.ErrorIs(t, aerr, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		severity       analysis.Severity
		ignoreWarnings bool
		expected       int
	}{
		{analysis.SeverityOK, false, 0},
		{analysis.SeverityWarning, false, 1},
		{analysis.SeverityError, false, 1},
		{analysis.SeverityOK, true, 0},
		{analysis.SeverityWarning, true, 0},
		{analysis.SeverityError, true, 1},
	}
	for _, tt := range tests {
		report := &BatchReport{Severity: tt.severity, IgnoreWarnings: tt.ignoreWarnings}
		assert.Equal(t, tt.expected, ExitCode(report), "severity %s ignore_warnings %v", tt.severity, tt.ignoreWarnings)
	}
}
