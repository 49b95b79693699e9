package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/philipparndt/stlcheck/internal/checker"
	"github.com/philipparndt/stlcheck/pkg/analysis"
)

type palette struct {
	ok, warn, fail, dim func(a ...interface{}) string
}

func newPalette(useColor bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		ok:   mk(color.FgGreen),
		warn: mk(color.FgYellow),
		fail: mk(color.FgRed, color.Bold),
		dim:  mk(color.FgHiBlack),
	}
}

func (p palette) severity(s analysis.Severity) string {
	label := fmt.Sprintf("%-9s", "["+strings.ToUpper(s.String())+"]")
	switch s {
	case analysis.SeverityOK:
		return p.ok(label)
	case analysis.SeverityWarning:
		return p.warn(label)
	default:
		return p.fail(label)
	}
}

// WriteSummary writes one line per file and a closing aggregate line
func WriteSummary(w io.Writer, r *checker.BatchReport, useColor bool) error {
	p := newPalette(useColor)

	for _, f := range r.Findings {
		if _, err := fmt.Fprintf(w, "%s %s%s\n", p.severity(f.Severity), f.Name, p.dim(describe(f))); err != nil {
			return err
		}
	}

	if err := writeIssues(w, p, r.Issues); err != nil {
		return err
	}

	counts := map[analysis.Severity]int{}
	for _, f := range r.Findings {
		counts[f.Severity]++
	}

	verdict := p.ok("PASSED")
	if checker.ExitCode(r) != 0 {
		verdict = p.fail("FAILED")
	}
	line := fmt.Sprintf("%d files checked: %d ok, %d warning, %d error",
		len(r.Findings), counts[analysis.SeverityOK], counts[analysis.SeverityWarning], counts[analysis.SeverityError])
	if r.Incomplete {
		line += fmt.Sprintf(" (incomplete: %s)", r.IncompleteReason)
	}
	if r.IgnoreWarnings {
		line += " (warnings ignored)"
	}
	_, err := fmt.Fprintf(w, "%s %s\n", line, verdict)
	return err
}

// writeIssues writes one line per layout issue and a count line
func writeIssues(w io.Writer, p palette, issues []checker.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	counts := map[analysis.Severity]int{}
	for _, i := range issues {
		counts[i.Severity]++
		if _, err := fmt.Fprintf(w, "%s %s%s\n", p.severity(i.Severity), i.Path,
			p.dim(fmt.Sprintf(" - %s: %s", i.Kind, i.Message))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d structure issues: %d warning, %d error\n",
		len(issues), counts[analysis.SeverityWarning], counts[analysis.SeverityError])
	return err
}

// describe returns the detail suffix of a summary line
func describe(f checker.FileFinding) string {
	var parts []string
	switch f.Status {
	case checker.StatusParseFailure, checker.StatusAnalysisFailure, checker.StatusNotAnalyzed:
		parts = append(parts, fmt.Sprintf("%s: %s", f.Status, f.Reason))
	}
	if d := defectSummary(f); d != "" {
		parts = append(parts, d)
	}
	if o := orientationSummary(f); o != "" {
		parts = append(parts, o)
	}
	if len(parts) == 0 {
		return ""
	}
	return " - " + strings.Join(parts, ", ")
}

func defectSummary(f checker.FileFinding) string {
	var parts []string
	for _, kind := range analysis.Kinds {
		if n := f.Summary[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	return strings.Join(parts, ", ")
}

func orientationSummary(f checker.FileFinding) string {
	o := f.Orientation
	switch {
	case o == nil:
		return ""
	case o.Skipped != "":
		return o.Skipped
	case o.Suboptimal:
		return fmt.Sprintf("orientation off by %.1f degrees (cost ratio %.2f)", o.DeltaDegrees, o.CostRatio)
	}
	return ""
}
