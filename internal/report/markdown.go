package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/philipparndt/stlcheck/internal/checker"
	"github.com/philipparndt/stlcheck/pkg/analysis"
)

// StepSummaryEnv names the file GitHub Actions reads the step summary from
const StepSummaryEnv = "GITHUB_STEP_SUMMARY"

var resultLabels = map[analysis.Severity]string{
	analysis.SeverityOK:      "✅ ok",
	analysis.SeverityWarning: "⚠️ warning",
	analysis.SeverityError:   "❌ error",
}

// WriteMarkdown writes the report as a markdown table
func WriteMarkdown(w io.Writer, r *checker.BatchReport) error {
	var b strings.Builder
	b.WriteString("## STL check\n\n")
	if r.Incomplete {
		fmt.Fprintf(&b, "**Incomplete run:** %s\n\n", escape(r.IncompleteReason))
	}
	b.WriteString("| Filename | Result | Defects | Orientation |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, f := range r.Findings {
		defects := defectSummary(f)
		if f.Failed() {
			defects = fmt.Sprintf("%s: %s", f.Status, f.Reason)
		}
		orient := orientationSummary(f)
		if orient == "" && f.Orientation != nil {
			orient = fmt.Sprintf("ok (%.1f degrees)", f.Orientation.DeltaDegrees)
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n",
			f.Name, resultLabels[f.Severity], orDash(escape(defects)), orDash(escape(orient)))
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n### Mod structure\n\n")
		b.WriteString("| Item | Result | Reason |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, i := range r.Issues {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", i.Path, resultLabels[i.Severity], escape(i.Message))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// AppendStepSummary appends the markdown report to path, or to the file
// named by $GITHUB_STEP_SUMMARY when path is empty
func AppendStepSummary(path string, r *checker.BatchReport) error {
	if path == "" {
		path = os.Getenv(StepSummaryEnv)
	}
	if path == "" {
		return fmt.Errorf("%s is not set", StepSummaryEnv)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open step summary: %w", err)
	}
	if err := WriteMarkdown(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
