package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/stlcheck/internal/checker"
	"github.com/philipparndt/stlcheck/internal/config"
	"github.com/philipparndt/stlcheck/internal/logger"
	"github.com/philipparndt/stlcheck/internal/report"
)

// checkFlags holds the command line overrides shared by check and watch
type checkFlags struct {
	inputDir             string
	configPath           string
	ignoreWarnings       bool
	overhangThreshold    float64
	orientationTolerance float64
	costRatioTolerance   float64
	selfIntersection     bool
	checkStructure       bool
	checkLicense         bool
	maxFileSizeMB        float64
	maxCandidates        int
	timeout              float64
	maxFiles             int
	workers              int
	format               string
	outputDir            string
	writeRotated         bool
	githubStepSummary    bool
	logLevel             string
	logFile              string
	noColor              bool
}

func (f *checkFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.inputDir, "input-dir", "i", "", "Directory searched for STL files when no paths are given")
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to config file (default: "+config.DefaultFileName+" in the input directory)")
	fs.BoolVar(&f.ignoreWarnings, "ignore-warnings", false, "Only fail on errors")
	fs.Float64Var(&f.overhangThreshold, "overhang-threshold", 0, "Overhang angle from vertical in degrees")
	fs.Float64Var(&f.orientationTolerance, "orientation-tolerance", 0, "Tolerated tilt from the recommended orientation in degrees")
	fs.Float64Var(&f.costRatioTolerance, "cost-ratio-tolerance", 0, "Tolerated current/recommended cost ratio")
	fs.BoolVar(&f.selfIntersection, "self-intersection", false, "Enable the self-intersection heuristic")
	fs.BoolVar(&f.checkStructure, "check-structure", false, "Check the mod layout and metadata below --input-dir")
	fs.BoolVar(&f.checkLicense, "check-license", false, "Warn about license files (with --check-structure)")
	fs.Float64Var(&f.maxFileSizeMB, "max-file-size", 0, "Warn about files larger than this many MB (with --check-structure)")
	fs.IntVar(&f.maxCandidates, "max-candidates", 0, "Maximum number of scored orientations")
	fs.Float64Var(&f.timeout, "timeout", 0, "Overall timeout in seconds")
	fs.IntVar(&f.maxFiles, "max-files", 0, "Maximum number of files checked")
	fs.IntVar(&f.workers, "workers", 0, "Files analyzed in parallel")
	fs.StringVarP(&f.format, "format", "f", "", "Output format: text, json or yaml")
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for tool_result.json and rotated copies")
	fs.BoolVar(&f.writeRotated, "write-rotated", false, "Write a rotated copy of badly oriented files")
	fs.BoolVar(&f.githubStepSummary, "github-step-summary", false, "Append a markdown summary to $GITHUB_STEP_SUMMARY")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&f.logFile, "log-file", "", "Also log to this file")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
}

// loadConfig applies the changed flags on top of the file configuration
func (f *checkFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir := f.inputDir
	if dir == "" {
		dir = "."
	}
	cfg, err := config.Load(f.configPath, dir)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("ignore-warnings") {
		cfg.Check.IgnoreWarnings = f.ignoreWarnings
	}
	if changed("overhang-threshold") {
		cfg.Check.OverhangThresholdDegrees = f.overhangThreshold
	}
	if changed("orientation-tolerance") {
		cfg.Check.OrientationToleranceDegrees = f.orientationTolerance
	}
	if changed("cost-ratio-tolerance") {
		cfg.Check.CostRatioTolerance = f.costRatioTolerance
	}
	if changed("self-intersection") {
		cfg.Check.SelfIntersectionCheckEnabled = f.selfIntersection
	}
	if changed("check-structure") {
		cfg.Structure.Enabled = f.checkStructure
	}
	if changed("check-license") {
		cfg.Structure.CheckLicense = f.checkLicense
	}
	if changed("max-file-size") {
		cfg.Structure.MaxFileSizeMB = f.maxFileSizeMB
	}
	if changed("max-candidates") {
		cfg.Check.MaxCandidates = f.maxCandidates
	}
	if changed("timeout") {
		cfg.Check.TimeoutSeconds = f.timeout
	}
	if changed("max-files") {
		cfg.Check.MaxFiles = f.maxFiles
	}
	if changed("workers") {
		cfg.Check.Workers = f.workers
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if changed("write-rotated") {
		cfg.Output.WriteRotated = f.writeRotated
	}
	if changed("github-step-summary") {
		cfg.Output.GithubStepSummary = f.githubStepSummary
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Logging.LogFile = f.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCheckCmd() *cobra.Command {
	flags := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check STL files for defects and print orientation",
		Long: `Check every given STL file, or every STL file below --input-dir, for
structural defects and a print orientation that needs more support than
necessary. The exit status is 1 when a warning or error was found (only
errors with --ignore-warnings) and 2 for invalid usage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
			if err != nil {
				return err
			}
			defer logger.Sync(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := runCheck(ctx, cmd.OutOrStdout(), cfg, log, flags, args)
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// runCheck checks the targets once, renders the report and returns the
// exit status
func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, log *zap.Logger, flags *checkFlags, args []string) (int, error) {
	targets, dropped, err := checker.CollectTargets(flags.inputDir, args, cfg.Check.MaxFiles)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		log.Warn("too many files, only the first ones are checked",
			zap.Int("checked", len(targets)),
			zap.Int("skipped", dropped))
	}

	rep, err := checker.New(cfg, log).RunTree(ctx, flags.inputDir, targets)
	if err != nil {
		return 0, err
	}

	switch cfg.Output.Format {
	case config.FormatJSON:
		err = report.WriteJSON(out, rep)
	case config.FormatYAML:
		err = report.WriteYAML(out, rep)
	default:
		err = report.WriteSummary(out, rep, !flags.noColor && !color.NoColor)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.Output.Dir != "" {
		path, err := report.WriteArtifacts(cfg.Output.Dir, rep)
		if err != nil {
			return 0, err
		}
		log.Debug("wrote result artifact", zap.String("path", path))
	}
	if cfg.Output.GithubStepSummary {
		if err := report.AppendStepSummary("", rep); err != nil {
			log.Warn("failed to write step summary", zap.Error(err))
		}
	}

	return checker.ExitCode(rep), nil
}
