package orientation

import (
	"errors"
	"fmt"
	"math"
)

// Options tunes the orientation search
type Options struct {
	// OverhangThresholdDegrees is how far from vertical a downward facing
	// surface may lean before it needs support
	OverhangThresholdDegrees float64
	// OrientationToleranceDegrees is the tilt between the current and the
	// recommended up axis tolerated before a file is flagged
	OrientationToleranceDegrees float64
	// CostRatioTolerance is the current/recommended cost ratio tolerated
	// before a file is flagged
	CostRatioTolerance float64
	// MaxCandidates bounds the number of scored orientations, identity included
	MaxCandidates int
	// SampleCount is the number of sphere samples used when a mesh has too
	// few facets to derive candidates from
	SampleCount int
	// DedupeToleranceDegrees merges candidates closer than this
	DedupeToleranceDegrees float64
}

// DefaultOptions returns the optimizer defaults. The orientation tolerance
// of 5.73 degrees is 0.1 rad.
func DefaultOptions() Options {
	return Options{
		OverhangThresholdDegrees:    45,
		OrientationToleranceDegrees: 5.73,
		CostRatioTolerance:          1.1,
		MaxCandidates:               64,
		SampleCount:                 64,
		DedupeToleranceDegrees:      1,
	}
}

// Validate checks that every option is in range
func (o Options) Validate() error {
	var errs []error
	if !finite(o.OverhangThresholdDegrees) || o.OverhangThresholdDegrees < 0 || o.OverhangThresholdDegrees >= 90 {
		errs = append(errs, fmt.Errorf("overhang threshold must be in [0, 90), got %v", o.OverhangThresholdDegrees))
	}
	if !finite(o.OrientationToleranceDegrees) || o.OrientationToleranceDegrees < 0 || o.OrientationToleranceDegrees > 180 {
		errs = append(errs, fmt.Errorf("orientation tolerance must be in [0, 180], got %v", o.OrientationToleranceDegrees))
	}
	if !finite(o.CostRatioTolerance) || o.CostRatioTolerance < 1 {
		errs = append(errs, fmt.Errorf("cost ratio tolerance must be a finite number of at least 1, got %v", o.CostRatioTolerance))
	}
	if o.MaxCandidates < 1 {
		errs = append(errs, fmt.Errorf("max candidates must be at least 1, got %d", o.MaxCandidates))
	}
	if o.SampleCount < 1 {
		errs = append(errs, fmt.Errorf("sample count must be at least 1, got %d", o.SampleCount))
	}
	if !finite(o.DedupeToleranceDegrees) || o.DedupeToleranceDegrees < 0 {
		errs = append(errs, fmt.Errorf("dedupe tolerance must be finite and not negative, got %v", o.DedupeToleranceDegrees))
	}
	return errors.Join(errs...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
