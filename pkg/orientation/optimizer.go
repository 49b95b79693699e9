// Package orientation searches for the print orientation of a mesh that
// minimizes unsupported overhang.
package orientation

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/philipparndt/stlcheck/pkg/geometry"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

// tieTolerance is the relative cost difference below which two candidates
// are considered equal
const tieTolerance = 1e-9

// Result is the outcome of an orientation search
type Result struct {
	// Current is the orientation the file is stored in
	Current     Candidate `json:"current" yaml:"current"`
	Recommended Candidate `json:"recommended" yaml:"recommended"`
	// Ranked holds every scored candidate ordered by cost, then angle
	Ranked       []Candidate `json:"-" yaml:"-"`
	DeltaDegrees float64     `json:"delta_degrees" yaml:"delta_degrees"`
	CostRatio    float64     `json:"cost_ratio" yaml:"cost_ratio"`
	Suboptimal   bool        `json:"suboptimal" yaml:"suboptimal"`
}

// Optimizer scores candidate orientations of a mesh
type Optimizer struct {
	opts Options
}

// New creates an optimizer. Options are expected to be validated.
func New(opts Options) *Optimizer {
	return &Optimizer{opts: opts}
}

// Options returns the optimizer configuration
func (o *Optimizer) Options() Options {
	return o.opts
}

// Optimize scores the candidate orientations of m and compares the best
// against the stored orientation. The result only depends on the mesh and
// the options.
func (o *Optimizer) Optimize(ctx context.Context, m *stl.Mesh) (*Result, error) {
	if m.FacetCount() == 0 {
		return nil, errors.New("mesh has no facets")
	}

	s := newScorer(m, o.opts.OverhangThresholdDegrees)
	candidates := o.generate(m)
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc := s.score(candidates[i].Rotation)
		candidates[i].Cost = sc.Cost
		candidates[i].Overhang = sc.Overhang
		candidates[i].Contact = sc.Contact
	}

	current := candidates[0]
	best := current
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Cost != ranked[j].Cost {
			return ranked[i].Cost < ranked[j].Cost
		}
		return ranked[i].AngleDegrees < ranked[j].AngleDegrees
	})

	up := best.Rotation.Apply(geometry.Up)
	delta := degrees(math.Acos(math.Max(-1, math.Min(1, up.Dot(geometry.Up)))))
	ratio := current.Cost / best.Cost

	return &Result{
		Current:      current,
		Recommended:  best,
		Ranked:       ranked,
		DeltaDegrees: delta,
		CostRatio:    ratio,
		Suboptimal:   delta > o.opts.OrientationToleranceDegrees && ratio > o.opts.CostRatioTolerance,
	}, nil
}

// better reports whether c beats best: strictly lower cost, or a cost tie
// with a smaller rotation from the stored orientation
func better(c, best Candidate) bool {
	if tied(c.Cost, best.Cost) {
		return c.AngleDegrees < best.AngleDegrees
	}
	return c.Cost < best.Cost
}

func tied(a, b float64) bool {
	return math.Abs(a-b) <= tieTolerance*math.Max(math.Abs(a), math.Abs(b))
}
