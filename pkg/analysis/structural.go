package analysis

import (
	"context"
	"fmt"

	"github.com/philipparndt/stlcheck/pkg/stl"
)

// ctxCheckInterval is how many loop iterations run between context checks
const ctxCheckInterval = 1024

// Options tunes the structural analyzer
type Options struct {
	// InvertedNormalThreshold is the minimum dot product between the stored
	// normal and the winding normal before the facet is reported.
	InvertedNormalThreshold float64
	// DegenerateEpsilon is the facet area below which a facet is degenerate,
	// relative to the squared bounding box diagonal.
	DegenerateEpsilon float64
	// SelfIntersection enables the broad-phase intersection search
	SelfIntersection bool
	// MaxIntersectionPairs bounds the candidate pairs examined, 0 = unbounded
	MaxIntersectionPairs int
}

// DefaultOptions returns the analyzer defaults
func DefaultOptions() Options {
	return Options{
		InvertedNormalThreshold: 0,
		DegenerateEpsilon:       1e-10,
		SelfIntersection:        false,
		MaxIntersectionPairs:    2_000_000,
	}
}

// Analyze inspects the mesh and returns its defects: edge defects in edge
// order, then facet defects in facet order, then suspected intersections.
// An empty result means the mesh is watertight and consistent.
func Analyze(ctx context.Context, m *stl.Mesh, opts Options) ([]Defect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var defects []Defect

	for i, e := range m.Edges {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if d, ok := edgeDefect(m, e); ok {
			defects = append(defects, d)
		}
	}

	diag := m.BoundingBox().Diagonal()
	minArea := opts.DegenerateEpsilon * diag * diag
	degenerate := make([]bool, len(m.Facets))

	for i, f := range m.Facets {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		area := f.Area()
		if area == 0 || area < minArea {
			degenerate[i] = true
			defects = append(defects, Defect{
				Kind:     KindDegenerateFacet,
				Severity: KindDegenerateFacet.Severity(),
				Facet:    i,
				Message:  fmt.Sprintf("facet area %.3g is below %.3g", area, minArea),
			})
			continue
		}

		// the loader fills zero stored normals from the winding
		dot := f.CalculateNormal().Dot(f.Normal.Normalize())
		if dot < opts.InvertedNormalThreshold {
			defects = append(defects, Defect{
				Kind:     KindInvertedNormal,
				Severity: KindInvertedNormal.Severity(),
				Facet:    i,
				Message:  fmt.Sprintf("stored normal disagrees with vertex winding (dot %.3f)", dot),
			})
		}
	}

	if opts.SelfIntersection {
		hits, err := findIntersections(ctx, m, degenerate, opts.MaxIntersectionPairs)
		if err != nil {
			return nil, err
		}
		defects = append(defects, hits...)
	}

	return defects, nil
}

func edgeDefect(m *stl.Mesh, e stl.Edge) (Defect, bool) {
	facets := make([]int, len(e.Uses))
	for k, u := range e.Uses {
		facets[k] = u.Facet
	}
	loc := &EdgeLocation{From: m.Vertices[e.A], To: m.Vertices[e.B]}

	var kind Kind
	var msg string
	switch {
	case len(e.Uses) == 1:
		kind, msg = KindOpenBoundary, "edge is used by a single facet"
	case len(e.Uses) >= 3:
		kind, msg = KindNonManifoldEdge, fmt.Sprintf("edge is shared by %d facets", len(e.Uses))
	case e.Uses[0].Reversed == e.Uses[1].Reversed:
		kind, msg = KindInconsistentWinding, "adjacent facets traverse the edge in the same direction"
	default:
		return Defect{}, false
	}

	return Defect{
		Kind:     kind,
		Severity: kind.Severity(),
		Facet:    facets[0],
		Facets:   facets,
		Edge:     loc,
		Message:  msg,
	}, true
}

