package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/philipparndt/stlcheck/pkg/geometry"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

// crossingEpsilon is the barycentric margin below which a contact counts as
// touching rather than crossing
const crossingEpsilon = 1e-9

type facetBox struct {
	facet int
	box   geometry.BoundingBox
}

// findIntersections runs sweep-and-prune over facet bounding boxes along X
// and tests the surviving pairs that share no vertex for edge/face
// crossings. Degenerate facets are skipped. At most maxPairs overlapping
// pairs are tested when maxPairs > 0.
func findIntersections(ctx context.Context, m *stl.Mesh, skip []bool, maxPairs int) ([]Defect, error) {
	diag := m.BoundingBox().Diagonal()
	slack := diag * 1e-9

	boxes := make([]facetBox, 0, len(m.Facets))
	for i, f := range m.Facets {
		if skip[i] {
			continue
		}
		boxes = append(boxes, facetBox{facet: i, box: f.Bounds()})
	}
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].box.Min.X < boxes[j].box.Min.X
	})

	var defects []Defect
	pairs, steps := 0, 0
	for i := range boxes {
		a := boxes[i]
		for j := i + 1; j < len(boxes) && boxes[j].box.Min.X <= a.box.Max.X+slack; j++ {
			steps++
			if steps%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			b := boxes[j]
			if !a.box.Overlaps(b.box, slack) {
				continue
			}
			fa, fb := m.Facets[a.facet], m.Facets[b.facet]
			if shareVertex(fa, fb) {
				continue
			}

			if maxPairs > 0 && pairs >= maxPairs {
				return sortIntersections(defects), nil
			}
			pairs++

			if trianglesCross(fa.Triangle, fb.Triangle) {
				lo, hi := a.facet, b.facet
				if lo > hi {
					lo, hi = hi, lo
				}
				defects = append(defects, Defect{
					Kind:     KindSelfIntersection,
					Severity: KindSelfIntersection.Severity(),
					Facet:    lo,
					Facets:   []int{lo, hi},
					Message:  fmt.Sprintf("facet %d appears to cross facet %d", lo, hi),
				})
			}
		}
	}

	return sortIntersections(defects), nil
}

func sortIntersections(defects []Defect) []Defect {
	sort.SliceStable(defects, func(i, j int) bool {
		if defects[i].Facets[0] != defects[j].Facets[0] {
			return defects[i].Facets[0] < defects[j].Facets[0]
		}
		return defects[i].Facets[1] < defects[j].Facets[1]
	})
	return defects
}

func shareVertex(a, b stl.Facet) bool {
	for _, x := range a.Indices {
		for _, y := range b.Indices {
			if x == y {
				return true
			}
		}
	}
	return false
}

// trianglesCross reports whether an edge of either triangle passes through
// the interior of the other
func trianglesCross(a, b geometry.Triangle) bool {
	return edgesCross(a, b) || edgesCross(b, a)
}

func edgesCross(edges, face geometry.Triangle) bool {
	vs := edges.Vertices()
	for k := 0; k < 3; k++ {
		if face.SegmentCrosses(vs[k], vs[(k+1)%3], crossingEpsilon) {
			return true
		}
	}
	return false
}
