package orientation

import (
	"math"

	"github.com/philipparndt/stlcheck/pkg/geometry"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

// bedTolerance is the height above the lowest vertex, relative to the
// bounding box diagonal, within which a vertex rests on the bed
const bedTolerance = 1e-5

// contactWeight scales the total surface area into the smoothing term of
// the cost ratio
const contactWeight = 0.01

// Score is the evaluated cost of one orientation
type Score struct {
	Cost     float64
	Overhang float64
	Contact  float64
}

// scorer evaluates rotations of a single mesh
type scorer struct {
	mesh      *stl.Mesh
	threshold float64
	bedTol    float64
	k         float64
	rotated   []geometry.Vector3
}

func newScorer(m *stl.Mesh, thresholdDegrees float64) *scorer {
	k := contactWeight * m.SurfaceArea()
	if k == 0 {
		k = 1
	}
	return &scorer{
		mesh:      m,
		threshold: thresholdDegrees,
		bedTol:    bedTolerance * m.BoundingBox().Diagonal(),
		k:         k,
		rotated:   make([]geometry.Vector3, len(m.Vertices)),
	}
}

// score returns the overhang cost of the mesh after applying r with +Z up.
// Facets tilted downward more than the threshold add their area weighted by
// how far past the threshold they lean. Downward facets lying on the bed add
// to Contact instead. Cost is (Overhang+k)/(Contact+k) so a larger bed
// contact is preferred when overhang is equal.
func (s *scorer) score(r geometry.Rotation) Score {
	minZ := math.MaxFloat64
	for i, v := range s.mesh.Vertices {
		rv := r.Apply(v)
		s.rotated[i] = rv
		if rv.Z < minZ {
			minZ = rv.Z
		}
	}
	bed := minZ + s.bedTol

	var overhang, contact float64
	for _, f := range s.mesh.Facets {
		a, b, c := s.rotated[f.Indices[0]], s.rotated[f.Indices[1]], s.rotated[f.Indices[2]]
		wn := b.Sub(a).Cross(c.Sub(a))
		length := wn.Length()
		if length == 0 {
			continue
		}
		area := length / 2
		nz := wn.Z / length
		if nz >= 0 {
			continue
		}

		if a.Z <= bed && b.Z <= bed && c.Z <= bed {
			contact += area
			continue
		}

		tilt := math.Asin(math.Min(1, -nz)) * 180 / math.Pi
		if tilt > s.threshold {
			overhang += area * (tilt - s.threshold) / (90 - s.threshold)
		}
	}

	return Score{
		Cost:     (overhang + s.k) / (contact + s.k),
		Overhang: overhang,
		Contact:  contact,
	}
}
