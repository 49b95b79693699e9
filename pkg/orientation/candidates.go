package orientation

import (
	"math"
	"sort"

	"github.com/philipparndt/stlcheck/pkg/geometry"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

// Source names where a candidate orientation came from
type Source string

const (
	SourceIdentity    Source = "identity"
	SourceFacetNormal Source = "facet-normal"
	SourceSampled     Source = "sampled"
)

// minFacetsForClusters is the facet count below which sphere samples are
// added to the normal clusters
const minFacetsForClusters = 4

// normalGrid is the quantization step count per unit used to bucket normals
const normalGrid = 1000

// Candidate is one orientation considered for printing
type Candidate struct {
	Rotation geometry.Rotation `json:"rotation" yaml:"rotation"`
	// Down is the mesh-frame direction the rotation places on the bed
	Down         geometry.Vector3 `json:"down" yaml:"down"`
	Cost         float64          `json:"cost" yaml:"cost"`
	Overhang     float64          `json:"overhang" yaml:"overhang"`
	Contact      float64          `json:"contact" yaml:"contact"`
	Source       Source           `json:"source" yaml:"source"`
	AngleDegrees float64          `json:"angle_degrees" yaml:"angle_degrees"`
}

func newCandidate(down geometry.Vector3, source Source) Candidate {
	rot := geometry.RotationBetween(down, geometry.Down)
	return Candidate{
		Rotation:     rot,
		Down:         down,
		Source:       source,
		AngleDegrees: degrees(rot.Angle()),
	}
}

type normalKey struct {
	x, y, z int64
}

type cluster struct {
	sum  geometry.Vector3
	area float64
}

// normalClusters groups facets by quantized unit normal. The result is in
// first-seen order, stably sorted by descending total area.
func normalClusters(m *stl.Mesh) []cluster {
	index := make(map[normalKey]int)
	var clusters []cluster
	for _, f := range m.Facets {
		wn := f.WindingNormal()
		length := wn.Length()
		if length == 0 {
			continue
		}
		n := wn.Mul(1 / length)
		key := normalKey{
			x: int64(math.Round(n.X * normalGrid)),
			y: int64(math.Round(n.Y * normalGrid)),
			z: int64(math.Round(n.Z * normalGrid)),
		}
		area := length / 2
		i, ok := index[key]
		if !ok {
			i = len(clusters)
			index[key] = i
			clusters = append(clusters, cluster{})
		}
		clusters[i].sum = clusters[i].sum.Add(n.Mul(area))
		clusters[i].area += area
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].area > clusters[j].area
	})
	return clusters
}

// fibonacciSphere returns n roughly evenly spread unit directions
func fibonacciSphere(n int) []geometry.Vector3 {
	golden := math.Pi * (3 - math.Sqrt(5))
	dirs := make([]geometry.Vector3, n)
	for i := 0; i < n; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		dirs[i] = geometry.NewVector3(r*math.Cos(phi), r*math.Sin(phi), z)
	}
	return dirs
}

// generate returns the unscored candidates in stable order: identity, then
// normal clusters, then sphere samples when the mesh is too small to derive
// clusters from. Near duplicates are dropped and the list is capped.
func (o *Optimizer) generate(m *stl.Mesh) []Candidate {
	identity := Candidate{
		Rotation: geometry.IdentityRotation(),
		Down:     geometry.Down,
		Source:   SourceIdentity,
	}
	out := []Candidate{identity}
	dedupe := o.opts.DedupeToleranceDegrees * math.Pi / 180

	add := func(c Candidate) bool {
		if len(out) >= o.opts.MaxCandidates {
			return false
		}
		for _, existing := range out {
			if existing.Rotation.AngleTo(c.Rotation) < dedupe {
				return true
			}
		}
		out = append(out, c)
		return true
	}

	clusters := normalClusters(m)
	for _, c := range clusters {
		dir := c.sum.Normalize()
		if dir.IsZero() {
			continue
		}
		if !add(newCandidate(dir, SourceFacetNormal)) {
			return out
		}
	}

	if len(clusters) == 0 || m.FacetCount() < minFacetsForClusters {
		for _, dir := range fibonacciSphere(o.opts.SampleCount) {
			if !add(newCandidate(dir, SourceSampled)) {
				return out
			}
		}
	}

	return out
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
