package stl

import (
	"github.com/philipparndt/stlcheck/pkg/geometry"
)

// Facet is one triangle of a mesh together with the indices of its
// welded vertices in Mesh.Vertices.
type Facet struct {
	geometry.Triangle
	Indices [3]int
}

// EdgeUse records one facet traversing an edge. Reversed is set when the
// facet walks the edge from B to A.
type EdgeUse struct {
	Facet    int
	Reversed bool
}

// Edge is an undirected edge between two welded vertices, A < B.
type Edge struct {
	A, B int
	Uses []EdgeUse
}

// IsManifold reports whether exactly two facets share the edge and they
// traverse it in opposite directions.
func (e Edge) IsManifold() bool {
	return len(e.Uses) == 2 && e.Uses[0].Reversed != e.Uses[1].Reversed
}

// IsBoundary reports whether only one facet uses the edge
func (e Edge) IsBoundary() bool {
	return len(e.Uses) == 1
}

type edgeKey struct {
	a, b int
}

// Mesh is a triangulated surface with welded vertices and a fixed edge
// adjacency. A Mesh is built by the loader and must not be modified
// afterwards.
type Mesh struct {
	Name string
	// Solids lists solid names in file order. Binary files hold one solid.
	Solids   []string
	Vertices []geometry.Vector3
	Facets   []Facet
	Edges    []Edge

	edgeIndex map[edgeKey]int
}

// builder welds vertices by exact coordinate equality while facets are added
type builder struct {
	mesh   *Mesh
	welded map[geometry.Vector3]int
}

func newBuilder(name string) *builder {
	return &builder{
		mesh:   &Mesh{Name: name},
		welded: make(map[geometry.Vector3]int),
	}
}

func (b *builder) vertex(v geometry.Vector3) int {
	if idx, ok := b.welded[v]; ok {
		return idx
	}
	idx := len(b.mesh.Vertices)
	b.mesh.Vertices = append(b.mesh.Vertices, v)
	b.welded[v] = idx
	return idx
}

// addFacet appends a facet. A zero stored normal is replaced by the
// winding normal.
func (b *builder) addFacet(normal geometry.Vector3, v1, v2, v3 geometry.Vector3) {
	tri := geometry.NewTriangle(normal, v1, v2, v3)
	if normal.IsZero() {
		tri.Normal = tri.CalculateNormal()
	}
	b.mesh.Facets = append(b.mesh.Facets, Facet{
		Triangle: tri,
		Indices:  [3]int{b.vertex(v1), b.vertex(v2), b.vertex(v3)},
	})
}

// finish builds the edge adjacency and returns the mesh
func (b *builder) finish() *Mesh {
	m := b.mesh
	m.edgeIndex = make(map[edgeKey]int, len(m.Facets)*3/2)
	for fi, f := range m.Facets {
		for k := 0; k < 3; k++ {
			from, to := f.Indices[k], f.Indices[(k+1)%3]
			if from == to {
				continue
			}
			key, reversed := edgeKey{from, to}, false
			if from > to {
				key, reversed = edgeKey{to, from}, true
			}
			idx, ok := m.edgeIndex[key]
			if !ok {
				idx = len(m.Edges)
				m.Edges = append(m.Edges, Edge{A: key.a, B: key.b})
				m.edgeIndex[key] = idx
			}
			m.Edges[idx].Uses = append(m.Edges[idx].Uses, EdgeUse{Facet: fi, Reversed: reversed})
		}
	}
	return m
}

// FromTriangles builds a mesh from raw triangles, welding vertices and
// computing the edge adjacency exactly as the loader does.
func FromTriangles(name string, triangles []geometry.Triangle) *Mesh {
	b := newBuilder(name)
	for _, t := range triangles {
		b.addFacet(t.Normal, t.V1, t.V2, t.V3)
	}
	m := b.finish()
	m.Solids = []string{name}
	return m
}

// FacetCount returns the number of facets in the mesh
func (m *Mesh) FacetCount() int {
	return len(m.Facets)
}

// Edge looks up the edge between two vertex indices in either order
func (m *Mesh) Edge(a, b int) (Edge, bool) {
	if a > b {
		a, b = b, a
	}
	idx, ok := m.edgeIndex[edgeKey{a, b}]
	if !ok {
		return Edge{}, false
	}
	return m.Edges[idx], true
}

// Triangles returns the facet triangles in mesh order
func (m *Mesh) Triangles() []geometry.Triangle {
	out := make([]geometry.Triangle, len(m.Facets))
	for i, f := range m.Facets {
		out[i] = f.Triangle
	}
	return out
}

// BoundingBox calculates the bounding box of the entire mesh
func (m *Mesh) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, v := range m.Vertices {
		bbox.Extend(v)
	}
	return bbox
}

// SurfaceArea calculates the total surface area of the mesh
func (m *Mesh) SurfaceArea() float64 {
	totalArea := 0.0
	for _, f := range m.Facets {
		totalArea += f.Area()
	}
	return totalArea
}
