package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/stlcheck/pkg/geometry"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

// EdgeInfo describes one welded edge of the mesh
type EdgeInfo struct {
	Start  geometry.Vector3 `json:"start" yaml:"start"`
	End    geometry.Vector3 `json:"end" yaml:"end"`
	Length float64          `json:"length" yaml:"length"`
	Facets int              `json:"facets" yaml:"facets"`
}

// MeasurementResult contains various measurements of a mesh
type MeasurementResult struct {
	BoundingBox      geometry.BoundingBox `json:"bounding_box" yaml:"bounding_box"`
	Dimensions       geometry.Vector3     `json:"dimensions" yaml:"dimensions"`
	Volume           float64              `json:"volume" yaml:"volume"`
	SurfaceArea      float64              `json:"surface_area" yaml:"surface_area"`
	FacetCount       int                  `json:"facet_count" yaml:"facet_count"`
	VertexCount      int                  `json:"vertex_count" yaml:"vertex_count"`
	EdgeCount        int                  `json:"edge_count" yaml:"edge_count"`
	BoundaryEdges    int                  `json:"boundary_edges" yaml:"boundary_edges"`
	NonManifoldEdges int                  `json:"non_manifold_edges" yaml:"non_manifold_edges"`
	SolidCount       int                  `json:"solid_count" yaml:"solid_count"`
	MinEdgeLength    float64              `json:"min_edge_length" yaml:"min_edge_length"`
	MaxEdgeLength    float64              `json:"max_edge_length" yaml:"max_edge_length"`
	AvgEdgeLength    float64              `json:"avg_edge_length" yaml:"avg_edge_length"`
}

// Measure computes size and topology statistics of a mesh. Volume is the
// enclosed volume by the divergence theorem and is only meaningful for a
// closed, consistently wound mesh.
func Measure(m *stl.Mesh) *MeasurementResult {
	result := &MeasurementResult{
		BoundingBox: m.BoundingBox(),
		SurfaceArea: m.SurfaceArea(),
		FacetCount:  m.FacetCount(),
		VertexCount: len(m.Vertices),
		EdgeCount:   len(m.Edges),
		SolidCount:  len(m.Solids),
	}
	result.Dimensions = result.BoundingBox.Size()

	signed := 0.0
	for _, f := range m.Facets {
		signed += f.V1.Dot(f.V2.Cross(f.V3))
	}
	result.Volume = math.Abs(signed) / 6.0

	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0
	for _, e := range m.Edges {
		switch {
		case e.IsBoundary():
			result.BoundaryEdges++
		case len(e.Uses) > 2:
			result.NonManifoldEdges++
		}

		length := m.Vertices[e.A].Distance(m.Vertices[e.B])
		totalLength += length
		if length < minLength {
			minLength = length
		}
		if length > maxLength {
			maxLength = length
		}
	}

	if result.EdgeCount > 0 {
		result.MinEdgeLength = minLength
		result.MaxEdgeLength = maxLength
		result.AvgEdgeLength = totalLength / float64(result.EdgeCount)
	}

	return result
}

// Edges returns every welded edge of the mesh in adjacency order
func Edges(m *stl.Mesh) []EdgeInfo {
	edges := make([]EdgeInfo, len(m.Edges))
	for i, e := range m.Edges {
		start, end := m.Vertices[e.A], m.Vertices[e.B]
		edges[i] = EdgeInfo{Start: start, End: end, Length: start.Distance(end), Facets: len(e.Uses)}
	}
	return edges
}

// FindLongestEdges returns the N longest edges in the mesh
func FindLongestEdges(m *stl.Mesh, count int) []EdgeInfo {
	edges := Edges(m)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Length > edges[j].Length
	})
	if count > len(edges) {
		count = len(edges)
	}
	return edges[:count]
}

// FindShortestEdges returns the N shortest edges in the mesh
func FindShortestEdges(m *stl.Mesh, count int) []EdgeInfo {
	edges := Edges(m)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Length < edges[j].Length
	})
	if count > len(edges) {
		count = len(edges)
	}
	return edges[:count]
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.6f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
