package geometry

import "math"

// Triangle represents a triangular facet in 3D space.
// Normal is the normal as stored by the source, it is not required to be unit length.
type Triangle struct {
	Normal     Vector3
	V1, V2, V3 Vector3
}

// NewTriangle creates a new triangle
func NewTriangle(normal, v1, v2, v3 Vector3) Triangle {
	return Triangle{
		Normal: normal,
		V1:     v1,
		V2:     v2,
		V3:     v3,
	}
}

// Vertices returns the three corners in winding order
func (t Triangle) Vertices() [3]Vector3 {
	return [3]Vector3{t.V1, t.V2, t.V3}
}

// WindingNormal returns the unnormalized right-hand-rule normal.
// Its length is twice the triangle area.
func (t Triangle) WindingNormal() Vector3 {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	return edge1.Cross(edge2)
}

// CalculateNormal computes the unit normal vector from the vertex winding
func (t Triangle) CalculateNormal() Vector3 {
	return t.WindingNormal().Normalize()
}

// Area returns the surface area of the triangle
func (t Triangle) Area() float64 {
	return t.WindingNormal().Length() / 2.0
}

// EdgeLengths returns the lengths of all three edges
func (t Triangle) EdgeLengths() [3]float64 {
	return [3]float64{
		t.V1.Distance(t.V2),
		t.V2.Distance(t.V3),
		t.V3.Distance(t.V1),
	}
}

// Perimeter returns the total length of all edges
func (t Triangle) Perimeter() float64 {
	lengths := t.EdgeLengths()
	return lengths[0] + lengths[1] + lengths[2]
}

// Center returns the centroid of the triangle
func (t Triangle) Center() Vector3 {
	return Vector3{
		X: (t.V1.X + t.V2.X + t.V3.X) / 3.0,
		Y: (t.V1.Y + t.V2.Y + t.V3.Y) / 3.0,
		Z: (t.V1.Z + t.V2.Z + t.V3.Z) / 3.0,
	}
}

// Bounds returns the axis-aligned box enclosing the triangle
func (t Triangle) Bounds() BoundingBox {
	return BoundingBox{
		Min: t.V1.Min(t.V2).Min(t.V3),
		Max: t.V1.Max(t.V2).Max(t.V3),
	}
}

// Rotate returns the triangle with vertices and stored normal rotated by r
func (t Triangle) Rotate(r Rotation) Triangle {
	return Triangle{
		Normal: r.Apply(t.Normal),
		V1:     r.Apply(t.V1),
		V2:     r.Apply(t.V2),
		V3:     r.Apply(t.V3),
	}
}

// SegmentCrosses reports whether the open segment p-q passes through the
// interior of the triangle. Contacts within eps of the segment ends or the
// triangle border are not counted, and coplanar segments never cross.
func (t Triangle) SegmentCrosses(p, q Vector3, eps float64) bool {
	dir := q.Sub(p)
	e1 := t.V2.Sub(t.V1)
	e2 := t.V3.Sub(t.V1)
	h := dir.Cross(e2)
	det := e1.Dot(h)
	if math.Abs(det) <= 1e-12*dir.Length()*e1.Length()*e2.Length() {
		return false
	}
	inv := 1.0 / det
	s := p.Sub(t.V1)
	u := s.Dot(h) * inv
	if u <= eps || u >= 1-eps {
		return false
	}
	qv := s.Cross(e1)
	v := dir.Dot(qv) * inv
	if v <= eps || u+v >= 1-eps {
		return false
	}
	k := e2.Dot(qv) * inv
	return k > eps && k < 1-eps
}
