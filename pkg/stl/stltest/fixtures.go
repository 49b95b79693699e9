// Package stltest builds small meshes for tests.
package stltest

import (
	"bytes"

	"github.com/philipparndt/stlcheck/pkg/geometry"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

// Box returns the 12 outward-wound triangles of an axis-aligned box.
// The two bottom (-Z) facets come first.
func Box(min, max geometry.Vector3) []geometry.Triangle {
	c := func(i, j, k int) geometry.Vector3 {
		v := min
		if i == 1 {
			v.X = max.X
		}
		if j == 1 {
			v.Y = max.Y
		}
		if k == 1 {
			v.Z = max.Z
		}
		return v
	}

	quads := [][4]geometry.Vector3{
		{c(0, 0, 0), c(0, 1, 0), c(1, 1, 0), c(1, 0, 0)}, // -Z
		{c(0, 0, 1), c(1, 0, 1), c(1, 1, 1), c(0, 1, 1)}, // +Z
		{c(0, 0, 0), c(1, 0, 0), c(1, 0, 1), c(0, 0, 1)}, // -Y
		{c(0, 1, 0), c(0, 1, 1), c(1, 1, 1), c(1, 1, 0)}, // +Y
		{c(0, 0, 0), c(0, 0, 1), c(0, 1, 1), c(0, 1, 0)}, // -X
		{c(1, 0, 0), c(1, 1, 0), c(1, 1, 1), c(1, 0, 1)}, // +X
	}

	tris := make([]geometry.Triangle, 0, 12)
	for _, q := range quads {
		for _, t := range [2][3]geometry.Vector3{{q[0], q[1], q[2]}, {q[0], q[2], q[3]}} {
			tri := geometry.NewTriangle(geometry.Vector3{}, t[0], t[1], t[2])
			tri.Normal = tri.CalculateNormal()
			tris = append(tris, tri)
		}
	}
	return tris
}

// Cube returns a unit cube with one corner at the origin
func Cube() []geometry.Triangle {
	return Box(geometry.Vector3{}, geometry.NewVector3(1, 1, 1))
}

// Slab returns a 20 x 10 x 2 box resting on its largest face
func Slab() []geometry.Triangle {
	return Box(geometry.Vector3{}, geometry.NewVector3(20, 10, 2))
}

// Rotate returns the triangles rotated by r
func Rotate(tris []geometry.Triangle, r geometry.Rotation) []geometry.Triangle {
	out := make([]geometry.Triangle, len(tris))
	for i, t := range tris {
		out[i] = t.Rotate(r)
	}
	return out
}

// Without returns a copy of tris with the facet at index removed
func Without(tris []geometry.Triangle, index int) []geometry.Triangle {
	out := make([]geometry.Triangle, 0, len(tris)-1)
	out = append(out, tris[:index]...)
	return append(out, tris[index+1:]...)
}

// Mesh welds the triangles into a mesh
func Mesh(tris []geometry.Triangle) *stl.Mesh {
	return stl.FromTriangles("test", tris)
}

// Binary encodes the triangles as binary STL
func Binary(tris []geometry.Triangle) []byte {
	var buf bytes.Buffer
	if err := stl.WriteBinary(&buf, Mesh(tris), geometry.IdentityRotation()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ASCII encodes the triangles as an ASCII STL solid
func ASCII(tris []geometry.Triangle) []byte {
	var buf bytes.Buffer
	if err := stl.WriteASCII(&buf, Mesh(tris), geometry.IdentityRotation()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
