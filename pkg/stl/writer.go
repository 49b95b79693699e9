package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/philipparndt/stlcheck/pkg/geometry"
)

// WriteBinary encodes the mesh as binary STL with every facet rotated by rot.
// Normals are written as unit winding normals of the rotated facets.
func WriteBinary(w io.Writer, m *Mesh, rot geometry.Rotation) error {
	bw := bufio.NewWriter(w)

	var header [headerSize]byte
	copy(header[:], m.Name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var count [countSize]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(m.Facets)))
	if _, err := bw.Write(count[:]); err != nil {
		return fmt.Errorf("failed to write facet count: %w", err)
	}

	var record [recordSize]byte
	for i, f := range m.Facets {
		t := f.Triangle.Rotate(rot)
		putVector(record[0:], t.CalculateNormal())
		putVector(record[12:], t.V1)
		putVector(record[24:], t.V2)
		putVector(record[36:], t.V3)
		binary.LittleEndian.PutUint16(record[48:], 0)
		if _, err := bw.Write(record[:]); err != nil {
			return fmt.Errorf("failed to write facet %d: %w", i, err)
		}
	}

	return bw.Flush()
}

func putVector(buf []byte, v geometry.Vector3) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(v.Z)))
}

// WriteASCII encodes the mesh as a single ASCII solid rotated by rot
func WriteASCII(w io.Writer, m *Mesh, rot geometry.Rotation) error {
	bw := bufio.NewWriter(w)
	name := m.Name
	if name == "" {
		name = "mesh"
	}

	fmt.Fprintf(bw, "solid %s\n", name)
	for _, f := range m.Facets {
		t := f.Triangle.Rotate(rot)
		n := t.CalculateNormal()
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", n.X, n.Y, n.Z)
		fmt.Fprintln(bw, "    outer loop")
		for _, v := range t.Vertices() {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v.X, v.Y, v.Z)
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)

	return bw.Flush()
}
