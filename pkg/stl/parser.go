package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/stlcheck/pkg/geometry"
)

const (
	headerSize = 80
	countSize  = 4
	recordSize = 50
)

// ParseError describes input that could not be read as an STL mesh.
// It is a reportable outcome, not a program fault.
type ParseError struct {
	Line   int // 1-based line for ASCII input, 0 otherwise
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid STL (line %d): %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid STL: %s", e.Reason)
}

// IsParseError reports whether err is or wraps a *ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func parseErrorf(line int, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// LoadFile reads and parses an STL file.
// I/O errors are returned as is, malformed content as *ParseError.
func LoadFile(filename string) (*Mesh, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Load(data)
}

// LoadReader reads all of r and parses it as STL
func LoadReader(r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL data: %w", err)
	}
	return Load(data)
}

// Load parses binary or ASCII STL data. The binary layout is chosen when the
// length matches header + count + count*record exactly, otherwise the data
// must be ASCII.
func Load(data []byte) (*Mesh, error) {
	if isBinary(data) {
		return parseBinary(data)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) >= 5 && strings.EqualFold(string(trimmed[:5]), "solid") {
		return parseASCII(data)
	}
	if len(data) < headerSize+countSize {
		return nil, parseErrorf(0, "file too short for binary STL (%d bytes) and not ASCII", len(data))
	}
	count := binary.LittleEndian.Uint32(data[headerSize : headerSize+countSize])
	expected := uint64(headerSize+countSize) + uint64(count)*recordSize
	return nil, parseErrorf(0, "truncated or corrupt binary STL: header declares %d facets (%d bytes), file has %d bytes",
		count, expected, len(data))
}

func isBinary(data []byte) bool {
	if len(data) < headerSize+countSize {
		return false
	}
	count := binary.LittleEndian.Uint32(data[headerSize : headerSize+countSize])
	return uint64(len(data)) == uint64(headerSize+countSize)+uint64(count)*recordSize
}

// parseBinary parses a binary STL whose size has already been validated
func parseBinary(data []byte) (*Mesh, error) {
	name := strings.TrimSpace(string(bytes.TrimRight(data[:headerSize], "\x00")))
	count := int(binary.LittleEndian.Uint32(data[headerSize : headerSize+countSize]))
	if count == 0 {
		return nil, parseErrorf(0, "binary STL contains no facets")
	}

	b := newBuilder(name)
	offset := headerSize + countSize
	for i := 0; i < count; i++ {
		record := data[offset : offset+recordSize]
		var vs [4]geometry.Vector3
		for k := range vs {
			vs[k] = readVector(record[k*12:])
			if !vs[k].IsFinite() {
				return nil, parseErrorf(0, "facet %d has a non-finite coordinate", i)
			}
		}
		// the trailing uint16 attribute byte count is ignored
		b.addFacet(vs[0], vs[1], vs[2], vs[3])
		offset += recordSize
	}

	m := b.finish()
	m.Solids = []string{name}
	return m, nil
}

func readVector(buf []byte) geometry.Vector3 {
	return geometry.NewVector3(
		float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))),
	)
}

// asciiState is the position inside the solid/facet/loop nesting
type asciiState int

const (
	stateTop asciiState = iota
	stateSolid
	stateFacet
	stateLoop
	stateEndLoop
)

// parseASCII parses an ASCII STL with one or more solids
func parseASCII(data []byte) (*Mesh, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		b        *builder
		solids   []string
		state    = stateTop
		normal   geometry.Vector3
		vertices []geometry.Vector3
		lineNo   int
	)

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		keyword := strings.ToLower(fields[0])

		switch {
		case keyword == "solid" && state == stateTop:
			name := strings.Join(fields[1:], " ")
			if b == nil {
				b = newBuilder(name)
			}
			solids = append(solids, name)
			state = stateSolid

		case keyword == "endsolid" && state == stateSolid:
			state = stateTop

		case keyword == "facet" && state == stateSolid:
			if len(fields) != 5 || strings.ToLower(fields[1]) != "normal" {
				return nil, parseErrorf(lineNo, "expected 'facet normal nx ny nz'")
			}
			n, err := parseVector(fields[2:5], lineNo)
			if err != nil {
				return nil, err
			}
			normal = n
			vertices = vertices[:0]
			state = stateFacet

		case keyword == "outer" && state == stateFacet:
			if len(fields) != 2 || strings.ToLower(fields[1]) != "loop" {
				return nil, parseErrorf(lineNo, "expected 'outer loop'")
			}
			state = stateLoop

		case keyword == "vertex" && state == stateLoop:
			if len(fields) != 4 {
				return nil, parseErrorf(lineNo, "expected 'vertex x y z'")
			}
			if len(vertices) == 3 {
				return nil, parseErrorf(lineNo, "facet has more than 3 vertices")
			}
			v, err := parseVector(fields[1:4], lineNo)
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, v)

		case keyword == "endloop" && state == stateLoop:
			if len(vertices) != 3 {
				return nil, parseErrorf(lineNo, "facet has %d vertices, expected 3", len(vertices))
			}
			state = stateEndLoop

		case keyword == "endfacet" && state == stateEndLoop:
			b.addFacet(normal, vertices[0], vertices[1], vertices[2])
			state = stateSolid

		default:
			return nil, parseErrorf(lineNo, "unexpected keyword %q", fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, parseErrorf(lineNo, "error reading ASCII STL: %v", err)
	}
	if state != stateTop {
		return nil, parseErrorf(lineNo, "unexpected end of file, missing 'endsolid'")
	}
	if b == nil || len(b.mesh.Facets) == 0 {
		return nil, parseErrorf(0, "ASCII STL contains no facets")
	}

	m := b.finish()
	m.Solids = solids
	return m, nil
}

func parseVector(fields []string, line int) (geometry.Vector3, error) {
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return geometry.Vector3{}, parseErrorf(line, "invalid number %q", f)
		}
		c[i] = v
	}
	return geometry.NewVector3(c[0], c[1], c[2]), nil
}
