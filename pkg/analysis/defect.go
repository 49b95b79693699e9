package analysis

import (
	"fmt"
	"strings"

	"github.com/philipparndt/stlcheck/pkg/geometry"
)

// Kind identifies a structural defect class
type Kind string

const (
	KindNonManifoldEdge     Kind = "non-manifold-edge"
	KindOpenBoundary        Kind = "open-boundary"
	KindDegenerateFacet     Kind = "degenerate-facet"
	KindInvertedNormal      Kind = "inverted-normal"
	KindSelfIntersection    Kind = "self-intersection-suspected"
	KindInconsistentWinding Kind = "inconsistent-winding"
)

// Kinds lists every defect kind in report order
var Kinds = []Kind{
	KindOpenBoundary,
	KindNonManifoldEdge,
	KindInconsistentWinding,
	KindDegenerateFacet,
	KindInvertedNormal,
	KindSelfIntersection,
}

// Severity returns the severity a defect of this kind is reported with.
// Edge topology faults break watertightness and are errors.
func (k Kind) Severity() Severity {
	switch k {
	case KindOpenBoundary, KindNonManifoldEdge:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Severity is an ordered outcome level: ok < warning < error
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses "ok", "warning" or "error", ignoring case
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok":
		return SeverityOK, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityOK, fmt.Errorf("unknown severity %q", s)
}

// MarshalText encodes the severity by name for JSON and YAML
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MaxSeverity returns the highest of the given severities, SeverityOK when empty
func MaxSeverity(levels ...Severity) Severity {
	highest := SeverityOK
	for _, l := range levels {
		if l > highest {
			highest = l
		}
	}
	return highest
}

// EdgeLocation holds the endpoint coordinates of an edge
type EdgeLocation struct {
	From geometry.Vector3 `json:"from" yaml:"from"`
	To   geometry.Vector3 `json:"to" yaml:"to"`
}

// Defect is one structural problem found in a mesh
type Defect struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
	// Facet is the primary facet index, -1 when the defect has none
	Facet int `json:"facet" yaml:"facet"`
	// Facets lists every facet involved, for edge defects the incident
	// facets and for intersections the crossing pair.
	Facets  []int         `json:"facets,omitempty" yaml:"facets,omitempty"`
	Edge    *EdgeLocation `json:"edge,omitempty" yaml:"edge,omitempty"`
	Message string        `json:"message" yaml:"message"`
}

func (d Defect) String() string {
	return fmt.Sprintf("%s [%s] facet %d: %s", d.Kind, d.Severity, d.Facet, d.Message)
}

// Watertight reports whether the defects contain no open boundary and no
// non-manifold edge
func Watertight(defects []Defect) bool {
	for _, d := range defects {
		if d.Kind == KindOpenBoundary || d.Kind == KindNonManifoldEdge {
			return false
		}
	}
	return true
}

// Summarize counts defects per kind. Kinds without defects are omitted.
func Summarize(defects []Defect) map[Kind]int {
	counts := make(map[Kind]int)
	for _, d := range defects {
		counts[d.Kind]++
	}
	return counts
}

// HighestSeverity returns the highest severity among defects
func HighestSeverity(defects []Defect) Severity {
	highest := SeverityOK
	for _, d := range defects {
		if d.Severity > highest {
			highest = d.Severity
		}
	}
	return highest
}
