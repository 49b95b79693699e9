package geometry

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation is a rigid rotation about the origin, stored as a unit quaternion.
type Rotation struct {
	q r3.Rotation
}

// Quaternion is the serializable form of a Rotation. W is the scalar part.
type Quaternion struct {
	W float64 `json:"w" yaml:"w"`
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// IdentityRotation returns the rotation that leaves every vector unchanged
func IdentityRotation() Rotation {
	return Rotation{q: r3.Rotation{Real: 1}}
}

// NewRotation creates a rotation of angle radians about axis.
// A zero axis or zero angle yields the identity.
func NewRotation(axis Vector3, angle float64) Rotation {
	if angle == 0 || axis.IsZero() {
		return IdentityRotation()
	}
	return Rotation{q: r3.NewRotation(angle, axis.Normalize().r3())}
}

// RotationBetween returns the smallest rotation taking direction from onto
// direction to. Opposite directions rotate by pi about a fixed perpendicular
// so the result is deterministic.
func RotationBetween(from, to Vector3) Rotation {
	a, b := from.Normalize(), to.Normalize()
	if a.IsZero() || b.IsZero() {
		return IdentityRotation()
	}
	d := a.Dot(b)
	switch {
	case d >= 1-1e-12:
		return IdentityRotation()
	case d <= -1+1e-12:
		axis := a.Cross(UnitX)
		if axis.Length() < 1e-6 {
			axis = a.Cross(UnitY)
		}
		return NewRotation(axis, math.Pi)
	}
	return NewRotation(a.Cross(b), math.Acos(d))
}

// Apply rotates v
func (r Rotation) Apply(v Vector3) Vector3 {
	if r.IsIdentity() {
		return v
	}
	return fromR3(r.q.Rotate(v.r3()))
}

// IsIdentity reports whether the rotation is exactly the identity
func (r Rotation) IsIdentity() bool {
	n := quat.Number(r.q)
	return n.Imag == 0 && n.Jmag == 0 && n.Kmag == 0
}

// Then returns the rotation that applies r first and next afterwards
func (r Rotation) Then(next Rotation) Rotation {
	return Rotation{q: r3.Rotation(quat.Mul(quat.Number(next.q), quat.Number(r.q)))}
}

// Angle returns the rotation angle in radians, in [0, pi]
func (r Rotation) Angle() float64 {
	return 2 * math.Acos(clamp(math.Abs(quat.Number(r.q).Real), 0, 1))
}

// AngleTo returns the angle in radians of the rotation between r and other
func (r Rotation) AngleTo(other Rotation) float64 {
	rel := quat.Mul(quat.Conj(quat.Number(r.q)), quat.Number(other.q))
	return 2 * math.Acos(clamp(math.Abs(rel.Real), 0, 1))
}

// Quaternion returns the components of the rotation
func (r Rotation) Quaternion() Quaternion {
	n := quat.Number(r.q)
	return Quaternion{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

// MarshalJSON encodes the rotation as its quaternion components
func (r Rotation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Quaternion())
}

// MarshalYAML encodes the rotation as its quaternion components
func (r Rotation) MarshalYAML() (interface{}, error) {
	return r.Quaternion(), nil
}
