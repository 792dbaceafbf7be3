package orientation

import (
	"math"

	"github.com/rotblauer/trailhud/common"
)

// Vector is a 3-axis acceleration sample along the device's local axes.
// Raw sensor samples are in g; gravity-corrected samples are in m/s^2.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GravityCorrect scales a raw reading (in g) by the negative of gravity,
// turning it into a tilt-from-level vector.
func GravityCorrect(raw Vector, gravity float64) Vector {
	return Vector{
		X: raw.X * -gravity,
		Y: raw.Y * -gravity,
		Z: raw.Z * -gravity,
	}
}

// Norm is the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector in the direction of v.
// It returns ok=false, and a zero vector, for a zero-length or non-finite
// input; no division happens in that case.
func (v Vector) Normalize() (unit Vector, ok bool) {
	n := v.Norm()
	if n == 0 || !common.IsFinite(n) {
		return Vector{}, false
	}
	return Vector{X: v.X / n, Y: v.Y / n, Z: v.Z / n}, true
}
