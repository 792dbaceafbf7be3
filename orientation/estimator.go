// Package orientation derives device pitch and roll from a single
// accelerometer sample.
//
// Angle convention: with the gravity-corrected vector pointing along +Y
// (device standing upright, screen facing the driver) both angles are zero.
// Pitch is the tilt of the Z axis out of that plane; laying the device flat on
// its back reads -90. Roll is the rotation of gravity within the XY plane.
//
// Everything here is pure and safe for concurrent use.
package orientation

import (
	"math"

	"github.com/rotblauer/trailhud/common"
)

// DefaultStep is the default quantization step in degrees.
const DefaultStep = 5.0

// Attitude is a quantized pitch/roll pair in degrees.
type Attitude struct {
	PitchDegrees int `json:"pitchDegrees"`
	RollDegrees  int `json:"rollDegrees"`
}

// Estimator converts acceleration vectors to attitudes rounded to Step.
type Estimator struct {
	// Step is the angular resolution in degrees. Values <= 0 mean 1.
	Step float64
}

// NewEstimator returns an Estimator rounding to step degrees.
func NewEstimator(step float64) *Estimator {
	return &Estimator{Step: step}
}

// Estimate converts a gravity-corrected vector to a quantized attitude.
// Degenerate vectors (zero length, NaN, Inf) yield a zero attitude.
func (e *Estimator) Estimate(v Vector) Attitude {
	pitch, roll, ok := PitchRoll(v)
	if !ok {
		return Attitude{}
	}
	return Attitude{
		PitchDegrees: Degrees(pitch, e.Step),
		RollDegrees:  Degrees(roll, e.Step),
	}
}

// PitchRoll returns raw pitch and roll in radians.
// ok is false when v cannot be normalized.
func PitchRoll(v Vector) (pitch, roll float64, ok bool) {
	n, ok := v.Normalize()
	if !ok {
		return 0, 0, false
	}
	pitch = math.Acos(n.Z) - math.Pi/2
	roll = wrapRoll(math.Atan2(n.X, n.Y))
	return pitch, roll, true
}

// wrapRoll folds angles above Pi back by a full turn.
// Only the upper bound is corrected; Atan2 never returns below -Pi.
func wrapRoll(roll float64) float64 {
	if roll > math.Pi {
		roll -= 2 * math.Pi
	}
	return roll
}

// Degrees converts radians to degrees quantized to step.
// Exactly zero and NaN inputs return 0 without rounding.
func Degrees(radians, step float64) int {
	if radians == 0 || math.IsNaN(radians) {
		return 0
	}
	return Quantize(radians*(180/math.Pi), step)
}

// Quantize rounds degrees to the nearest multiple of step, half away from zero.
// A step <= 0 rounds to whole degrees.
func Quantize(degrees, step float64) int {
	if step <= 0 {
		step = 1
	}
	return int(step * float64(common.Round(degrees/step)))
}
