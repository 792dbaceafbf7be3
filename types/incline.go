package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotblauer/trailhud/orientation"
)

// Incline is one inclinometer reading: the gravity-corrected acceleration
// vector it came from and the quantized attitude derived from it.
// Inclines are immutable once created.
type Incline struct {
	ID           string    `json:"id"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Z            float64   `json:"z"`
	PitchDegrees int       `json:"pitchDegrees"`
	RollDegrees  int       `json:"rollDegrees"`
	Time         time.Time `json:"time"`
}

// NewIncline pairs a vector with its attitude under a fresh ID.
func NewIncline(v orientation.Vector, a orientation.Attitude, at time.Time) Incline {
	return Incline{
		ID:           uuid.New().String(),
		X:            v.X,
		Y:            v.Y,
		Z:            v.Z,
		PitchDegrees: a.PitchDegrees,
		RollDegrees:  a.RollDegrees,
		Time:         at,
	}
}

func (in Incline) Kind() Kind {
	return KindIncline
}

func (in Incline) Vector() orientation.Vector {
	return orientation.Vector{X: in.X, Y: in.Y, Z: in.Z}
}

func (in Incline) Attitude() orientation.Attitude {
	return orientation.Attitude{PitchDegrees: in.PitchDegrees, RollDegrees: in.RollDegrees}
}
