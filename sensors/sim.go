package sensors

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rotblauer/trailhud/common"
	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/types"
)

// SimAccelSource rocks a virtual vehicle in pitch and roll.
type SimAccelSource struct {
	PitchAmplitude float64 // degrees
	RollAmplitude  float64 // degrees
	PitchPeriod    time.Duration
	RollPeriod     time.Duration

	started time.Time
	now     func() time.Time
}

// NewSimAccelSource uses time.Now if now is nil.
func NewSimAccelSource(now func() time.Time) *SimAccelSource {
	if now == nil {
		now = time.Now
	}
	return &SimAccelSource{
		PitchAmplitude: 15,
		RollAmplitude:  25,
		PitchPeriod:    7 * time.Second,
		RollPeriod:     11 * time.Second,
		started:        now(),
		now:            now,
	}
}

// Attitude is the simulated pitch and roll at elapsed, in radians.
func (s *SimAccelSource) Attitude(elapsed time.Duration) (pitch, roll float64) {
	wave := func(amp float64, period time.Duration) float64 {
		if period <= 0 {
			return 0
		}
		rad := amp * math.Pi / 180
		return rad * math.Sin(2*math.Pi*elapsed.Seconds()/period.Seconds())
	}
	return wave(s.PitchAmplitude, s.PitchPeriod), wave(s.RollAmplitude, s.RollPeriod)
}

// SampleFor returns the raw reading, in g, of a device at pitch and roll.
// Raw readings point away from gravity; see orientation.GravityCorrect.
func SampleFor(pitch, roll float64) orientation.Vector {
	return orientation.Vector{
		X: -math.Cos(pitch) * math.Sin(roll),
		Y: -math.Cos(pitch) * math.Cos(roll),
		Z: math.Sin(pitch),
	}
}

func (s *SimAccelSource) Read() (orientation.Vector, error) {
	return SampleFor(s.Attitude(s.now().Sub(s.started))), nil
}

// SimLocationSource drives in a circle at constant speed, one fix per Interval.
type SimLocationSource struct {
	Center   orb.Point
	Radius   float64 // meters
	SpeedMS  float64
	Interval time.Duration

	mu      sync.Mutex
	started time.Time
	now     func() time.Time
	ticker  *time.Ticker
}

// NewSimLocationSource uses time.Now if now is nil.
func NewSimLocationSource(now func() time.Time) *SimLocationSource {
	if now == nil {
		now = time.Now
	}
	return &SimLocationSource{
		Center:   orb.Point{-109.5498, 38.5733}, // Moab
		Radius:   400,
		SpeedMS:  common.SpeedOfTrail,
		Interval: time.Second,
		started:  now(),
		now:      now,
	}
}

// At returns the fix for elapsed time into the drive.
func (s *SimLocationSource) At(at time.Time) types.Location {
	elapsed := at.Sub(s.started).Seconds()
	bearing := 0.0
	if s.Radius > 0 {
		bearing = math.Mod(elapsed*s.SpeedMS/s.Radius*180/math.Pi, 360)
	}
	pt := geo.PointAtBearingAndDistance(s.Center, bearing, s.Radius)
	return types.NewLocation(pt.Lat(), pt.Lon(), s.SpeedMS, at)
}

func (s *SimLocationSource) Next(ctx context.Context) (types.Location, error) {
	s.mu.Lock()
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.Interval)
	}
	ticker := s.ticker
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return types.Location{}, ctx.Err()
	case <-ticker.C:
	}
	return s.At(s.now()), nil
}

func (s *SimLocationSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}
