package common

// All units are metric unless named otherwise:
// - Speed is in m/s
// - Distance is in meters
// - Acceleration is in m/s^2

// MPHPerMS converts meters per second to miles per hour.
const MPHPerMS = 2.23694

// StandardGravity is the local gravitational constant used for sign-correcting
// accelerometer readings reported in g.
const StandardGravity = 9.81

// SpeedOfTrail is a typical off-road cruising speed, 20 mph.
const SpeedOfTrail = 8.94

// SpeedMPH converts a speed in m/s to mph.
// Negative speeds (GPS noise, invalid fixes) pass through unchanged;
// callers wanting a physical floor must clamp.
func SpeedMPH(speedMS float64) float64 {
	return speedMS * MPHPerMS
}
