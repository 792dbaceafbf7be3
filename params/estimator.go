package params

import "github.com/rotblauer/trailhud/common"

type EstimatorConfig struct {
	// Step is the angular resolution, in degrees, pitch and roll are rounded to.
	Step float64 `mapstructure:"step" yaml:"step"`

	// Gravity scales raw accelerometer readings (in g) to m/s^2.
	// Readings are multiplied by -Gravity.
	Gravity float64 `mapstructure:"gravity" yaml:"gravity"`
}

func DefaultEstimatorConfig() *EstimatorConfig {
	return &EstimatorConfig{
		Step:    5,
		Gravity: common.StandardGravity,
	}
}
