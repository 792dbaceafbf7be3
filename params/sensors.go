package params

import "time"

// Source specs name where sensor data comes from:
//
//	sim                 synthetic data
//	push                HTTP ingest endpoints
//	replay:<path>       NDJSON file, "-" for stdin
//	nmea:<path>         NMEA sentences from a file (location only)
//	serial:<device>     NMEA sentences from a serial GPS (location only)
const (
	SourceSim    = "sim"
	SourcePush   = "push"
	SourceReplay = "replay"
	SourceNMEA   = "nmea"
	SourceSerial = "serial"
)

type AccelerometerConfig struct {
	Source string `mapstructure:"source" yaml:"source"`

	// Interval is the sampling period. 30 Hz by default.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// MeterLogInterval is how often sample rates are logged. Zero disables.
	MeterLogInterval time.Duration `mapstructure:"meter_log_interval" yaml:"meter_log_interval"`
}

func DefaultAccelerometerConfig() *AccelerometerConfig {
	return &AccelerometerConfig{
		Source:           SourceSim,
		Interval:         time.Second / 30,
		MeterLogInterval: time.Minute,
	}
}

type LocationConfig struct {
	Source string `mapstructure:"source" yaml:"source"`

	// Baud is the serial GPS baud rate.
	Baud int `mapstructure:"baud" yaml:"baud"`

	// PushBuffer is the capacity of the push ingest queue.
	PushBuffer int `mapstructure:"push_buffer" yaml:"push_buffer"`
}

func DefaultLocationConfig() *LocationConfig {
	return &LocationConfig{
		Source:     SourceSim,
		Baud:       9600,
		PushBuffer: 64,
	}
}
