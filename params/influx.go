package params

import "time"

type InfluxConfig struct {
	// URL of the InfluxDB server. Empty disables export.
	URL    string `mapstructure:"url" yaml:"url"`
	Token  string `mapstructure:"token" yaml:"-" json:"-"`
	Org    string `mapstructure:"org" yaml:"org"`
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
}

func DefaultInfluxConfig() *InfluxConfig {
	return &InfluxConfig{
		Org:           "trailhud",
		Bucket:        "trailhud",
		FlushInterval: 10 * time.Second,
		BatchSize:     1_000,
	}
}
