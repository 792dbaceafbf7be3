package params

import "time"

type CacheConfig struct {
	// LatestInclineTTL is how long the last incline is shown before the gauge
	// reads as empty.
	LatestInclineTTL time.Duration `mapstructure:"latest_incline_ttl" yaml:"latest_incline_ttl"`

	// LatestLocationTTL is how long the last fix is shown; GPS is slower.
	LatestLocationTTL time.Duration `mapstructure:"latest_location_ttl" yaml:"latest_location_ttl"`

	// DedupeSize is the LRU capacity used to drop duplicate location fixes.
	DedupeSize int `mapstructure:"dedupe_size" yaml:"dedupe_size"`
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		LatestInclineTTL:  5 * time.Second,
		LatestLocationTTL: 30 * time.Second,
		DedupeSize:        10_000,
	}
}
