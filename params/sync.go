package params

import "time"

type SyncConfig struct {
	// URL is the collector base URL, eg. http://localhost:3000/.
	// Empty disables sync.
	URL string `mapstructure:"url" yaml:"url"`

	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Concurrency caps in-flight posts. Locations arriving while
	// all slots are busy are dropped.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		URL:         "",
		Timeout:     20 * time.Second,
		Concurrency: 4,
	}
}

const SyncLocationPath = "location/"
