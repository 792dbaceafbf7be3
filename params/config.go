package params

// Config is the whole daemon configuration.
type Config struct {
	DataDir string `mapstructure:"datadir" yaml:"datadir"`

	// Route, if set, starts tracking a named route at startup.
	Route string `mapstructure:"route" yaml:"route"`

	Estimator     *EstimatorConfig     `mapstructure:"estimator" yaml:"estimator"`
	Accelerometer *AccelerometerConfig `mapstructure:"accel" yaml:"accel"`
	Location      *LocationConfig      `mapstructure:"location" yaml:"location"`
	Cache         *CacheConfig         `mapstructure:"cache" yaml:"cache"`
	Sync          *SyncConfig          `mapstructure:"sync" yaml:"sync"`
	Influx        *InfluxConfig        `mapstructure:"influx" yaml:"influx"`
	Web           *WebDaemonConfig     `mapstructure:"web" yaml:"web"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:       DefaultDatadirRoot,
		Estimator:     DefaultEstimatorConfig(),
		Accelerometer: DefaultAccelerometerConfig(),
		Location:      DefaultLocationConfig(),
		Cache:         DefaultCacheConfig(),
		Sync:          DefaultSyncConfig(),
		Influx:        DefaultInfluxConfig(),
		Web:           DefaultWebDaemonConfig(),
	}
}

// DefaultTestConfig is DefaultConfig rooted at datadir,
// with synthetic sources and an ephemeral port.
func DefaultTestConfig(datadir string) *Config {
	c := DefaultConfig()
	c.DataDir = datadir
	c.Web = DefaultTestWebDaemonConfig()
	c.Accelerometer.MeterLogInterval = 0
	return c
}
