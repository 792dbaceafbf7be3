package params

type WebDaemonConfig struct {
	ListenerConfig `mapstructure:",squash" yaml:",inline"`

	// Token guards ingest and tracking endpoints.
	// Empty allows all requests.
	Token string `mapstructure:"token" yaml:"-" json:"-"`

	// AllowedOrigins for CORS. Empty allows all.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// RecentLimit is how many of the most recent records /locations and
	// /inclines return when the request has no limit. Zero returns all.
	RecentLimit int `mapstructure:"recent_limit" yaml:"recent_limit"`
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:8080",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: DefaultWebListenerConfig(),
		RecentLimit:    1_000,
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:0",
		},
		RecentLimit: 1_000,
	}
}
