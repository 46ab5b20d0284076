package mastodon

// Config holds configuration for the Mastodon server connection.
type Config struct {
	// Host is the base URL of the Mastodon server, e.g. https://mastodon.example.
	Host string `mapstructure:"host" default:""`
	// TimeoutSeconds is the per-request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
