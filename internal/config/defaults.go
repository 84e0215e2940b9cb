package config

// Default values for configuration options. These represent "layer 0" of
// the override chain and work without any config file.
const (
	defaultBaseURL         = "https://graph.microsoft.com/v1.0"
	defaultTenant          = "common"
	defaultMaxSites        = 500
	defaultRegion          = "us-east-1"
	defaultWorkers         = 4
	defaultMaxFileSize     = "100MiB"
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = "500ms"
	defaultFileTimeout     = "5m"
	defaultBatchTimeout    = "30m"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultConnectTimeout  = "10s"
	defaultDataTimeout     = "60s"
	defaultMaxRetries      = 5
	defaultListen          = "127.0.0.1:8089"
	defaultShutdownTimeout = "30s"
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset fields keep their
// defaults.
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			BaseURL:  defaultBaseURL,
			Tenant:   defaultTenant,
			MaxSites: defaultMaxSites,
		},
		Browse: BrowseConfig{
			DefaultDrive: true,
		},
		Storage: StorageConfig{
			Region: defaultRegion,
		},
		Transfer: TransferConfig{
			Workers:        defaultWorkers,
			MaxFileSize:    defaultMaxFileSize,
			RetryAttempts:  defaultRetryAttempts,
			RetryBaseDelay: defaultRetryBaseDelay,
			FileTimeout:    defaultFileTimeout,
			BatchTimeout:   defaultBatchTimeout,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
			MaxRetries:     defaultMaxRetries,
		},
		Server: ServerConfig{
			Listen:          defaultListen,
			ShutdownTimeout: defaultShutdownTimeout,
		},
	}
}
