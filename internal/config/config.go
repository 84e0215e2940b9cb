// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for spbridge. Values are layered
// defaults -> config file -> environment -> CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Graph    GraphConfig    `toml:"graph"`
	Browse   BrowseConfig   `toml:"browse"`
	Storage  StorageConfig  `toml:"storage"`
	Transfer TransferConfig `toml:"transfer"`
	Logging  LoggingConfig  `toml:"logging"`
	Network  NetworkConfig  `toml:"network"`
	Server   ServerConfig   `toml:"server"`

	// Credentials only ever come from the environment; they are never read
	// from or written to the config file.
	AccessToken    string `toml:"-"`
	S3AccessKeyID  string `toml:"-"`
	S3SecretKey    string `toml:"-"`
	S3SessionToken string `toml:"-"`
}

// GraphConfig identifies the Microsoft Graph tenant and the token used to
// reach it.
type GraphConfig struct {
	BaseURL   string `toml:"base_url"`
	ClientID  string `toml:"client_id"`
	Tenant    string `toml:"tenant"`
	TokenPath string `toml:"token_path"`
	MaxSites  int    `toml:"max_sites"`
}

// BrowseConfig controls the navigator. Extensions and MimeTypes replace the
// built-in document allow-list when non-empty.
type BrowseConfig struct {
	DefaultDrive bool     `toml:"default_drive"`
	Extensions   []string `toml:"extensions"`
	MimeTypes    []string `toml:"mime_types"`
}

// StorageConfig is the S3 destination. Enabled is the gate that decides
// whether transfers are accepted at all.
type StorageConfig struct {
	Enabled   bool   `toml:"enabled"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
}

// TransferConfig bounds a transfer batch.
type TransferConfig struct {
	Workers        int    `toml:"workers"`
	MaxFileSize    string `toml:"max_file_size"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBaseDelay string `toml:"retry_base_delay"`
	FileTimeout    string `toml:"file_timeout"`
	BatchTimeout   string `toml:"batch_timeout"`
}

// LoggingConfig controls log output behavior: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior toward Graph.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
	MaxRetries     int    `toml:"max_retries"`
}

// ServerConfig controls `spbridge serve`.
type ServerConfig struct {
	Listen          string `toml:"listen"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from an explicit value.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	Listen     *string // serve --listen
}

// MaxFileSizeBytes returns the parsed max_file_size. Only call on a
// validated config.
func (t *TransferConfig) MaxFileSizeBytes() int64 {
	n, _ := ParseSize(t.MaxFileSize)
	return n
}

// RetryBaseDelayDuration returns the parsed retry_base_delay.
func (t *TransferConfig) RetryBaseDelayDuration() time.Duration {
	return mustDuration(t.RetryBaseDelay)
}

// FileTimeoutDuration returns the parsed file_timeout.
func (t *TransferConfig) FileTimeoutDuration() time.Duration {
	return mustDuration(t.FileTimeout)
}

// BatchTimeoutDuration returns the parsed batch_timeout.
func (t *TransferConfig) BatchTimeoutDuration() time.Duration {
	return mustDuration(t.BatchTimeout)
}

// ConnectTimeoutDuration returns the parsed connect_timeout.
func (n *NetworkConfig) ConnectTimeoutDuration() time.Duration {
	return mustDuration(n.ConnectTimeout)
}

// DataTimeoutDuration returns the parsed data_timeout.
func (n *NetworkConfig) DataTimeoutDuration() time.Duration {
	return mustDuration(n.DataTimeout)
}

// ShutdownTimeoutDuration returns the parsed shutdown_timeout.
func (s *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(s.ShutdownTimeout)
}

// mustDuration parses a duration that Validate already accepted.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
