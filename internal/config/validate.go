package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minTransferWorkers = 1
	maxTransferWorkers = 64
	maxRetryAttempts   = 10
	maxNetworkRetries  = 10
	minMaxSites        = 1
	minRetryBaseDelay  = 10 * time.Millisecond
	minFileTimeout     = 1 * time.Second
	minShutdownTimeout = 1 * time.Second
	minConnectTimeout  = 1 * time.Second
	minDataTimeout     = 5 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateGraph(&cfg.Graph)...)
	errs = append(errs, validateBrowse(&cfg.Browse)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateTransfer(&cfg.Transfer)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateServer(&cfg.Server)...)

	return errors.Join(errs...)
}

func validateGraph(g *GraphConfig) []error {
	var errs []error

	errs = append(errs, validateURL("graph.base_url", g.BaseURL, true)...)

	if strings.TrimSpace(g.Tenant) == "" {
		errs = append(errs, errors.New("graph.tenant: must not be empty"))
	}

	if g.MaxSites < minMaxSites {
		errs = append(errs, fmt.Errorf("graph.max_sites: must be >= %d, got %d", minMaxSites, g.MaxSites))
	}

	return errs
}

func validateBrowse(b *BrowseConfig) []error {
	var errs []error

	for i, ext := range b.Extensions {
		trimmed := strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if trimmed == "" || strings.ContainsAny(trimmed, "./\\") {
			errs = append(errs, fmt.Errorf("browse.extensions[%d]: invalid extension %q", i, ext))
		}
	}

	for i, mt := range b.MimeTypes {
		if !strings.Contains(mt, "/") {
			errs = append(errs, fmt.Errorf("browse.mime_types[%d]: invalid MIME type %q", i, mt))
		}
	}

	return errs
}

func validateStorage(s *StorageConfig) []error {
	var errs []error

	if s.Enabled && strings.TrimSpace(s.Bucket) == "" {
		errs = append(errs, errors.New("storage.bucket: required when storage.enabled is true"))
	}

	if s.Endpoint != "" {
		errs = append(errs, validateURL("storage.endpoint", s.Endpoint, false)...)
	}

	return errs
}

func validateTransfer(t *TransferConfig) []error {
	var errs []error

	if t.Workers < minTransferWorkers || t.Workers > maxTransferWorkers {
		errs = append(errs, fmt.Errorf("transfer.workers: must be between %d and %d, got %d",
			minTransferWorkers, maxTransferWorkers, t.Workers))
	}

	if _, err := parseMaxFileSize(t.MaxFileSize); err != nil {
		errs = append(errs, err)
	}

	if t.RetryAttempts < 0 || t.RetryAttempts > maxRetryAttempts {
		errs = append(errs, fmt.Errorf("transfer.retry_attempts: must be between 0 and %d, got %d",
			maxRetryAttempts, t.RetryAttempts))
	}

	errs = append(errs, validateDurationMin("transfer.retry_base_delay", t.RetryBaseDelay, minRetryBaseDelay)...)
	errs = append(errs, validateDurationMin("transfer.file_timeout", t.FileTimeout, minFileTimeout)...)
	errs = append(errs, validateDurationMin("transfer.batch_timeout", t.BatchTimeout, minFileTimeout)...)

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("network.connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("network.data_timeout", n.DataTimeout, minDataTimeout)...)

	if n.MaxRetries < 0 || n.MaxRetries > maxNetworkRetries {
		errs = append(errs, fmt.Errorf("network.max_retries: must be between 0 and %d, got %d",
			maxNetworkRetries, n.MaxRetries))
	}

	return errs
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen: invalid address %q: %w", s.Listen, err))
	}

	errs = append(errs, validateDurationMin("server.shutdown_timeout", s.ShutdownTimeout, minShutdownTimeout)...)

	return errs
}

// validateURL requires an absolute http(s) URL. httpsOnly rejects plain http.
func validateURL(field, value string, httpsOnly bool) []error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return []error{fmt.Errorf("%s: invalid URL %q", field, value)}
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if !httpsOnly || isLoopback(u.Hostname()) {
			return nil
		}

		return []error{fmt.Errorf("%s: must use https, got %q", field, value)}
	default:
		return []error{fmt.Errorf("%s: unsupported scheme in %q", field, value)}
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}

	ip := net.ParseIP(host)

	return ip != nil && ip.IsLoopback()
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}
