package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig            = "SPBRIDGE_CONFIG"
	EnvTokenPath         = "SPBRIDGE_TOKEN_PATH"
	EnvAccessToken       = "SPBRIDGE_ACCESS_TOKEN"
	EnvS3AccessKeyID     = "SPBRIDGE_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "SPBRIDGE_S3_SECRET_ACCESS_KEY"
	EnvS3SessionToken    = "SPBRIDGE_S3_SESSION_TOKEN"
	EnvListen            = "SPBRIDGE_LISTEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath     string
	TokenPath      string
	AccessToken    string
	S3AccessKeyID  string
	S3SecretKey    string
	S3SessionToken string
	Listen         string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Apply does.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:     os.Getenv(EnvConfig),
		TokenPath:      os.Getenv(EnvTokenPath),
		AccessToken:    os.Getenv(EnvAccessToken),
		S3AccessKeyID:  os.Getenv(EnvS3AccessKeyID),
		S3SecretKey:    os.Getenv(EnvS3SecretAccessKey),
		S3SessionToken: os.Getenv(EnvS3SessionToken),
		Listen:         os.Getenv(EnvListen),
	}
}

// Apply copies the non-empty overrides onto cfg.
func (e EnvOverrides) Apply(cfg *Config) {
	if e.TokenPath != "" {
		cfg.Graph.TokenPath = e.TokenPath
	}

	if e.Listen != "" {
		cfg.Server.Listen = e.Listen
	}

	cfg.AccessToken = e.AccessToken
	cfg.S3AccessKeyID = e.S3AccessKeyID
	cfg.S3SecretKey = e.S3SecretKey
	cfg.S3SessionToken = e.S3SessionToken
}
