package config

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"
)

const DefaultConfigPath = "config.json"

const (
	DefaultPort = 8888

	// The public Hevy API endpoint.
	DefaultUpstreamURL = "https://api.hevyapp.com"

	// The API key is static for all users of the free Hevy API.
	DefaultUpstreamAPIKey = "klean_kanteen_insulated"

	DefaultRequestTimeoutSecs = 10

	DefaultLoginRateLimit      = 5
	DefaultLoginRateWindowSecs = 60
)

type Config struct {
	Port           uint16 `json:"port"`
	UseTLS         bool   `json:"useTLS"`
	SSLCertificate string `json:"sslCertificate"`
	SSLKey         string `json:"sslKey"`

	// Upstream connection settings. Both default to the public Hevy API.
	UpstreamURL    string `json:"upstreamURL"`
	UpstreamAPIKey string `json:"upstreamAPIKey"`

	// Timeout (in seconds) for a single outbound call.
	RequestTimeoutSecs uint `json:"requestTimeout"`

	// Login attempts allowed per source address per window.
	LoginRateLimit      uint `json:"loginRateLimit"`
	LoginRateWindowSecs uint `json:"loginRateWindow"`

	// When set, the status endpoint is enabled and protected by basic auth
	// against this htpasswd file.
	HtpasswdPath string `json:"htpasswdPath"`
}

// Load the configuration from the file at the given path, filling in
// defaults for missing fields. Relative certificate and htpasswd paths are
// resolved against the directory containing the configuration file.
func Load(path string) (*Config, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err = json.Unmarshal(content, &config); err != nil {
		return nil, err
	}

	if config.Port == 0 {
		config.Port = DefaultPort
	}

	if config.UpstreamURL == "" {
		config.UpstreamURL = DefaultUpstreamURL
	}
	config.UpstreamURL = strings.TrimRight(config.UpstreamURL, "/")

	if config.UpstreamAPIKey == "" {
		config.UpstreamAPIKey = DefaultUpstreamAPIKey
	}

	if config.RequestTimeoutSecs == 0 {
		config.RequestTimeoutSecs = DefaultRequestTimeoutSecs
	}

	if config.LoginRateLimit == 0 {
		config.LoginRateLimit = DefaultLoginRateLimit
	}

	if config.LoginRateWindowSecs == 0 {
		config.LoginRateWindowSecs = DefaultLoginRateWindowSecs
	}

	if config.UseTLS && (config.SSLCertificate == "" || config.SSLKey == "") {
		return nil, errors.New("TLS is enabled but sslCertificate or sslKey is missing")
	}

	dir := filepath.Dir(path)

	if config.SSLCertificate != "" && !filepath.IsAbs(config.SSLCertificate) {
		config.SSLCertificate = filepath.Join(dir, config.SSLCertificate)
	}

	if config.SSLKey != "" && !filepath.IsAbs(config.SSLKey) {
		config.SSLKey = filepath.Join(dir, config.SSLKey)
	}

	if config.HtpasswdPath != "" && !filepath.IsAbs(config.HtpasswdPath) {
		config.HtpasswdPath = filepath.Join(dir, config.HtpasswdPath)
	}

	return &config, nil
}

// Serialize the configuration so it can be written back to disk.
func (config *Config) Serialize() ([]byte, error) {
	return json.Marshal(config)
}

// RequestTimeout returns the outbound call timeout as a duration.
func (config *Config) RequestTimeout() time.Duration {
	return time.Duration(config.RequestTimeoutSecs) * time.Second
}

// LoginRateWindow returns the rate-limit window as a duration.
func (config *Config) LoginRateWindow() time.Duration {
	return time.Duration(config.LoginRateWindowSecs) * time.Second
}
