package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIUserAgent  = "Mozilla/5.0"
	DefaultPageUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Safari/605.1.15"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	// Acquisition
	MinContentBytes    int64         `yaml:"min_content_bytes"`               // Payloads below this are treated as placeholders
	RequestTimeout     time.Duration `yaml:"request_timeout"`                 // Deadline for a single image fetch
	MaxImageBytes      int64         `yaml:"max_image_bytes,omitempty"`       // Read cap per image payload
	DownloadWorkers    int           `yaml:"download_workers,omitempty"`      // >1 overlaps fetches; file naming stays sequential
	MaxRequestsPerHost int           `yaml:"max_requests_per_host,omitempty"` // Per-host cap on overlapped fetches
	DelayPerHost       time.Duration `yaml:"delay_per_host,omitempty"`        // Politeness delay between image requests to one host
	MaxParallelApps    int           `yaml:"max_parallel_apps,omitempty"`     // Apps processed at once by batch runs

	// Classification
	ExtraBlocklist  []string `yaml:"extra_blocklist,omitempty"`   // Additional substrings that mark a URL as non-screenshot
	SkipURLPatterns []string `yaml:"skip_url_patterns,omitempty"` // Regex patterns that mark a URL as non-screenshot

	// Catalog / scrape
	DefaultCountry    string        `yaml:"default_country"`
	DefaultStore      string        `yaml:"default_store"`
	APIUserAgent      string        `yaml:"api_user_agent,omitempty"`
	PageUserAgent     string        `yaml:"page_user_agent,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty"`
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay,omitempty"`
	RespectRobots     bool          `yaml:"respect_robots,omitempty"`
	LookupCacheTTL    time.Duration `yaml:"lookup_cache_ttl,omitempty"` // 0 disables the badger lookup cache

	// Output
	OutputBaseDir    string `yaml:"output_base_dir"`
	StateDir         string `yaml:"state_dir"`
	EnableManifest   bool   `yaml:"enable_manifest,omitempty"`
	ManifestFilename string `yaml:"manifest_filename,omitempty"`

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Load reads a YAML config file into an AppConfig
// A missing file is not an error: the zero config is returned so Validate can fill defaults
func Load(path string) (*AppConfig, bool, error) {
	cfg := &AppConfig{}
	if path == "" {
		return cfg, false, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, false, nil
		}
		return nil, false, fmt.Errorf("read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, true, fmt.Errorf("parse config file '%s': %w", path, err)
	}
	return cfg, true, nil
}

// GetEffectiveManifestFilename determines the filename for the per-run manifest
func GetEffectiveManifestFilename(appCfg AppConfig) string {
	if appCfg.ManifestFilename != "" {
		return appCfg.ManifestFilename
	}
	return "manifest.yaml"
}
