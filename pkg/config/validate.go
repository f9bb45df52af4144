package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/storeshot/pkg/utils"
)

var knownStores = map[string]bool{"appstore": true, "playstore": true}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// MinContentBytes
	if c.MinContentBytes < 0 {
		warnings = append(warnings, "min_content_bytes cannot be negative, defaulting to 1500")
		c.MinContentBytes = 1500
	} else if c.MinContentBytes == 0 {
		c.MinContentBytes = 1500
	}

	// RequestTimeout
	if c.RequestTimeout < 0 {
		warnings = append(warnings, "request_timeout cannot be negative, defaulting to 10s")
		c.RequestTimeout = 10 * time.Second
	} else if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}

	// MaxImageBytes
	if c.MaxImageBytes < 0 {
		warnings = append(warnings, "max_image_bytes cannot be negative, defaulting to 50 MiB")
		c.MaxImageBytes = 50 << 20
	} else if c.MaxImageBytes == 0 {
		c.MaxImageBytes = 50 << 20
	}
	if c.MaxImageBytes < c.MinContentBytes {
		return warnings, fmt.Errorf("%w: max_image_bytes (%d) is below min_content_bytes (%d)",
			utils.ErrConfigValidation, c.MaxImageBytes, c.MinContentBytes)
	}

	// DownloadWorkers
	if c.DownloadWorkers <= 0 {
		c.DownloadWorkers = 1
	}
	if c.MaxRequestsPerHost <= 0 {
		c.MaxRequestsPerHost = 2
	}
	if c.MaxParallelApps <= 0 {
		c.MaxParallelApps = 1
	}

	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, disabling delay")
		c.DelayPerHost = 0
	}

	// Classification patterns must compile
	if _, reErr := utils.CompileRegexPatterns(c.SkipURLPatterns); reErr != nil {
		return warnings, reErr
	}

	// DefaultCountry
	c.DefaultCountry = strings.ToLower(strings.TrimSpace(c.DefaultCountry))
	if c.DefaultCountry == "" {
		c.DefaultCountry = "us"
	}

	// DefaultStore
	c.DefaultStore = strings.ToLower(strings.TrimSpace(c.DefaultStore))
	if c.DefaultStore == "" {
		c.DefaultStore = "appstore"
	} else if !knownStores[c.DefaultStore] {
		return warnings, fmt.Errorf("%w: default_store '%s' is not one of appstore, playstore",
			utils.ErrConfigValidation, c.DefaultStore)
	}

	if c.APIUserAgent == "" {
		c.APIUserAgent = DefaultAPIUserAgent
	}
	if c.PageUserAgent == "" {
		c.PageUserAgent = DefaultPageUserAgent
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 2
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 500 * time.Millisecond
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 5 * time.Second
		}
	}

	// InitialRetryDelay > MaxRetryDelay check
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.LookupCacheTTL < 0 {
		warnings = append(warnings, "lookup_cache_ttl cannot be negative, disabling lookup cache")
		c.LookupCacheTTL = 0
	}

	// OutputBaseDir
	if c.OutputBaseDir == "" {
		c.OutputBaseDir = "."
	}

	// StateDir
	if c.StateDir == "" {
		if c.LookupCacheTTL > 0 {
			warnings = append(warnings, "state_dir is empty, defaulting to './storeshot_state'")
		}
		c.StateDir = "./storeshot_state"
	}

	// Manifest filename
	if c.EnableManifest && c.ManifestFilename == "" {
		c.ManifestFilename = "manifest.yaml"
	}

	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
