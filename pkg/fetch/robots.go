package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

const maxRobotsBytes = 512 << 10

// RobotsHandler fetches, parses and caches robots.txt per host
type RobotsHandler struct {
	fetcher     *Fetcher
	rateLimiter *RateLimiter
	delay       time.Duration
	userAgent   string
	robotsCache map[string]*robotstxt.RobotsData // hostname -> parsed data (nil when unavailable)
	robotsMu    sync.Mutex
	log         *logrus.Entry
}

// NewRobotsHandler creates a RobotsHandler that fetches robots.txt with userAgent
func NewRobotsHandler(fetcher *Fetcher, rateLimiter *RateLimiter, delay time.Duration, userAgent string, log *logrus.Entry) *RobotsHandler {
	return &RobotsHandler{
		fetcher:     fetcher,
		rateLimiter: rateLimiter,
		delay:       delay,
		userAgent:   userAgent,
		robotsCache: make(map[string]*robotstxt.RobotsData),
		log:         log,
	}
}

// GetRobotsData returns robots.txt rules for targetURL's host, fetching on first use.
// Returns nil when the file is missing, unreachable or unparsable; that result is cached too.
func (rh *RobotsHandler) GetRobotsData(ctx context.Context, targetURL *url.URL) *robotstxt.RobotsData {
	host := targetURL.Host

	rh.robotsMu.Lock()
	data, found := rh.robotsCache[host]
	rh.robotsMu.Unlock()
	if found {
		return data
	}

	scheme := targetURL.Scheme
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	robotsURL := (&url.URL{Scheme: scheme, Host: host, Path: "/robots.txt"}).String()
	robotsLog := rh.log.WithFields(logrus.Fields{"host": host, "robots_url": robotsURL})
	robotsLog.Debug("Fetching robots.txt...")

	if rh.rateLimiter != nil {
		rh.rateLimiter.ApplyDelay(ctx, targetURL.Hostname(), rh.delay)
	}
	body, err := rh.fetcher.GetWithRetry(ctx, robotsURL, rh.userAgent, maxRobotsBytes)
	if rh.rateLimiter != nil {
		rh.rateLimiter.UpdateLastRequestTime(targetURL.Hostname())
	}

	if err != nil {
		robotsLog.Warnf("robots.txt unavailable, assuming allowed: %v", err)
		data = nil
	} else if data, err = robotstxt.FromBytes(body); err != nil {
		robotsLog.Warnf("robots.txt unparsable, assuming allowed: %v", err)
		data = nil
	}

	rh.robotsMu.Lock()
	rh.robotsCache[host] = data
	rh.robotsMu.Unlock()
	return data
}

// TestAgent reports whether userAgent may fetch targetURL.
// Missing or broken robots.txt allows everything.
func (rh *RobotsHandler) TestAgent(ctx context.Context, targetURL *url.URL, userAgent string) bool {
	data := rh.GetRobotsData(ctx, targetURL)
	if data == nil {
		return true
	}
	return data.TestAgent(targetURL.RequestURI(), userAgent)
}
