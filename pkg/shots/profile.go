package shots

import (
	"fmt"
	"regexp"

	"github.com/Sriram-PR/storeshot/pkg/models"
)

// Profile bundles the classifier, rewriter and dedup key for one storefront's CDN.
// A Profile is immutable after construction and safe for concurrent use.
type Profile struct {
	store     models.Store
	accept    func(string) bool
	rewrite   func(string) string
	key       func(string) string
	blocklist []string
	skip      []*regexp.Regexp
}

// Option customizes a Profile at construction time
type Option func(*Profile)

// WithExtraBlocklist adds substrings that reject a URL in addition to DefaultBlocklist
func WithExtraBlocklist(subs []string) Option {
	return func(p *Profile) {
		p.blocklist = append(p.blocklist, subs...)
	}
}

// WithSkipPatterns adds compiled regex patterns that reject a URL
func WithSkipPatterns(patterns []*regexp.Regexp) Option {
	return func(p *Profile) {
		p.skip = append(p.skip, patterns...)
	}
}

// AppStore returns the profile for Apple's mzstatic CDN
func AppStore(opts ...Option) *Profile {
	return newProfile(models.StoreAppStore, IsScreenshot, ToHighRes, BaseKey, opts)
}

// PlayStore returns the profile for Google Play's image CDN
func PlayStore(opts ...Option) *Profile {
	return newProfile(models.StorePlayStore, IsScreenshotPlay, ToHighResPlay, BaseKeyPlay, opts)
}

// ForStore returns the profile for the given store
func ForStore(store models.Store, opts ...Option) (*Profile, error) {
	switch store {
	case models.StoreAppStore:
		return AppStore(opts...), nil
	case models.StorePlayStore:
		return PlayStore(opts...), nil
	}
	return nil, fmt.Errorf("no screenshot profile for store '%s'", store)
}

func newProfile(store models.Store, accept func(string) bool, rewrite, key func(string) string, opts []Option) *Profile {
	p := &Profile{store: store, accept: accept, rewrite: rewrite, key: key}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the storefront this profile handles
func (p *Profile) Store() models.Store { return p.store }

// IsScreenshot applies the storefront classifier plus any configured extra rejections
func (p *Profile) IsScreenshot(rawURL string) bool {
	if !p.accept(rawURL) || !containsNone(rawURL, p.blocklist) {
		return false
	}
	for _, re := range p.skip {
		if re.MatchString(rawURL) {
			return false
		}
	}
	return true
}

// ToHighRes rewrites rawURL to request the largest variant
func (p *Profile) ToHighRes(rawURL string) string { return p.rewrite(rawURL) }

// BaseKey returns the dedup identity of rawURL
func (p *Profile) BaseKey(rawURL string) string { return p.key(rawURL) }

// Resolve pairs rawURL with its high-res rewrite
func (p *Profile) Resolve(rawURL string) models.ResolvedTarget {
	return models.ResolvedTarget{Original: rawURL, HighRes: p.rewrite(rawURL)}
}

// Merge combines lists in priority order using this profile's dedup key
func (p *Profile) Merge(lists ...[]string) []string {
	return Merge(p.key, lists...)
}
