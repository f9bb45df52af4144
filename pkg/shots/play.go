package shots

import (
	"net/url"
	"strings"
)

// PlayOriginalSize is the size parameter asking the Play image CDN for the unscaled original.
const PlayOriginalSize = "=s0"

// playHosts are the image CDNs Google Play serves screenshots from.
var playHosts = []string{"googleusercontent.com", "ggpht.com"}

// BaseKeyPlay strips a trailing "=<size params>" suffix (e.g. "=w526-h296-rw") from a
// Google Play image URL, so every rendition of one image shares a key.
func BaseKeyPlay(rawURL string) string {
	if i := playSizeParamIndex(rawURL); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// ToHighResPlay replaces any size suffix with PlayOriginalSize.
func ToHighResPlay(rawURL string) string {
	return BaseKeyPlay(rawURL) + PlayOriginalSize
}

// IsScreenshotPlay accepts Play CDN URLs that pass the blocklist. The Play CDN serves
// extensionless paths, so no file-name check applies.
func IsScreenshotPlay(rawURL string) bool {
	return onPlayCDN(rawURL) && containsNone(rawURL, DefaultBlocklist)
}

func onPlayCDN(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range playHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// playSizeParamIndex returns the index of the "=" starting a size suffix in the last
// path segment, or -1. Each dash-separated option must be letters followed by digits,
// e.g. "w526", "h296", "rw", "s0".
func playSizeParamIndex(rawURL string) int {
	eq := strings.LastIndexByte(rawURL, '=')
	if eq < 0 || eq < strings.LastIndexByte(rawURL, '/') || strings.ContainsAny(rawURL[eq:], "?&#") {
		return -1
	}
	params := rawURL[eq+1:]
	if params == "" {
		return eq
	}
	for _, opt := range strings.Split(params, "-") {
		if !sizeOption(opt) {
			return -1
		}
	}
	return eq
}

func sizeOption(opt string) bool {
	i := 0
	for i < len(opt) && opt[i] >= 'a' && opt[i] <= 'z' {
		i++
	}
	if i == 0 {
		return false
	}
	return digitRun(opt, i) == len(opt)
}
