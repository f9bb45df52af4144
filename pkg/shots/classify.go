package shots

import "strings"

// DefaultBlocklist holds substrings that mark icon, banner, placeholder, promo-video
// and unresolved-template URLs. Matching is case-sensitive.
var DefaultBlocklist = []string{
	"AppIcon",
	"favicon",
	"Placeholder",
	"Features",
	"marketing",
	"PurpleVideo",
	"{w}x{h}",
}

var rasterExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// IsScreenshot reports whether an App Store URL looks like a real screenshot.
// Pure function of its input.
func IsScreenshot(rawURL string) bool {
	return containsNone(rawURL, DefaultBlocklist) && hasRasterName(rawURL)
}

func containsNone(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// hasRasterName checks the file name the dedup key ends in.
// When that segment carries no extension (short CDN paths such as "/x/300x300bb.jpg"),
// the stripped size segment decides. Any non-raster extension rejects the URL,
// which is what filters ".mp4/..." video thumbnails.
func hasRasterName(rawURL string) bool {
	s := parseSegments(rawURL)
	last := s.last()
	if !sizeSegment(last) {
		return rasterExts[segmentExt(last)]
	}

	keySeg := s.withoutLast().last()
	if ext := segmentExt(keySeg); ext != "" {
		return rasterExts[ext]
	}
	return rasterExts[segmentExt(last)]
}
