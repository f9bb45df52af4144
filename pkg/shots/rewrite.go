package shots

import "strings"

// HighResToken replaces (or is appended in place of) any App Store size segment.
// The CDN serves the largest variant it has when asked for more than it stores.
const HighResToken = "1284x2778bb.jpg"

// ToHighRes rewrites an App Store CDN URL to request the largest image variant.
// Every path segment that starts with a size token is replaced by HighResToken;
// a URL with no size segment (typical of page metadata) gets the token appended.
// The result is not checked for fetchability.
func ToHighRes(rawURL string) string {
	s := parseSegments(rawURL)
	replaced := false
	if s.hasPath {
		segs := make([]string, len(s.segments))
		for i, seg := range s.segments {
			if sizeSegment(seg) {
				segs[i] = HighResToken
				replaced = true
				continue
			}
			segs[i] = seg
		}
		s.segments = segs
	}
	if replaced {
		return s.String()
	}
	if strings.HasSuffix(rawURL, "/") {
		return rawURL + HighResToken
	}
	return rawURL + "/" + HighResToken
}
