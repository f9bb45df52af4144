package shots

import (
	"path"
	"strings"
)

// segmentedURL is a URL string split into the part before its path and "/"-separated path segments.
// Query strings stay attached to the segment they follow, mirroring how CDN paths are built.
type segmentedURL struct {
	authority string // "scheme://host", or "" for scheme-less input
	lead      string // Text placed before the joined segments when a path exists
	segments  []string
	hasPath   bool
}

func parseSegments(raw string) segmentedURL {
	if i := strings.Index(raw, "://"); i >= 0 {
		hostStart := i + len("://")
		slash := strings.IndexByte(raw[hostStart:], '/')
		if slash < 0 {
			return segmentedURL{authority: raw}
		}
		authority := raw[:hostStart+slash]
		return segmentedURL{
			authority: authority,
			lead:      authority + "/",
			segments:  strings.Split(raw[hostStart+slash+1:], "/"),
			hasPath:   true,
		}
	}
	if raw == "" {
		return segmentedURL{}
	}
	if strings.HasPrefix(raw, "/") {
		return segmentedURL{lead: "/", segments: strings.Split(raw[1:], "/"), hasPath: true}
	}
	return segmentedURL{segments: strings.Split(raw, "/"), hasPath: true}
}

func (s segmentedURL) String() string {
	if !s.hasPath {
		return s.authority
	}
	return s.lead + strings.Join(s.segments, "/")
}

// last returns the final path segment, or "" when there is no path
func (s segmentedURL) last() string {
	if !s.hasPath || len(s.segments) == 0 {
		return ""
	}
	return s.segments[len(s.segments)-1]
}

// withoutLast drops the final path segment along with its separator
func (s segmentedURL) withoutLast() segmentedURL {
	if !s.hasPath || len(s.segments) == 0 {
		return s
	}
	out := s
	out.segments = s.segments[:len(s.segments)-1]
	if len(out.segments) == 0 {
		out.hasPath = false
		out.segments = nil
	}
	return out
}

// sizeSegment reports whether a path segment starts with a "<digits>x<digits>" size token,
// e.g. "300x650bb-75.webp" or "1284x2778bb.jpg".
// This is the single definition shared by the classifier, rewriter and dedup key.
// A token inside a file name ("Screen_1242x2688.png") does not count; such a URL is its own key.
func sizeSegment(seg string) bool {
	w := digitRun(seg, 0)
	if w == 0 || w >= len(seg) || seg[w] != 'x' {
		return false
	}
	return digitRun(seg, w+1) > w+1
}

func digitRun(s string, from int) int {
	i := from
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// segmentExt returns the lower-cased file extension of a segment, ignoring any query string
func segmentExt(seg string) string {
	if q := strings.IndexAny(seg, "?#"); q >= 0 {
		seg = seg[:q]
	}
	return strings.ToLower(path.Ext(seg))
}
