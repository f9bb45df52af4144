package shots

// BaseKey returns the dedup identity of an App Store CDN URL: the URL with a trailing
// size segment removed, so ".../IMG_1.png/300x650bb.webp" and ".../IMG_1.png/600x1300bb.jpg"
// share the key ".../IMG_1.png". A URL without a trailing size segment is its own key.
func BaseKey(rawURL string) string {
	s := parseSegments(rawURL)
	if sizeSegment(s.last()) {
		return s.withoutLast().String()
	}
	return rawURL
}
