package acquire

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var (
	pngMarker  = []byte("PNG")
	webpMarker = []byte("WEBP")
)

// SniffExt picks the saved file extension from the payload's leading bytes:
// "PNG" within the first 8 bytes means png, "WEBP" within the first 20 means webp,
// anything else is written as jpg.
func SniffExt(payload []byte) string {
	if bytes.Contains(head(payload, 8), pngMarker) {
		return "png"
	}
	if bytes.Contains(head(payload, 20), webpMarker) {
		return "webp"
	}
	return "jpg"
}

// Dimensions decodes only the image header. Zeroes mean the header was not understood.
func Dimensions(payload []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
