package shots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsScreenshot(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"short cdn path with size segment", "https://cdn/x/300x300bb.jpg", true},
		{"size segment png", "https://cdn/shot/200x200.png", true},
		{"mzstatic original name", "https://is1-ssl.mzstatic.com/image/thumb/Purple126/v4/aa/bb/cc/uuid/IMG_0001.png/392x696bb.jpg", true},
		{"json-ld url without size", "https://is1-ssl.mzstatic.com/image/thumb/Purple/v4/x/IMG_0001.jpeg", true},
		{"uppercase extension", "https://cdn/a/Screen.PNG/300x300bb.webp", true},
		{"webp source", "https://cdn/a/Screen.webp", true},
		{"size embedded in file name", "https://cdn/a/Screen_1242x2688.png", true},
		{"app icon", "https://cdn/AppIcon/100x100.png", false},
		{"favicon", "https://apps.apple.com/favicon.png", false},
		{"placeholder", "https://cdn/Placeholder.mill/200x200.png", false},
		{"feature graphic", "https://cdn/Features126/v4/a.png/1200x630wa.jpg", false},
		{"marketing", "https://cdn/marketing/banner.jpg", false},
		{"promo video", "https://cdn/PurpleVideo116/v4/x.jpg/300x300.jpg", false},
		{"unresolved template", "https://cdn/a/IMG.png/{w}x{h}bb.jpg", false},
		{"video file under size segment", "https://cdn/a/preview.mp4/300x300bb.jpg", false},
		{"extensionless hash", "https://cdn/a/7f3c9a2b1e", false},
		{"extensionless with size but no ext anywhere", "https://cdn/a/hash/300x300bb", false},
		{"non-raster file", "https://cdn/a/doc.svg", false},
		{"no path", "https://cdn", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsScreenshot(tt.url), "IsScreenshot(%q)", tt.url)
		})
	}
}

func TestIsScreenshot_Idempotent(t *testing.T) {
	urls := []string{
		"https://cdn/x/300x300bb.jpg",
		"https://cdn/AppIcon/100x100.png",
		"https://cdn/a/preview.mp4/300x300bb.jpg",
	}
	for _, u := range urls {
		first := IsScreenshot(u)
		assert.Equal(t, first, IsScreenshot(u), "second call differs for %q", u)
	}
}

func TestIsScreenshot_BlocklistIsCaseSensitive(t *testing.T) {
	// Lower-case "appicon" is not a blocklist marker
	assert.True(t, IsScreenshot("https://cdn/appicon-like/IMG.png"))
	assert.False(t, IsScreenshot("https://cdn/AppIcon-like/IMG.png"))
}
