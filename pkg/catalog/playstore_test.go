package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

const playDetailsHTML = `<!doctype html>
<html><head><meta property="og:title" content="Maps - Apps on Google Play"></head>
<body>
<h1><span>Google Maps</span></h1>
<img src="https://play-lh.googleusercontent.com/icon=s64" alt="Icon image">
<div>
  <img data-screenshot-index="0" src="https://play-lh.googleusercontent.com/shot1=w526-h296-rw"
       srcset="https://play-lh.googleusercontent.com/shot1=w1052-h592-rw 2x">
  <img data-screenshot-index="1" src="https://play-lh.googleusercontent.com/shot2=w526-h296-rw">
</div>
</body></html>`

const playSearchHTML = `<html><body>
<a href="/store/apps/dev?id=123">Developer</a>
<a href="/store/apps/details?id=com.google.android.apps.maps&amp;hl=en">Google Maps</a>
<a href="/store/apps/details?id=com.other.app">Other</a>
</body></html>`

func playServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/store/search":
			if r.URL.Query().Get("q") == "nothing here" {
				w.Write([]byte("<html><body>No results</body></html>"))
				return
			}
			w.Write([]byte(playSearchHTML))
		case "/store/apps/details":
			switch r.URL.Query().Get("id") {
			case "com.google.android.apps.maps":
				w.Write([]byte(playDetailsHTML))
			case "com.alt.layout":
				w.Write([]byte(`<html><head><meta property="og:title" content="Alt"></head><body>
<img alt="Screenshot image" src="https://play-lh.googleusercontent.com/alt1=w526-h296">
<img alt="Icon" src="https://play-lh.googleusercontent.com/icon=s64"></body></html>`))
			default:
				http.NotFound(w, r)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIsPackageName(t *testing.T) {
	assert.True(t, IsPackageName("com.google.android.apps.maps"))
	assert.True(t, IsPackageName("org.telegram.messenger"))
	assert.False(t, IsPackageName("google maps"))
	assert.False(t, IsPackageName("telegram"))
	assert.False(t, IsPackageName("686449807"))
	assert.False(t, IsPackageName("com..bad"))
}

func TestPlayStoreClient_LookupByPackage(t *testing.T) {
	server := playServer(t)
	c := NewPlayStoreClient(testFetcher(), "", testLogger()).WithBaseURL(server.URL)

	rec, err := c.Lookup(context.Background(), "com.google.android.apps.maps", "us")
	require.NoError(t, err)

	assert.Equal(t, models.StorePlayStore, rec.Store)
	assert.Equal(t, "com.google.android.apps.maps", rec.ID)
	assert.Equal(t, "Google Maps", rec.Name)
	assert.Contains(t, rec.PageURL, "gl=us")
	assert.Contains(t, rec.PageURL, "hl=en")

	require.Len(t, rec.Groups, 1)
	assert.Equal(t, models.DeviceAny, rec.Groups[0].Device)
	assert.Equal(t, []string{
		"https://play-lh.googleusercontent.com/shot1=w526-h296-rw",
		"https://play-lh.googleusercontent.com/shot1=w1052-h592-rw",
		"https://play-lh.googleusercontent.com/shot2=w526-h296-rw",
	}, rec.Groups[0].URLs)
}

func TestPlayStoreClient_LookupBySearch(t *testing.T) {
	server := playServer(t)
	c := NewPlayStoreClient(testFetcher(), "", testLogger()).WithBaseURL(server.URL)

	rec, err := c.Lookup(context.Background(), "google maps", "us")
	require.NoError(t, err)
	assert.Equal(t, "com.google.android.apps.maps", rec.ID)
	assert.Equal(t, "Google Maps", rec.Name)
}

func TestPlayStoreClient_AltScreenshotsAndOGTitle(t *testing.T) {
	server := playServer(t)
	c := NewPlayStoreClient(testFetcher(), "", testLogger()).WithBaseURL(server.URL)

	rec, err := c.Lookup(context.Background(), "com.alt.layout", "de")
	require.NoError(t, err)
	assert.Equal(t, "Alt", rec.Name)
	require.Len(t, rec.Groups, 1)
	assert.Equal(t, []string{"https://play-lh.googleusercontent.com/alt1=w526-h296"}, rec.Groups[0].URLs)
}

func TestPlayStoreClient_NotFound(t *testing.T) {
	server := playServer(t)
	c := NewPlayStoreClient(testFetcher(), "", testLogger()).WithBaseURL(server.URL)

	_, err := c.Lookup(context.Background(), "com.missing.app", "us")
	assert.True(t, errors.Is(err, utils.ErrAppNotFound), "got %v", err)

	_, err = c.Lookup(context.Background(), "nothing here", "us")
	assert.True(t, errors.Is(err, utils.ErrAppNotFound), "got %v", err)
}
