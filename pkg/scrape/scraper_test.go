package scrape

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/storeshot/pkg/config"
	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/shots"
)

const thumb = "https://is1-ssl.mzstatic.com/image/thumb/"

var storePage = `<!doctype html>
<html><head>
<meta property="og:image" content="` + thumb + `Purple/v4/og/AppIcon-0.png/1200x630wa.png">
<script type="application/ld+json">{"@type":"SoftwareApplication","image":"` + thumb + `Purple/v4/ld/IMG_0001.png"}</script>
</head><body>
<picture>
  <source srcset="` + thumb + `Purple/v4/a/IMG_0002.png/300x650bb.webp 300w, ` + thumb + `Purple/v4/a/IMG_0002.png/600x1300bb.webp 600w" type="image/webp">
  <img src="` + thumb + `Purple/v4/a/IMG_0002.png/300x650bb.jpg" alt="">
</picture>
<img src="` + thumb + `PurpleVideo116/v4/x/preview.jpg/300x300.jpg">
<img src="https://apps.apple.com/favicon.png">
<img srcset="` + thumb + `Purple/v4/b/IMG_0003.jpeg/300x650bb.webp 1x">
</body></html>`

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testFetcher() *fetch.Fetcher {
	cfg := &config.AppConfig{MaxRetries: 0}
	return fetch.NewFetcher(&http.Client{Timeout: 5 * time.Second}, cfg, testLogger())
}

func TestThumbPattern(t *testing.T) {
	text := `"` + thumb + `a/IMG.png/300x650bb.webp 300w, ` + thumb + `b/IMG.png" ` + thumb + `c/x.gif`
	assert.Equal(t, []string{
		thumb + "a/IMG.png/300x650bb.webp",
		thumb + "b/IMG.png",
	}, ThumbPattern.FindAllString(text, -1))
}

func TestExtract_DocumentOrderAndFiltering(t *testing.T) {
	s := NewScraper(testFetcher(), nil, shots.AppStore(), config.DefaultPageUserAgent, testLogger())

	got, err := s.Extract([]byte(storePage))
	require.NoError(t, err)

	// Variants of one image collapse to the first one seen
	assert.Equal(t, []string{
		thumb + "Purple/v4/ld/IMG_0001.png",
		thumb + "Purple/v4/a/IMG_0002.png/300x650bb.webp",
		thumb + "Purple/v4/b/IMG_0003.jpeg/300x650bb.webp",
	}, got)
}

var dataPage = `<!doctype html>
<html><head>
<script type="fastboot/shoebox" id="shoebox-media-api-cache-apps">{"d":[{"attributes":{"screenshotsByType":{"iphone_6_5":[{"url":"` + thumb + `Purple/v4/s/IMG_0101.png/300x650bb.jpg"}]}}}]}</script>
<script type="application/json" id="serialized-server-data">[{"data":{"shelf":"` + thumb + `Purple/v4/s/IMG_0102.png/{w}x{h}bb.jpg","alt":"` + thumb + `Purple/v4/s/IMG_0102.png/600x1300bb.webp"}}]</script>
</head><body>
<img src="` + thumb + `Purple/v4/s/IMG_0104.png/300x650bb.jpg">
<div class="we-artwork" data-src="` + thumb + `Purple/v4/s/IMG_0103.png/300x650bb.webp"></div>
<div data-icon="` + thumb + `Purple/v4/s/AppIcon-1.png/100x100bb.png"></div>
<script>window.cfg = {"shot":"` + thumb + `Purple/v4/s/IMG_0101.png/600x1300bb.jpg"};</script>
</body></html>`

func TestExtract_FindsUrlsOutsideImageElements(t *testing.T) {
	s := NewScraper(testFetcher(), nil, shots.AppStore(), config.DefaultPageUserAgent, testLogger())

	got, err := s.Extract([]byte(dataPage))
	require.NoError(t, err)

	assert.Equal(t, []string{
		thumb + "Purple/v4/s/IMG_0104.png/300x650bb.jpg",
		thumb + "Purple/v4/s/IMG_0101.png/300x650bb.jpg",
		thumb + "Purple/v4/s/IMG_0102.png/600x1300bb.webp",
		thumb + "Purple/v4/s/IMG_0103.png/300x650bb.webp",
	}, got)
}

func TestExtract_NoUrls(t *testing.T) {
	s := NewScraper(testFetcher(), nil, shots.AppStore(), "", testLogger())

	got, err := s.Extract([]byte(`<html><body><p>nothing here</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScrape_FetchesWithPageUserAgent(t *testing.T) {
	var ua atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
		w.Write([]byte(storePage))
	}))
	t.Cleanup(server.Close)

	s := NewScraper(testFetcher(), nil, shots.AppStore(), config.DefaultPageUserAgent, testLogger())
	got := s.Scrape(context.Background(), server.URL+"/us/app/telegram/id686449807")

	assert.Len(t, got, 3)
	assert.Equal(t, config.DefaultPageUserAgent, ua.Load())
}

func TestScrape_FailuresYieldEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	s := NewScraper(testFetcher(), nil, shots.AppStore(), "", testLogger())

	assert.Empty(t, s.Scrape(context.Background(), server.URL+"/page"))
	assert.Empty(t, s.Scrape(context.Background(), "not a url"))
	assert.Empty(t, s.Scrape(context.Background(), ""))
}

func TestScrape_RespectsRobots(t *testing.T) {
	pageHits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /us/app/\n"))
			return
		}
		pageHits.Add(1)
		w.Write([]byte(storePage))
	}))
	t.Cleanup(server.Close)

	f := testFetcher()
	robots := fetch.NewRobotsHandler(f, nil, 0, "storeshot", testLogger())
	s := NewScraper(f, robots, shots.AppStore(), "storeshot", testLogger())

	assert.Empty(t, s.Scrape(context.Background(), server.URL+"/us/app/telegram/id1"))
	assert.Equal(t, int32(0), pageHits.Load())

	assert.Len(t, s.Scrape(context.Background(), server.URL+"/kz/other"), 3)
	assert.Equal(t, int32(1), pageHits.Load())
}
