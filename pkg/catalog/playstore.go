package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/parse"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

// DefaultPlayBaseURL is the Google Play web storefront root
const DefaultPlayBaseURL = "https://play.google.com"

var packageNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// PlayStoreClient resolves apps by scraping Google Play details and search pages
type PlayStoreClient struct {
	fetcher   *fetch.Fetcher
	baseURL   string
	userAgent string
	log       *logrus.Entry
}

// NewPlayStoreClient creates a PlayStoreClient against DefaultPlayBaseURL
func NewPlayStoreClient(fetcher *fetch.Fetcher, userAgent string, log *logrus.Entry) *PlayStoreClient {
	return &PlayStoreClient{
		fetcher:   fetcher,
		baseURL:   DefaultPlayBaseURL,
		userAgent: userAgent,
		log:       log.WithField("store", models.StorePlayStore),
	}
}

// WithBaseURL points the client at another storefront root
func (c *PlayStoreClient) WithBaseURL(baseURL string) *PlayStoreClient {
	c.baseURL = baseURL
	return c
}

// IsPackageName reports whether query looks like an Android application ID (com.example.app)
func IsPackageName(query string) bool {
	return packageNamePattern.MatchString(query)
}

// DetailsURL returns the details page for an application ID
func (c *PlayStoreClient) DetailsURL(appID, country string) string {
	v := url.Values{}
	v.Set("id", appID)
	v.Set("hl", "en")
	v.Set("gl", country)
	return c.baseURL + "/store/apps/details?" + v.Encode()
}

// SearchURL returns the apps search page for free text
func (c *PlayStoreClient) SearchURL(term, country string) string {
	v := url.Values{}
	v.Set("q", term)
	v.Set("c", "apps")
	v.Set("gl", country)
	return c.baseURL + "/store/search?" + v.Encode()
}

// Lookup implements Catalog
func (c *PlayStoreClient) Lookup(ctx context.Context, query, country string) (*models.AppRecord, error) {
	query, country = normalizeQuery(query, country)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", utils.ErrAppNotFound)
	}
	lookupLog := c.log.WithFields(logrus.Fields{"query": query, "country": country})

	appID := query
	if !IsPackageName(query) {
		id, err := c.search(ctx, query, country)
		if err != nil {
			return nil, err
		}
		lookupLog.Debugf("Search resolved '%s' to %s", query, id)
		appID = id
	}

	pageURL := c.DetailsURL(appID, country)
	body, err := c.fetcher.GetWithRetry(ctx, pageURL, c.userAgent, maxCatalogBytes)
	if err != nil {
		if errors.Is(err, utils.ErrClientHTTPError) && utils.CategorizeError(err) == "HTTP_404" {
			return nil, fmt.Errorf("%w: '%s' in region '%s'", utils.ErrAppNotFound, appID, country)
		}
		return nil, utils.WrapErrorf(err, "play details '%s'", appID)
	}

	rec, err := parseDetailsPage(body, pageURL)
	if err != nil {
		return nil, err
	}
	rec.ID = appID
	found := 0
	for _, l := range rec.ScreenshotLists() {
		found += len(l)
	}
	lookupLog.WithField("app_id", appID).Debugf("Resolved '%s' with %d screenshot URL(s)", rec.Name, found)
	return rec, nil
}

// search returns the application ID of the first search hit
func (c *PlayStoreClient) search(ctx context.Context, term, country string) (string, error) {
	searchURL := c.SearchURL(term, country)
	body, err := c.fetcher.GetWithRetry(ctx, searchURL, c.userAgent, maxCatalogBytes)
	if err != nil {
		return "", utils.WrapErrorf(err, "play search '%s'", term)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: HTML of %s: %w", utils.ErrParsing, searchURL, err)
	}
	base, _ := url.Parse(searchURL)

	var appID string
	doc.Find(`a[href*="/store/apps/details?id="]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		u, err := base.Parse(href)
		if err != nil {
			return true
		}
		appID = u.Query().Get("id")
		return appID == ""
	})
	if appID == "" {
		return "", fmt.Errorf("%w: no Play search result for '%s' in region '%s'", utils.ErrAppNotFound, term, country)
	}
	return appID, nil
}

// parseDetailsPage extracts the title and screenshot URLs from a details page
func parseDetailsPage(body []byte, pageURL string) (*models.AppRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML of %s: %w", utils.ErrParsing, pageURL, err)
	}
	base, _ := url.Parse(pageURL)

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		name = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	if name == "" {
		name = "App"
	}

	imgs := doc.Find("img[data-screenshot-index]")
	if imgs.Length() == 0 {
		imgs = doc.Find(`img[alt*="Screenshot"]`)
	}

	var urls []string
	imgs.Each(func(_ int, s *goquery.Selection) {
		if src, ok := parse.ResolveImageURL(base, s.AttrOr("src", "")); ok {
			urls = append(urls, src)
		}
		for _, ref := range parse.SrcsetURLs(s.AttrOr("srcset", "")) {
			if u, ok := parse.ResolveImageURL(base, ref); ok {
				urls = append(urls, u)
			}
		}
	})

	rec := &models.AppRecord{
		Store:   models.StorePlayStore,
		Name:    name,
		PageURL: pageURL,
	}
	if len(urls) > 0 {
		rec.Groups = []models.ScreenshotGroup{{Device: models.DeviceAny, URLs: urls}}
	}
	return rec, nil
}
