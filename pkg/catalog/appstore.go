package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

// DefaultITunesBaseURL is the iTunes Search API root
const DefaultITunesBaseURL = "https://itunes.apple.com"

// AppStoreClient resolves apps through the iTunes lookup and search endpoints
type AppStoreClient struct {
	fetcher   *fetch.Fetcher
	baseURL   string
	userAgent string
	log       *logrus.Entry
}

// NewAppStoreClient creates an AppStoreClient against DefaultITunesBaseURL
func NewAppStoreClient(fetcher *fetch.Fetcher, userAgent string, log *logrus.Entry) *AppStoreClient {
	return &AppStoreClient{
		fetcher:   fetcher,
		baseURL:   DefaultITunesBaseURL,
		userAgent: userAgent,
		log:       log.WithField("store", models.StoreAppStore),
	}
}

// WithBaseURL points the client at another API root
func (c *AppStoreClient) WithBaseURL(baseURL string) *AppStoreClient {
	c.baseURL = baseURL
	return c
}

type itunesResponse struct {
	ResultCount int         `json:"resultCount"`
	Results     []itunesApp `json:"results"`
}

type itunesApp struct {
	TrackID               int64    `json:"trackId"`
	TrackName             string   `json:"trackName"`
	TrackViewURL          string   `json:"trackViewUrl"`
	ScreenshotURLs        []string `json:"screenshotUrls"`
	IPadScreenshotURLs    []string `json:"ipadScreenshotUrls"`
	AppleTVScreenshotURLs []string `json:"appletvScreenshotUrls"`
	MacScreenshotURLs     []string `json:"macScreenshotUrls"`
}

// LookupURL returns the endpoint used for query: id lookup for all-digit queries, search otherwise
func (c *AppStoreClient) LookupURL(query, country string) string {
	v := url.Values{}
	v.Set("country", country)
	if isAllDigits(query) {
		v.Set("id", query)
		return c.baseURL + "/lookup?" + v.Encode()
	}
	v.Set("term", query)
	v.Set("entity", "software")
	v.Set("limit", "1")
	return c.baseURL + "/search?" + v.Encode()
}

// Lookup implements Catalog
func (c *AppStoreClient) Lookup(ctx context.Context, query, country string) (*models.AppRecord, error) {
	query, country = normalizeQuery(query, country)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", utils.ErrAppNotFound)
	}

	endpoint := c.LookupURL(query, country)
	lookupLog := c.log.WithFields(logrus.Fields{"query": query, "country": country})
	lookupLog.Debugf("Querying %s", endpoint)

	body, err := c.fetcher.GetWithRetry(ctx, endpoint, c.userAgent, maxCatalogBytes)
	if err != nil {
		return nil, utils.WrapErrorf(err, "app store lookup '%s'", query)
	}

	var resp itunesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding JSON from %s: %w", utils.ErrParsing, endpoint, err)
	}
	if resp.ResultCount <= 0 || len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: '%s' in region '%s'", utils.ErrAppNotFound, query, country)
	}

	app := resp.Results[0]
	name := app.TrackName
	if name == "" {
		name = "App"
	}
	rec := &models.AppRecord{
		Store:   models.StoreAppStore,
		ID:      strconv.FormatInt(app.TrackID, 10),
		Name:    name,
		PageURL: app.TrackViewURL,
		Groups: []models.ScreenshotGroup{
			{Device: models.DevicePhone, URLs: app.ScreenshotURLs},
			{Device: models.DeviceTablet, URLs: app.IPadScreenshotURLs},
			{Device: models.DeviceTV, URLs: app.AppleTVScreenshotURLs},
			{Device: models.DeviceDesktop, URLs: app.MacScreenshotURLs},
		},
	}
	lookupLog.WithField("app_id", rec.ID).Debugf("Resolved '%s'", rec.Name)
	return rec, nil
}
