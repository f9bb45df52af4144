package orchestrate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/acquire"
	"github.com/Sriram-PR/storeshot/pkg/catalog"
	"github.com/Sriram-PR/storeshot/pkg/config"
	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/manifest"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/scrape"
	"github.com/Sriram-PR/storeshot/pkg/shots"
	"github.com/Sriram-PR/storeshot/pkg/storage"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

// Where the downloaded URL list came from
const (
	SourceCatalog = "catalog"
	SourceScrape  = "scrape"
)

// PageScraper recovers screenshot URLs from a storefront page
type PageScraper interface {
	Scrape(ctx context.Context, pageURL string) []string
}

// Request names one app to download
type Request struct {
	Store   models.Store
	Query   string
	Country string
}

// Report summarizes one completed Run
type Report struct {
	Request      Request
	AppID        string
	AppName      string
	Source       string // SourceCatalog or SourceScrape
	Found        int    // Candidate URLs before dedup
	Unique       int    // URLs handed to the acquisition engine
	Saved        int
	Dir          string
	ManifestPath string // Empty when manifests are disabled or the write failed
	Results      []models.DownloadResult
	Duration     time.Duration
}

// Runner takes one app from lookup to files on disk
type Runner struct {
	cfg      *config.AppConfig
	catalogs map[models.Store]catalog.Catalog
	scrapers map[models.Store]PageScraper
	profiles map[models.Store]*shots.Profile
	getter   acquire.Getter
	log      *logrus.Entry
}

// NewRunner wires the catalogs, the App Store page scraper and the screenshot profiles
// from validated config. records may be nil; lookups are cached only when it is set
// and lookup_cache_ttl is positive.
func NewRunner(cfg *config.AppConfig, fetcher *fetch.Fetcher, records storage.RecordStore, log *logrus.Entry) (*Runner, error) {
	skip, err := utils.CompileRegexPatterns(cfg.SkipURLPatterns)
	if err != nil {
		return nil, err
	}
	opts := []shots.Option{shots.WithExtraBlocklist(cfg.ExtraBlocklist), shots.WithSkipPatterns(skip)}

	r := &Runner{
		cfg:      cfg,
		catalogs: make(map[models.Store]catalog.Catalog),
		scrapers: make(map[models.Store]PageScraper),
		profiles: make(map[models.Store]*shots.Profile),
		getter:   fetcher,
		log:      log,
	}

	for _, store := range []models.Store{models.StoreAppStore, models.StorePlayStore} {
		profile, err := shots.ForStore(store, opts...)
		if err != nil {
			return nil, err
		}
		r.profiles[store] = profile

		c, err := catalog.New(store, fetcher, cfg, log)
		if err != nil {
			return nil, err
		}
		if records != nil && cfg.LookupCacheTTL > 0 {
			c = catalog.NewCachedCatalog(c, store, records, cfg.LookupCacheTTL, log)
		}
		r.catalogs[store] = c
	}

	var robots *fetch.RobotsHandler
	if cfg.RespectRobots {
		robots = fetch.NewRobotsHandler(fetcher, nil, cfg.DelayPerHost, cfg.PageUserAgent, log.WithField("component", "robots"))
	}
	r.scrapers[models.StoreAppStore] = scrape.NewScraper(fetcher, robots, r.profiles[models.StoreAppStore], cfg.PageUserAgent, log)

	return r, nil
}

// WithCatalog replaces the catalog used for store
func (r *Runner) WithCatalog(store models.Store, c catalog.Catalog) *Runner {
	r.catalogs[store] = c
	return r
}

// WithScraper replaces the page scraper for store; nil disables scraping for it
func (r *Runner) WithScraper(store models.Store, s PageScraper) *Runner {
	if s == nil {
		delete(r.scrapers, store)
		return r
	}
	r.scrapers[store] = s
	return r
}

// WithGetter replaces the image getter handed to the acquisition engine
func (r *Runner) WithGetter(g acquire.Getter) *Runner {
	r.getter = g
	return r
}

// normalize fills store and country defaults and trims the query
func (r *Runner) normalize(req Request) (Request, error) {
	if req.Store == "" {
		req.Store = models.Store(r.cfg.DefaultStore)
	}
	if !req.Store.IsValid() {
		return req, fmt.Errorf("%w: unknown store '%s'", utils.ErrConfigValidation, req.Store)
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, fmt.Errorf("%w: empty query", utils.ErrAppNotFound)
	}
	req.Country = strings.ToLower(strings.TrimSpace(req.Country))
	if req.Country == "" {
		req.Country = r.cfg.DefaultCountry
	}
	return req, nil
}

// Run looks the app up, builds the ordered URL list, downloads it into
// <output_base_dir>/<app folder> and writes the manifest when enabled.
// A lookup failure returns a nil report. Cancellation returns the partial report with ctx's error.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	req, err := r.normalize(req)
	if err != nil {
		return nil, err
	}
	runLog := r.log.WithFields(logrus.Fields{"store": req.Store, "query": req.Query, "country": req.Country})

	rec, err := r.catalogs[req.Store].Lookup(ctx, req.Query, req.Country)
	if err != nil {
		return nil, err
	}

	profile := r.profiles[req.Store]
	report := &Report{
		Request: req,
		AppID:   rec.ID,
		AppName: rec.Name,
		Source:  SourceCatalog,
		Dir:     filepath.Join(r.cfg.OutputBaseDir, utils.AppFolderName(rec.Name, req.Country)),
	}
	runLog.Infof("Target: %s (%s) -> folder: %s", rec.Name, strings.ToUpper(req.Country), report.Dir)

	var urls []string
	if lists := rec.ScreenshotLists(); len(lists) > 0 {
		for _, l := range lists {
			report.Found += len(l)
		}
		urls = profile.Merge(lists...)
	} else if s, ok := r.scrapers[req.Store]; ok && rec.PageURL != "" {
		runLog.Info("Catalog has no screenshots, scanning the store page...")
		found := s.Scrape(ctx, rec.PageURL)
		report.Source = SourceScrape
		report.Found = len(found)
		urls = profile.Merge(found)
	}
	report.Unique = len(urls)
	if report.Found != report.Unique {
		runLog.Debugf("Dedup collapsed %d candidate URL(s) to %d", report.Found, report.Unique)
	}

	engine := acquire.NewEngine(r.getter, profile, r.cfg, runLog)
	report.Saved, report.Results = engine.DownloadAll(ctx, urls, report.Dir)

	if r.cfg.EnableManifest {
		m := manifest.New(req.Store, req.Query, req.Country, start)
		m.AppID = rec.ID
		m.AppName = rec.Name
		m.Source = report.Source
		m.Candidates = report.Found
		manifest.Record(m, report.Results)
		path, err := manifest.Write(report.Dir, config.GetEffectiveManifestFilename(*r.cfg), m, runLog)
		if err != nil {
			runLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Manifest not written: %v", err)
		} else {
			report.ManifestPath = path
		}
	}

	report.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
