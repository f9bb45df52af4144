// Package acquire downloads an ordered list of screenshot URLs, preferring a high-resolution
// rewrite and falling back once to the original, and writes the accepted payloads as
// sequentially numbered files.
package acquire

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/storeshot/pkg/config"
	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/shots"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

// FilePrefix starts every saved file name: screen_1.png, screen_2.jpg, ...
const FilePrefix = "screen_"

// Getter performs one bounded GET and returns the body. *fetch.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, rawURL, userAgent string, timeout time.Duration, maxBytes int64) ([]byte, error)
}

// Engine runs the per-URL attempt sequence and owns output file naming
type Engine struct {
	getter      Getter
	profile     *shots.Profile
	rateLimiter *fetch.RateLimiter
	minBytes    int64
	maxBytes    int64
	timeout     time.Duration
	delay       time.Duration
	workers     int
	perHost     int
	userAgent   string
	log         *logrus.Entry
}

// NewEngine creates an Engine from validated config
func NewEngine(getter Getter, profile *shots.Profile, cfg *config.AppConfig, log *logrus.Entry) *Engine {
	return &Engine{
		getter:      getter,
		profile:     profile,
		rateLimiter: fetch.NewRateLimiter(cfg.DelayPerHost, log),
		minBytes:    cfg.MinContentBytes,
		maxBytes:    cfg.MaxImageBytes,
		timeout:     cfg.RequestTimeout,
		delay:       cfg.DelayPerHost,
		workers:     cfg.DownloadWorkers,
		perHost:     cfg.MaxRequestsPerHost,
		userAgent:   cfg.APIUserAgent,
		log:         log,
	}
}

// fetched is one URL's outcome before file naming; payload is set only for acceptable content
type fetched struct {
	res     models.DownloadResult
	payload []byte
}

// DownloadAll processes urls in order and writes accepted payloads to dest as
// screen_<n>.<ext>, where n counts successful saves only. It returns the number of
// files written and one result per input URL. Per-item failures never stop the loop;
// cancelling ctx does, leaving unprocessed items pending.
func (e *Engine) DownloadAll(ctx context.Context, urls []string, dest string) (int, []models.DownloadResult) {
	results := make([]models.DownloadResult, len(urls))

	if err := os.MkdirAll(dest, 0755); err != nil {
		wrapped := fmt.Errorf("%w: creating output directory '%s': %w", utils.ErrFilesystem, dest, err)
		e.log.Error(wrapped)
		for i, u := range urls {
			results[i] = models.DownloadResult{Index: i, SourceURL: u, State: models.ItemStateFailed, Err: wrapped}
		}
		return 0, results
	}

	if len(urls) == 0 {
		e.log.Info("No links to download.")
		return 0, results
	}
	e.log.Infof("Found %d link(s). Downloading into '%s'...", len(urls), dest)

	saved := 0
	if e.workers > 1 && len(urls) > 1 {
		items := e.fetchOverlapped(ctx, urls)
		for i := range items {
			saved += e.commit(&items[i], dest, saved+1)
			results[i] = items[i].res
		}
	} else {
		for i, u := range urls {
			var it fetched
			if ctx.Err() != nil {
				it = pending(i, u, ctx.Err())
			} else {
				it = e.acquire(ctx, i, u)
			}
			saved += e.commit(&it, dest, saved+1)
			results[i] = it.res
		}
	}

	e.log.Infof("Done. Files saved: %d", saved)
	return saved, results
}

// commit saves an acquired payload as number n and reports how many files it wrote
func (e *Engine) commit(it *fetched, dest string, n int) int {
	if it.payload == nil {
		return 0
	}
	e.save(&it.res, it.payload, dest, n)
	it.payload = nil
	if it.res.State == models.ItemStateSaved {
		return 1
	}
	return 0
}

// fetchOverlapped runs acquire concurrently into an index-addressed buffer.
// Naming happens afterwards in list order, so output matches the sequential mode.
// Sequential mode writes each file as soon as it is fetched instead.
func (e *Engine) fetchOverlapped(ctx context.Context, urls []string) []fetched {
	items := make([]fetched, len(urls))
	started := make([]bool, len(urls))
	hostSem := fetch.NewHostSemaphorePool(e.perHost, e.log)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, u := range urls {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			host := hostOf(u)
			if err := hostSem.Acquire(ctx, host); err != nil {
				items[i] = pending(i, u, err)
				return nil
			}
			defer hostSem.Release(host)
			items[i] = e.acquire(ctx, i, u)
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range urls {
		if !started[i] {
			items[i] = pending(i, u, ctx.Err())
		}
	}
	return items
}

func pending(i int, u string, err error) fetched {
	return fetched{res: models.DownloadResult{Index: i, SourceURL: u, State: models.ItemStatePending, Err: err}}
}

// acquire runs the classifier gate, the high-res attempt and at most one fallback
func (e *Engine) acquire(ctx context.Context, idx int, sourceURL string) fetched {
	res := models.DownloadResult{Index: idx, SourceURL: sourceURL, State: models.ItemStatePending}
	itemLog := e.log.WithFields(logrus.Fields{"item": idx + 1, "url": sourceURL})

	if !e.profile.IsScreenshot(sourceURL) {
		res.State = models.ItemStateSkipped
		res.Err = fmt.Errorf("%w: %s", utils.ErrNotScreenshot, sourceURL)
		itemLog.Debug("Skipped: not a screenshot")
		return fetched{res: res}
	}

	target := e.profile.Resolve(sourceURL)
	res.State = models.ItemStateHighResAttempted
	payload, err := e.get(ctx, target.HighRes)
	if err == nil && int64(len(payload)) >= e.minBytes {
		res.FetchedURL = target.HighRes
		return fetched{res: res, payload: payload}
	}

	if err != nil {
		itemLog.WithField("error_type", utils.CategorizeError(err)).Debugf("High-res attempt failed: %v", err)
	} else {
		itemLog.Debugf("High-res payload undersized (%d bytes)", len(payload))
	}
	if ctx.Err() != nil {
		res.State = models.ItemStateFailed
		res.Err = ctx.Err()
		return fetched{res: res}
	}

	res.State = models.ItemStateFallbackAttempted
	res.UsedFallback = true
	itemLog.Info("High-res unavailable, falling back to original")

	payload, err = e.get(ctx, sourceURL)
	if err != nil {
		res.State = models.ItemStateFailed
		res.Err = err
		itemLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Download failed: %v", err)
		return fetched{res: res}
	}
	if int64(len(payload)) < e.minBytes {
		res.State = models.ItemStateSkipped
		res.Bytes = len(payload)
		res.Err = fmt.Errorf("%w: %d bytes < %d", utils.ErrUndersized, len(payload), e.minBytes)
		itemLog.Infof("Skipped: payload %d bytes is below %d", len(payload), e.minBytes)
		return fetched{res: res}
	}
	res.FetchedURL = sourceURL
	return fetched{res: res, payload: payload}
}

func (e *Engine) get(ctx context.Context, rawURL string) ([]byte, error) {
	host := hostOf(rawURL)
	e.rateLimiter.ApplyDelay(ctx, host, e.delay)
	payload, err := e.getter.Get(ctx, rawURL, e.userAgent, e.timeout, e.maxBytes)
	e.rateLimiter.UpdateLastRequestTime(host)
	return payload, err
}

// save writes payload as screen_<n>.<ext> and fills the result's file fields.
// A write failure marks the item failed and leaves n free for the next success.
func (e *Engine) save(res *models.DownloadResult, payload []byte, dest string, n int) {
	ext := SniffExt(payload)
	name := fmt.Sprintf("%s%d.%s", FilePrefix, n, ext)
	localPath := filepath.Join(dest, name)

	if err := os.WriteFile(localPath, payload, 0644); err != nil {
		res.State = models.ItemStateFailed
		res.Err = fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, localPath, err)
		e.log.WithField("url", res.SourceURL).Error(res.Err)
		return
	}

	res.State = models.ItemStateSaved
	res.LocalPath = localPath
	res.Bytes = len(payload)
	res.Ext = ext
	res.SHA256 = utils.CalculateBytesSHA256(payload)
	res.Width, res.Height = Dimensions(payload)
	e.log.Infof("[+] %s (%d KB)", localPath, len(payload)/1024)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
