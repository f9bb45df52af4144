// Package scrape recovers screenshot URLs from a storefront web page when the catalog API has none.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/parse"
	"github.com/Sriram-PR/storeshot/pkg/shots"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

const maxPageBytes = 16 << 20

// ThumbPattern matches App Store CDN thumbnail URLs inside attribute values and script text.
// Whitespace and quotes end a match so srcset descriptors are not captured.
var ThumbPattern = regexp.MustCompile(`https://is[0-9]-ssl\.mzstatic\.com/image/thumb/[^\s"]+\.(?:jpg|png|webp)`)

// pageSources lists the elements whose values may carry screenshot URLs, walked in document order
const pageSources = `img[src], img[srcset], source[srcset], meta[property="og:image"], script[type="application/ld+json"]`

// Scraper extracts screenshot URLs from a store page
type Scraper struct {
	fetcher   *fetch.Fetcher
	robots    *fetch.RobotsHandler // nil disables the robots.txt check
	profile   *shots.Profile
	userAgent string
	log       *logrus.Entry
}

// NewScraper creates a Scraper. Pass a nil robots handler to skip robots.txt.
func NewScraper(fetcher *fetch.Fetcher, robots *fetch.RobotsHandler, profile *shots.Profile, userAgent string, log *logrus.Entry) *Scraper {
	return &Scraper{
		fetcher:   fetcher,
		robots:    robots,
		profile:   profile,
		userAgent: userAgent,
		log:       log.WithField("component", "scrape"),
	}
}

// Scrape returns the screenshot URLs found on pageURL in page order.
// Every failure is logged and yields an empty list.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) []string {
	pageLog := s.log.WithField("url", pageURL)
	urls, err := s.scrape(ctx, pageURL)
	if err != nil {
		pageLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Page scrape failed: %v", err)
		return nil
	}
	pageLog.Debugf("Page scrape found %d screenshot URL(s)", len(urls))
	return urls
}

func (s *Scraper) scrape(ctx context.Context, pageURL string) ([]string, error) {
	u, err := parse.ParsePageURL(pageURL)
	if err != nil {
		return nil, err
	}
	if s.robots != nil && !s.robots.TestAgent(ctx, u, s.userAgent) {
		return nil, fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, pageURL)
	}

	body, err := s.fetcher.GetWithRetry(ctx, pageURL, s.userAgent, maxPageBytes)
	if err != nil {
		return nil, err
	}
	return s.Extract(body)
}

// Extract pulls classifier-approved CDN URLs out of an HTML document.
// Image elements and page metadata come first in document order, followed by URLs found
// anywhere else (inline JSON payloads such as the shoebox data, data-* attributes).
// The result holds one URL per dedup key, first seen wins.
func (s *Scraper) Extract(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}

	var walked, swept []string
	collect := func(dst *[]string, value string) {
		for _, m := range ThumbPattern.FindAllString(value, -1) {
			if s.profile.IsScreenshot(m) {
				*dst = append(*dst, m)
			}
		}
	}

	doc.Find(pageSources).Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "img":
			collect(&walked, sel.AttrOr("src", ""))
			collect(&walked, sel.AttrOr("srcset", ""))
		case "source":
			collect(&walked, sel.AttrOr("srcset", ""))
		case "meta":
			collect(&walked, sel.AttrOr("content", ""))
		case "script":
			collect(&walked, sel.Text())
		}
	})

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range sel.Nodes[0].Attr {
			collect(&swept, attr.Val)
		}
		if goquery.NodeName(sel) == "script" {
			collect(&swept, sel.Text())
		}
	})

	return s.profile.Merge(walked, swept), nil
}
