package models

import "time"

// DeviceClass names a screenshot group inside a catalog record
type DeviceClass string

const (
	DevicePhone   DeviceClass = "phone"
	DeviceTablet  DeviceClass = "tablet"
	DeviceTV      DeviceClass = "tv"
	DeviceDesktop DeviceClass = "desktop"
	DeviceAny     DeviceClass = "any" // Unstructured list (Play, page scrape)
)

// DevicePriority is the fixed order screenshot groups are merged in
var DevicePriority = []DeviceClass{DevicePhone, DeviceTablet, DeviceTV, DeviceDesktop}

// ScreenshotGroup is one named list of screenshot URLs from a catalog record
type ScreenshotGroup struct {
	Device DeviceClass `json:"device"`
	URLs   []string    `json:"urls"`
}

// AppRecord is the catalog view of one app, as returned by a lookup
type AppRecord struct {
	Store   Store             `json:"store"`
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	PageURL string            `json:"page_url,omitempty"` // Storefront page, used by the scrape fallback
	Groups  []ScreenshotGroup `json:"groups,omitempty"`   // Ordered by DevicePriority
}

// ScreenshotLists returns the non-empty groups' URL lists in record order
func (r *AppRecord) ScreenshotLists() [][]string {
	lists := make([][]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		if len(g.URLs) > 0 {
			lists = append(lists, g.URLs)
		}
	}
	return lists
}

// CachedRecord wraps an AppRecord stored in the lookup cache
type CachedRecord struct {
	Record   AppRecord `json:"record"`
	CachedAt time.Time `json:"cached_at"`
}

// ResolvedTarget pairs a candidate URL with its high-res rewrite
type ResolvedTarget struct {
	Original string
	HighRes  string
}

// DownloadResult is the outcome of one URL's attempt sequence
type DownloadResult struct {
	Index        int // Position in the ordered URL sequence
	SourceURL    string
	FetchedURL   string // URL whose payload was kept (high-res or original)
	State        ItemState
	UsedFallback bool
	Bytes        int
	Ext          string // png, jpg or webp; sniffed from content
	Width        int    // 0 when the header could not be decoded
	Height       int
	SHA256       string
	LocalPath    string // Set only when State == ItemStateSaved
	Err          error
}

// RunManifest records one pipeline run for downstream consumers
type RunManifest struct {
	RunID      string          `yaml:"run_id"`
	Store      Store           `yaml:"store"`
	Query      string          `yaml:"query"`
	Country    string          `yaml:"country"`
	AppID      string          `yaml:"app_id,omitempty"`
	AppName    string          `yaml:"app_name,omitempty"`
	Source     string          `yaml:"source"` // "catalog" or "scrape"
	StartedAt  time.Time       `yaml:"started_at"`
	FinishedAt time.Time       `yaml:"finished_at"`
	Candidates int             `yaml:"candidates"`
	Unique     int             `yaml:"unique"`
	Saved      int             `yaml:"saved"`
	Files      []ManifestFile  `yaml:"files"`
	Skipped    []ManifestEntry `yaml:"skipped,omitempty"`
}

// ManifestFile describes one saved screenshot
type ManifestFile struct {
	File         string `yaml:"file"`
	SourceURL    string `yaml:"source_url"`
	FetchedURL   string `yaml:"fetched_url"`
	UsedFallback bool   `yaml:"used_fallback,omitempty"`
	Bytes        int    `yaml:"bytes"`
	Format       string `yaml:"format"`
	Width        int    `yaml:"width,omitempty"`
	Height       int    `yaml:"height,omitempty"`
	SHA256       string `yaml:"sha256"`
}

// ManifestEntry describes a URL that produced no file
type ManifestEntry struct {
	SourceURL string    `yaml:"source_url"`
	State     ItemState `yaml:"state"`
	ErrorType string    `yaml:"error_type,omitempty"`
}
