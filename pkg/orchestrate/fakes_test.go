package orchestrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/storeshot/pkg/config"
	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{OutputBaseDir: t.TempDir()}
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

func testRunner(t *testing.T, cfg *config.AppConfig) *Runner {
	t.Helper()
	fetcher := fetch.NewFetcher(&http.Client{Timeout: time.Second}, cfg, testLogger())
	r, err := NewRunner(cfg, fetcher, nil, testLogger())
	require.NoError(t, err)
	return r
}

type lookupCall struct {
	query   string
	country string
}

// fakeCatalog answers from a query-keyed map and records every call
type fakeCatalog struct {
	mu      sync.Mutex
	records map[string]*models.AppRecord
	calls   []lookupCall
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{records: make(map[string]*models.AppRecord)}
}

func (f *fakeCatalog) Lookup(_ context.Context, query, country string) (*models.AppRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, lookupCall{query, country})
	rec, ok := f.records[query]
	if !ok {
		return nil, fmt.Errorf("%w: '%s' in region '%s'", utils.ErrAppNotFound, query, country)
	}
	cp := *rec
	return &cp, nil
}

type fakeScraper struct {
	mu    sync.Mutex
	urls  []string
	pages []string
}

func (f *fakeScraper) Scrape(_ context.Context, pageURL string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, pageURL)
	return f.urls
}

// fakeGetter serves canned bodies by exact URL; anything else is a 404
type fakeGetter struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  int
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{bodies: make(map[string][]byte)}
}

func (f *fakeGetter) Get(_ context.Context, rawURL, _ string, _ time.Duration, _ int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if b, ok := f.bodies[rawURL]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: status 404 404 Not Found", utils.ErrClientHTTPError)
}

// payload returns a JPEG-looking body of n bytes tagged with b
func payload(n int, b byte) []byte {
	out := make([]byte, n)
	out[0], out[1], out[2] = 0xFF, 0xD8, 0xFF
	out[n-1] = b
	return out
}

type memRecordStore struct {
	mu   sync.Mutex
	data map[string]models.CachedRecord
}

func (m *memRecordStore) GetRecord(key string) (*models.CachedRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (m *memRecordStore) PutRecord(key string, rec *models.CachedRecord, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]models.CachedRecord)
	}
	m.data[key] = *rec
	return nil
}

func (m *memRecordStore) DeleteRecord(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
