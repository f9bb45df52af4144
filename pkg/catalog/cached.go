package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/storage"
)

// CachedCatalog serves repeated lookups from a RecordStore for ttl.
// Failed lookups are never cached.
type CachedCatalog struct {
	inner Catalog
	store models.Store
	rs    storage.RecordStore
	ttl   time.Duration
	now   func() time.Time
	log   *logrus.Entry
}

// NewCachedCatalog wraps inner. ttl must be positive.
func NewCachedCatalog(inner Catalog, store models.Store, rs storage.RecordStore, ttl time.Duration, log *logrus.Entry) *CachedCatalog {
	return &CachedCatalog{
		inner: inner,
		store: store,
		rs:    rs,
		ttl:   ttl,
		now:   time.Now,
		log:   log.WithField("component", "lookup_cache"),
	}
}

// CacheKey identifies a lookup independent of query case and surrounding whitespace
func CacheKey(store models.Store, query, country string) string {
	query, country = normalizeQuery(query, country)
	return fmt.Sprintf("%s:%s:%s", store, country, strings.ToLower(query))
}

// Lookup implements Catalog
func (c *CachedCatalog) Lookup(ctx context.Context, query, country string) (*models.AppRecord, error) {
	key := CacheKey(c.store, query, country)
	keyLog := c.log.WithField("key", key)

	cached, found, err := c.rs.GetRecord(key)
	switch {
	case err != nil:
		keyLog.Warnf("Lookup cache read failed, querying catalog: %v", err)
	case found && c.now().Sub(cached.CachedAt) < c.ttl:
		keyLog.Debug("Lookup cache hit")
		rec := cached.Record
		return &rec, nil
	case found:
		keyLog.Debug("Lookup cache entry expired")
	}

	rec, err := c.inner.Lookup(ctx, query, country)
	if err != nil {
		return nil, err
	}

	entry := &models.CachedRecord{Record: *rec, CachedAt: c.now()}
	if err := c.rs.PutRecord(key, entry, c.ttl); err != nil {
		keyLog.Warnf("Lookup cache write failed: %v", err)
	}
	return rec, nil
}
