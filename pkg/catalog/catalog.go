// Package catalog resolves a user query (store ID, package name or title) to an app record
// carrying the app's screenshot URL lists.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/config"
	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/models"
)

// maxCatalogBytes caps catalog JSON and store page bodies
const maxCatalogBytes = 8 << 20

// Catalog looks up one app in a storefront
type Catalog interface {
	// Lookup returns the record for query in country, or an error wrapping utils.ErrAppNotFound
	Lookup(ctx context.Context, query, country string) (*models.AppRecord, error)
}

// New returns the client for store
func New(store models.Store, fetcher *fetch.Fetcher, cfg *config.AppConfig, log *logrus.Entry) (Catalog, error) {
	switch store {
	case models.StoreAppStore:
		return NewAppStoreClient(fetcher, cfg.APIUserAgent, log), nil
	case models.StorePlayStore:
		return NewPlayStoreClient(fetcher, cfg.PageUserAgent, log), nil
	}
	return nil, fmt.Errorf("unknown store '%s'", store)
}

// normalizeQuery trims the query and lower-cases the country, defaulting to "us"
func normalizeQuery(query, country string) (string, string) {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		country = "us"
	}
	return strings.TrimSpace(query), country
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
