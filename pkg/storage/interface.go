package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/storeshot/pkg/models"
)

// RecordStore persists catalog lookup results between runs
type RecordStore interface {
	// GetRecord returns the cached record for key, or found=false when absent or expired
	GetRecord(key string) (rec *models.CachedRecord, found bool, err error)

	// PutRecord stores rec under key. A positive ttl lets the store drop it on its own
	PutRecord(key string, rec *models.CachedRecord, ttl time.Duration) error

	// DeleteRecord removes key if present
	DeleteRecord(key string) error
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// GetRecordCount returns the number of live records
	GetRecordCount() (int, error)

	// RunGC runs value-log garbage collection until ctx is cancelled
	RunGC(ctx context.Context, interval time.Duration)

	// Close releases the underlying database
	Close() error
}

// LookupStore is the full persistence surface used by the cached catalog
type LookupStore interface {
	RecordStore
	StoreAdmin
}
