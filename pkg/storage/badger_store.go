package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/log"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

const (
	recordKeyPrefix = "lookup:"   // Prefix for catalog record keys in DB
	lookupDBDir     = "lookup_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements LookupStore using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerStore opens (or creates) the lookup database under stateDir
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	dbPath := filepath.Join(stateDir, lookupDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	logger.Debugf("Opening lookup cache at: %s", dbPath)

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}
	return &BadgerStore{db: db, log: logger}, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// GetRecord implements RecordStore
func (s *BadgerStore) GetRecord(key string) (*models.CachedRecord, bool, error) {
	dbKey := []byte(recordKeyPrefix + key)
	var rec *models.CachedRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(dbKey)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting key '%s': %w", utils.ErrDatabase, string(dbKey), errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.CachedRecord
			if errJSON := json.Unmarshal(val, &decoded); errJSON != nil {
				// Unreadable entries behave like misses and get overwritten on the next put
				s.log.Warnf("Failed to unmarshal cached record for key '%s': %v", string(dbKey), errJSON)
				return nil
			}
			rec = &decoded
			return nil
		})
	})
	if err != nil {
		s.log.Errorf("DB View error in GetRecord for key '%s': %v", string(dbKey), err)
		return nil, false, err
	}
	return rec, rec != nil, nil
}

// PutRecord implements RecordStore
func (s *BadgerStore) PutRecord(key string, rec *models.CachedRecord, ttl time.Duration) error {
	if rec == nil {
		return errors.New("cannot store nil record")
	}
	dbKey := []byte(recordKeyPrefix + key)
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal record for key '%s': %w", utils.ErrDatabase, string(dbKey), err)
	}

	err = s.dbUpdate(func(txn *badger.Txn) error {
		e := badger.NewEntry(dbKey, val)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		s.log.WithField("key", string(dbKey)).Errorf("DB Update error in PutRecord: %v", err)
		return fmt.Errorf("%w: storing key '%s': %w", utils.ErrDatabase, string(dbKey), err)
	}
	return nil
}

// DeleteRecord implements RecordStore
func (s *BadgerStore) DeleteRecord(key string) error {
	dbKey := []byte(recordKeyPrefix + key)
	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.Delete(dbKey)
	})
	if err != nil {
		return fmt.Errorf("%w: deleting key '%s': %w", utils.ErrDatabase, string(dbKey), err)
	}
	return nil
}

// GetRecordCount implements StoreAdmin with a key-only scan
func (s *BadgerStore) GetRecordCount() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(recordKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting records: %w", utils.ErrDatabase, err)
	}
	return count, nil
}

// RunGC runs BadgerDB's value log garbage collection every interval until ctx is done
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			for err == nil {
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection: %v", ctx.Err())
			return
		}
	}
}

// Close implements StoreAdmin
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing lookup DB: %v", err)
		return err
	}
	s.log.Debug("Lookup DB closed.")
	return nil
}
