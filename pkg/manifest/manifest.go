// Package manifest writes the per-run YAML record that maps each saved file back to its source URL.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

// New starts a manifest for one run with a fresh run ID
func New(store models.Store, query, country string, startedAt time.Time) *models.RunManifest {
	return &models.RunManifest{
		RunID:     uuid.NewString(),
		Store:     store,
		Query:     query,
		Country:   country,
		StartedAt: startedAt,
		Files:     []models.ManifestFile{},
	}
}

// Record fills the file and skip sections from engine results, in input order
func Record(m *models.RunManifest, results []models.DownloadResult) {
	m.Unique = len(results)
	m.Files = m.Files[:0]
	m.Skipped = nil
	for _, r := range results {
		if r.State == models.ItemStateSaved {
			m.Files = append(m.Files, models.ManifestFile{
				File:         filepath.Base(r.LocalPath),
				SourceURL:    r.SourceURL,
				FetchedURL:   r.FetchedURL,
				UsedFallback: r.UsedFallback,
				Bytes:        r.Bytes,
				Format:       r.Ext,
				Width:        r.Width,
				Height:       r.Height,
				SHA256:       r.SHA256,
			})
			continue
		}
		entry := models.ManifestEntry{SourceURL: r.SourceURL, State: r.State}
		if r.Err != nil {
			entry.ErrorType = utils.CategorizeError(r.Err)
		}
		m.Skipped = append(m.Skipped, entry)
	}
	m.Saved = len(m.Files)
}

// Write marshals m to dir/filename, replacing any previous manifest there.
// Returns the written path.
func Write(dir, filename string, m *models.RunManifest, log *logrus.Entry) (string, error) {
	path := filepath.Join(dir, filename)
	if m.FinishedAt.IsZero() {
		m.FinishedAt = time.Now()
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run manifest to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: writing manifest '%s': %w", utils.ErrFilesystem, path, err)
	}

	log.WithField("run_id", m.RunID).Infof("Wrote run manifest (%d file(s)) to %s", m.Saved, path)
	return path, nil
}

// Load reads a manifest written by Write
func Load(path string) (*models.RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest '%s': %w", utils.ErrFilesystem, path, err)
	}
	var m models.RunManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest YAML '%s': %w", utils.ErrParsing, path, err)
	}
	return &m, nil
}
