package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/storeshot/pkg/config"
	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/orchestrate"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type recordingCatalog struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCatalog) Lookup(_ context.Context, query, country string) (*models.AppRecord, error) {
	c.mu.Lock()
	c.calls = append(c.calls, query+"|"+country)
	c.mu.Unlock()
	return nil, fmt.Errorf("%w: '%s'", utils.ErrAppNotFound, query)
}

func TestPrintUsageTo(t *testing.T) {
	var buf bytes.Buffer
	printUsageTo(&buf)
	out := buf.String()
	for _, cmd := range []string{"interactive", "fetch", "batch", "validate", "version"} {
		assert.Contains(t, out, cmd)
	}
}

func TestDoValidate(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	t.Run("valid file", func(t *testing.T) {
		path := write(t, "default_country: KZ\ndownload_workers: 4\n")
		var stdout, stderr bytes.Buffer
		code := doValidate(path, &stdout, &stderr)
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout.String(), "country=kz")
		assert.Contains(t, stdout.String(), "Configuration valid.")
		assert.Empty(t, stderr.String())
	})

	t.Run("warnings are printed", func(t *testing.T) {
		path := write(t, "max_retries: -1\n")
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 0, doValidate(path, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "WARN: max_retries cannot be negative")
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := doValidate(filepath.Join(t.TempDir(), "none.yaml"), &stdout, &stderr)
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout.String(), "not found")
		assert.Contains(t, stdout.String(), "store=appstore")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := write(t, "{{invalid yaml")
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 1, doValidate(path, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "parse config")
	})

	t.Run("unknown store", func(t *testing.T) {
		path := write(t, "default_store: amazon\n")
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 1, doValidate(path, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "default_store")
	})

	t.Run("bad skip pattern", func(t *testing.T) {
		path := write(t, "skip_url_patterns: ['(unclosed']\n")
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 1, doValidate(path, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "ERROR")
	})
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.AppConfig{}
	_, err := cfg.Validate()
	require.NoError(t, err)

	applyOverrides(cfg, "", 0, false)
	assert.Equal(t, ".", cfg.OutputBaseDir)
	assert.Equal(t, 1, cfg.DownloadWorkers)
	assert.False(t, cfg.EnableManifest)

	applyOverrides(cfg, "/tmp/shots", 3, true)
	assert.Equal(t, "/tmp/shots", cfg.OutputBaseDir)
	assert.Equal(t, 3, cfg.DownloadWorkers)
	assert.True(t, cfg.EnableManifest)
	assert.Equal(t, "manifest.yaml", cfg.ManifestFilename)
}

func TestReportRun(t *testing.T) {
	req := orchestrate.Request{Store: models.StoreAppStore, Query: "x", Country: "kz"}

	var out bytes.Buffer
	code := reportRun(&out, req, nil, fmt.Errorf("%w: x", utils.ErrAppNotFound), quietLogger())
	assert.Equal(t, 1, code)
	assert.Equal(t, "[!] App not found in region 'KZ'.\n", out.String())

	out.Reset()
	report := &orchestrate.Report{Request: req, AppName: "Telegram", Saved: 2, Unique: 3, Dir: "out/Telegram_kz", ManifestPath: "out/Telegram_kz/manifest.yaml"}
	code = reportRun(&out, req, report, nil, quietLogger())
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Telegram (KZ): 2 of 3 screenshot(s) saved to out/Telegram_kz")
	assert.Contains(t, out.String(), "Manifest: out/Telegram_kz/manifest.yaml")

	out.Reset()
	code = reportRun(&out, req, report, context.Canceled, quietLogger())
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Cancelled. Files saved: 2")

	out.Reset()
	code = reportRun(&out, req, nil, fmt.Errorf("%w: status 503", utils.ErrServerHTTPError), quietLogger())
	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
}

func TestInteractiveLoop(t *testing.T) {
	cfg := &config.AppConfig{OutputBaseDir: t.TempDir()}
	_, err := cfg.Validate()
	require.NoError(t, err)
	log := quietLogger()

	runner, err := orchestrate.NewRunner(cfg, fetch.NewFetcher(nil, cfg, log.WithField("test", true)), nil, log.WithField("test", true))
	require.NoError(t, err)
	cat := &recordingCatalog{}
	runner.WithCatalog(models.StoreAppStore, cat)

	in := strings.NewReader("Telegram\nKZ\n\nSignal\n\nquit\nnever-read\n")
	var out bytes.Buffer
	interactiveLoop(context.Background(), in, &out, runner, models.StoreAppStore, "us", log)

	assert.Equal(t, []string{"Telegram|kz", "Signal|us"}, cat.calls)
	assert.Contains(t, out.String(), "[!] App not found in region 'KZ'.")
	assert.Contains(t, out.String(), "[!] App not found in region 'US'.")
	assert.Contains(t, out.String(), "2. Country (us, ru, kz) [us]: ")
}

func TestInteractiveLoop_StopsOnEOFAndCancel(t *testing.T) {
	cfg := &config.AppConfig{}
	_, err := cfg.Validate()
	require.NoError(t, err)
	log := quietLogger()
	runner, err := orchestrate.NewRunner(cfg, fetch.NewFetcher(nil, cfg, log.WithField("test", true)), nil, log.WithField("test", true))
	require.NoError(t, err)
	cat := &recordingCatalog{}
	runner.WithCatalog(models.StoreAppStore, cat)

	var out bytes.Buffer
	interactiveLoop(context.Background(), strings.NewReader("Telegram"), &out, runner, models.StoreAppStore, "us", log)
	assert.Empty(t, cat.calls, "EOF at the country prompt ends the loop")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	interactiveLoop(ctx, strings.NewReader("Telegram\nus\n"), &out, runner, models.StoreAppStore, "us", log)
	assert.Empty(t, cat.calls)
}

func TestInteractiveLoop_CancelWhileWaitingForInput(t *testing.T) {
	cfg := &config.AppConfig{}
	_, err := cfg.Validate()
	require.NoError(t, err)
	log := quietLogger()
	runner, err := orchestrate.NewRunner(cfg, fetch.NewFetcher(nil, cfg, log.WithField("test", true)), nil, log.WithField("test", true))
	require.NoError(t, err)
	cat := &recordingCatalog{}
	runner.WithCatalog(models.StoreAppStore, cat)

	// A pipe nobody writes to blocks like an idle terminal
	in, w := io.Pipe()
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var out bytes.Buffer
	go func() {
		interactiveLoop(ctx, in, &out, runner, models.StoreAppStore, "us", log)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("interactive loop still waiting for input after cancellation")
	}
	assert.Empty(t, cat.calls)
	assert.Contains(t, out.String(), "1. App ID or title (exit): ")
}
