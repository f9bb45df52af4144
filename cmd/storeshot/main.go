package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/storeshot/pkg/config"
	"github.com/Sriram-PR/storeshot/pkg/fetch"
	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/orchestrate"
	"github.com/Sriram-PR/storeshot/pkg/storage"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

const version = "0.3.0"

const dbGCInterval = 10 * time.Minute

func main() {
	cmd, args := "interactive", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "fetch":
		runFetch(args)
	case "batch":
		runBatch(args)
	case "interactive":
		runInteractive(args)
	case "validate":
		runValidate(args)
	case "version":
		fmt.Printf("storeshot %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `storeshot - App Store / Google Play screenshot downloader

Usage:
  storeshot [command] [options]

Commands:
  interactive  Prompt for apps one at a time (default)
  fetch        Download screenshots for one app
  batch        Download screenshots for every app listed in a file
  validate     Validate configuration file
  version      Show version info

Run 'storeshot <command> -h' for command-specific help.`)
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}
	return log
}

// loadAndValidateConfig loads the config file (defaults when absent), validates it, and logs warnings.
func loadAndValidateConfig(configFile string, log *logrus.Logger) *config.AppConfig {
	appCfg, found, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if found {
		log.Infof("Loaded configuration from %s", configFile)
	} else {
		log.Debugf("No config file at '%s', using defaults", configFile)
	}

	appWarnings, err := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return appCfg
}

// logAppConfig logs the effective configuration at debug level
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Debugf("Config: MinBytes:%d, Timeout:%v, MaxImage:%d, Workers:%d, PerHost:%d, Delay:%v",
		appCfg.MinContentBytes, appCfg.RequestTimeout, appCfg.MaxImageBytes,
		appCfg.DownloadWorkers, appCfg.MaxRequestsPerHost, appCfg.DelayPerHost)
	log.Debugf("Config: Store:%s, Country:%s, OutputDir:%s, StateDir:%s, CacheTTL:%v, Robots:%t, Manifest:%t",
		appCfg.DefaultStore, appCfg.DefaultCountry, appCfg.OutputBaseDir, appCfg.StateDir,
		appCfg.LookupCacheTTL, appCfg.RespectRobots, appCfg.EnableManifest)
	log.Debugf("Config Retries: Max:%d, InitialDelay:%v, MaxDelay:%v",
		appCfg.MaxRetries, appCfg.InitialRetryDelay, appCfg.MaxRetryDelay)
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr != "" {
		go func() {
			log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Errorf("pprof server error: %v", err)
			}
		}()
	}
}

// handleSignals cancels on the first SIGINT/SIGTERM and exits on the second.
// The returned func stops signal delivery.
func handleSignals(cancel context.CancelFunc, log *logrus.Logger) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("PANIC in signal handler: %v", r)
			}
		}()
		sig := <-sigChan
		log.Warnf("Received signal: %v. Stopping after the current item...", sig)
		cancel()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	return func() { signal.Stop(sigChan) }
}

// buildRunner wires the HTTP stack, the optional lookup cache and the runner.
// The returned cleanup closes the cache database.
func buildRunner(ctx context.Context, appCfg *config.AppConfig, log *logrus.Logger) (*orchestrate.Runner, func(), error) {
	logEntry := log.WithField("component", "storeshot")

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, logEntry)
	fetcher := fetch.NewFetcher(httpClient, appCfg, logEntry)

	cleanup := func() {}
	var records storage.RecordStore
	if appCfg.LookupCacheTTL > 0 {
		store, err := storage.NewBadgerStore(appCfg.StateDir, logEntry)
		if err != nil {
			log.Warnf("Lookup cache unavailable, continuing without it: %v", err)
		} else {
			records = store
			go store.RunGC(ctx, dbGCInterval)
			cleanup = func() {
				if err := store.Close(); err != nil {
					log.Errorf("Error closing lookup cache: %v", err)
				}
			}
		}
	}

	runner, err := orchestrate.NewRunner(appCfg, fetcher, records, logEntry)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return runner, cleanup, nil
}

// applyOverrides applies CLI flag overrides on top of the validated config
func applyOverrides(appCfg *config.AppConfig, outDir string, workers int, manifest bool) {
	if outDir != "" {
		appCfg.OutputBaseDir = outDir
	}
	if workers > 0 {
		appCfg.DownloadWorkers = workers
	}
	if manifest {
		appCfg.EnableManifest = true
		if appCfg.ManifestFilename == "" {
			appCfg.ManifestFilename = config.GetEffectiveManifestFilename(*appCfg)
		}
	}
}

// runFetch handles the fetch subcommand
func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	query := fs.String("query", "", "App Store ID, package name or app title (required)")
	country := fs.String("country", "", "Two-letter storefront country (default from config, usually 'us')")
	store := fs.String("store", "", "Catalog to query: appstore or playstore (default from config)")
	outDir := fs.String("out", "", "Output base directory (overrides config)")
	workers := fs.Int("workers", 0, "Overlapped download workers (overrides config)")
	writeManifest := fs.Bool("manifest", false, "Write a manifest.yaml next to the screenshots")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storeshot fetch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  storeshot fetch -query 686449807 -country kz\n")
		fmt.Fprintf(os.Stderr, "  storeshot fetch -query org.telegram.messenger -store playstore\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "Error: -query is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	appCfg := loadAndValidateConfig(*configFile, log)
	applyOverrides(appCfg, *outDir, *workers, *writeManifest)
	logAppConfig(appCfg, log)
	startPprof(*pprofAddr, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopSignals := handleSignals(cancel, log)
	defer stopSignals()

	runner, cleanup, err := buildRunner(ctx, appCfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	if *country == "" {
		*country = appCfg.DefaultCountry
	}
	req := orchestrate.Request{Store: models.Store(strings.ToLower(*store)), Query: *query, Country: *country}
	report, err := runner.Run(ctx, req)
	exitCode := reportRun(os.Stdout, req, report, err, log)
	cleanup()
	os.Exit(exitCode)
}

// reportRun prints the outcome of one run and returns the process exit code
func reportRun(out io.Writer, req orchestrate.Request, report *orchestrate.Report, err error, log *logrus.Logger) int {
	switch {
	case errors.Is(err, utils.ErrAppNotFound):
		fmt.Fprintf(out, "[!] App not found in region '%s'.\n", strings.ToUpper(strings.TrimSpace(req.Country)))
		return 1
	case errors.Is(err, context.Canceled):
		if report != nil {
			fmt.Fprintf(out, "Cancelled. Files saved: %d in %s\n", report.Saved, report.Dir)
		}
		log.Warn("Run cancelled gracefully.")
		return 0
	case err != nil:
		log.WithField("error_type", utils.CategorizeError(err)).Errorf("Run failed: %v", err)
		return 1
	}

	fmt.Fprintf(out, "%s (%s): %d of %d screenshot(s) saved to %s\n",
		report.AppName, strings.ToUpper(report.Request.Country), report.Saved, report.Unique, report.Dir)
	if report.ManifestPath != "" {
		fmt.Fprintf(out, "Manifest: %s\n", report.ManifestPath)
	}
	return 0
}

// runBatch handles the batch subcommand
func runBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	listFile := fs.String("file", "", "File with one 'query[,country[,store]]' per line (required)")
	parallel := fs.Int("parallel", 0, "Apps processed at once (overrides config)")
	outDir := fs.String("out", "", "Output base directory (overrides config)")
	writeManifest := fs.Bool("manifest", false, "Write a manifest.yaml next to each app's screenshots")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storeshot batch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample apps file:\n")
		fmt.Fprintf(os.Stderr, "  686449807,kz\n  Signal\n  org.telegram.messenger,de,playstore\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *listFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	appCfg := loadAndValidateConfig(*configFile, log)
	applyOverrides(appCfg, *outDir, 0, *writeManifest)
	if *parallel > 0 {
		appCfg.MaxParallelApps = *parallel
	}
	logAppConfig(appCfg, log)
	startPprof(*pprofAddr, log)

	f, err := os.Open(*listFile)
	if err != nil {
		log.Fatalf("Cannot open apps file: %v", err)
	}
	requests, err := orchestrate.ParseRequests(f, models.Store(appCfg.DefaultStore), appCfg.DefaultCountry)
	f.Close()
	if err != nil {
		log.Fatalf("Invalid apps file '%s': %v", *listFile, err)
	}
	if len(requests) == 0 {
		log.Info("No apps listed, nothing to do.")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, cleanup, err := buildRunner(ctx, appCfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	orch := orchestrate.NewOrchestrator(runner, requests, appCfg.MaxParallelApps, log.WithField("component", "batch"))
	stopSignals := handleSignals(func() { orch.Cancel(); cancel() }, log)
	defer stopSignals()

	results := orch.Run()

	hasFailure := false
	for _, r := range results {
		if !r.Success && !errors.Is(r.Error, context.Canceled) {
			hasFailure = true
			break
		}
	}
	if hasFailure {
		cleanup()
		os.Exit(1)
	}
}

// runInteractive handles the interactive subcommand (the default)
func runInteractive(args []string) {
	fs := flag.NewFlagSet("interactive", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	store := fs.String("store", "", "Catalog to query: appstore or playstore (default from config)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	appCfg := loadAndValidateConfig(*configFile, log)
	logAppConfig(appCfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopSignals := handleSignals(cancel, log)
	defer stopSignals()

	runner, cleanup, err := buildRunner(ctx, appCfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	st := models.Store(strings.ToLower(*store))
	if st == "" {
		st = models.Store(appCfg.DefaultStore)
	}
	fmt.Printf("=== storeshot %s (%s) ===\n", version, st)
	interactiveLoop(ctx, os.Stdin, os.Stdout, runner, st, appCfg.DefaultCountry, log)
}

// interactiveLoop prompts for an app and a country until exit, quit, EOF or cancellation.
// Input is read on its own goroutine so a signal ends the loop without waiting for a line.
func interactiveLoop(ctx context.Context, in io.Reader, out io.Writer, runner *orchestrate.Runner, store models.Store, defaultCountry string, log *logrus.Logger) {
	lines := readLines(in)
	prompt := func(text string) (string, bool) {
		fmt.Fprint(out, text)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return "", false
		case line, ok := <-lines:
			if !ok {
				return "", false
			}
			return strings.TrimSpace(line), true
		}
	}

	for ctx.Err() == nil {
		query, ok := prompt("1. App ID or title (exit): ")
		if !ok {
			return
		}
		if l := strings.ToLower(query); l == "exit" || l == "quit" {
			return
		}
		if query == "" {
			continue
		}

		country, ok := prompt(fmt.Sprintf("2. Country (us, ru, kz) [%s]: ", defaultCountry))
		if !ok {
			return
		}
		country = strings.ToLower(country)
		if country == "" {
			country = defaultCountry
		}

		req := orchestrate.Request{Store: store, Query: query, Country: country}
		report, err := runner.Run(ctx, req)
		reportRun(out, req, report, err, log)
		fmt.Fprintln(out)
	}
}

// readLines streams lines from in until EOF or a read error, then closes the channel
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storeshot validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, found, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !found {
		fmt.Fprintf(stdout, "WARN: '%s' not found, checking built-in defaults\n", configPath)
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: store=%s country=%s output=%s\n", appCfg.DefaultStore, appCfg.DefaultCountry, appCfg.OutputBaseDir)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}
