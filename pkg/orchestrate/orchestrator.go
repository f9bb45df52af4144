// Package orchestrate runs the lookup, merge and download pipeline for one app (Runner)
// or for a batch of apps sharing one HTTP stack (Orchestrator).
package orchestrate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/storeshot/pkg/models"
	"github.com/Sriram-PR/storeshot/pkg/utils"
)

// AppResult contains the outcome of one batch request
type AppResult struct {
	Request  Request
	Success  bool
	Report   *Report
	Error    error
	Duration time.Duration
}

// Orchestrator runs a batch of requests through one Runner, at most maxParallel at a time
type Orchestrator struct {
	runner    *Runner
	requests  []Request
	semaphore *semaphore.Weighted
	log       *logrus.Entry

	results   []AppResult
	resultsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewOrchestrator creates an orchestrator for requests
func NewOrchestrator(runner *Runner, requests []Request, maxParallel int, log *logrus.Entry) *Orchestrator {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		runner:    runner,
		requests:  requests,
		semaphore: semaphore.NewWeighted(int64(maxParallel)),
		log:       log,
		results:   make([]AppResult, len(requests)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run processes every request and returns results in request order
func (o *Orchestrator) Run() []AppResult {
	startTime := time.Now()
	o.log.Infof("Starting batch of %d app(s)", len(o.requests))

	var wg sync.WaitGroup
	for i, req := range o.requests {
		if err := o.semaphore.Acquire(o.ctx, 1); err != nil {
			o.setResult(i, AppResult{Request: req, Error: err})
			continue
		}
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			defer o.semaphore.Release(1)
			o.setResult(i, o.runOne(req))
		}(i, req)
	}
	wg.Wait()

	o.logSummary(time.Since(startTime))
	return o.results
}

func (o *Orchestrator) setResult(i int, r AppResult) {
	o.resultsMu.Lock()
	o.results[i] = r
	o.resultsMu.Unlock()
}

func (o *Orchestrator) runOne(req Request) AppResult {
	startTime := time.Now()
	result := AppResult{Request: req}

	report, err := o.runner.Run(o.ctx, req)
	result.Report = report
	result.Duration = time.Since(startTime)
	if err != nil {
		result.Error = err
		if errors.Is(err, utils.ErrAppNotFound) {
			o.log.Warnf("App '%s' not found in region '%s'", req.Query, strings.ToUpper(req.Country))
		} else {
			o.log.WithField("error_type", utils.CategorizeError(err)).Errorf("Run failed for '%s': %v", req.Query, err)
		}
		return result
	}
	result.Success = true
	return result
}

// Cancel stops the batch; running downloads end between items
func (o *Orchestrator) Cancel() {
	o.log.Info("Cancelling batch...")
	o.cancel()
}

// logSummary logs a summary of all batch results
func (o *Orchestrator) logSummary(totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Batch completed in %v", totalDuration)

	totalSaved := 0
	successCount := 0
	for _, r := range o.results {
		status := "SUCCESS"
		saved := 0
		if r.Report != nil {
			saved = r.Report.Saved
		}
		if r.Success {
			successCount++
		} else {
			status = "FAILED"
		}
		totalSaved += saved
		o.log.Infof("  %s [%s/%s]: %s - %d file(s) in %v", r.Request.Query, r.Request.Store, r.Request.Country, status, saved, r.Duration)
		if r.Error != nil {
			o.log.Infof("    Error: %v", r.Error)
		}
	}

	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d app(s) (%d success, %d failed), %d file(s) saved",
		len(o.results), successCount, len(o.results)-successCount, totalSaved)
	o.log.Info("============================================")
}

// ParseRequests reads a batch file: one "query[,country[,store]]" per line.
// Blank lines and lines starting with '#' are ignored; missing fields take the defaults.
func ParseRequests(r io.Reader, defaultStore models.Store, defaultCountry string) ([]Request, error) {
	var reqs []Request
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) > 3 {
			return nil, fmt.Errorf("%w: line %d: expected query[,country[,store]]", utils.ErrParsing, lineNo)
		}
		req := Request{Store: defaultStore, Query: strings.TrimSpace(fields[0]), Country: defaultCountry}
		if req.Query == "" {
			return nil, fmt.Errorf("%w: line %d: empty query", utils.ErrParsing, lineNo)
		}
		if len(fields) > 1 {
			if c := strings.ToLower(strings.TrimSpace(fields[1])); c != "" {
				req.Country = c
			}
		}
		if len(fields) > 2 {
			if s := models.Store(strings.ToLower(strings.TrimSpace(fields[2]))); s != "" {
				if !s.IsValid() {
					return nil, fmt.Errorf("%w: line %d: unknown store '%s'", utils.ErrParsing, lineNo, s)
				}
				req.Store = s
			}
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading batch file: %w", utils.ErrFilesystem, err)
	}
	return reqs, nil
}
