// Package worker runs the background rescrape scheduler. Completed jobs
// carry a next_scrape_due timestamp; the worker polls for due jobs, claims
// them and drives the scrape pipeline so catalog prices stay fresh without
// manual invocations.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pop-scanner/internal/logging"
	"github.com/pop-scanner/internal/models"
	"github.com/pop-scanner/internal/scraper"
	"github.com/pop-scanner/internal/service"
)

// ScrapeRunner executes one scrape run end to end.
type ScrapeRunner interface {
	Run(ctx context.Context, input *service.RunInput) (*service.Summary, error)
}

// JobSource claims due jobs and records failures. Claiming marks the job
// running so concurrent replicas don't pick it up twice.
type JobSource interface {
	ClaimDue(ctx context.Context, limit int) ([]*models.ScrapeJob, error)
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

// CatalogSource loads the catalog item a job refers to.
type CatalogSource interface {
	Get(ctx context.Context, id string) (*models.FunkoPop, error)
}

// RescrapeWorker polls for due scrape jobs and runs them.
type RescrapeWorker struct {
	runner       ScrapeRunner
	jobs         JobSource
	catalog      CatalogSource
	pollInterval time.Duration
	batchSize    int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// RescrapeWorkerConfig holds configuration for the rescrape worker
type RescrapeWorkerConfig struct {
	Runner       ScrapeRunner
	Jobs         JobSource
	Catalog      CatalogSource
	PollInterval time.Duration
	BatchSize    int
}

// NewRescrapeWorker creates a rescrape worker.
func NewRescrapeWorker(cfg *RescrapeWorkerConfig) (*RescrapeWorker, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("scrape runner cannot be nil")
	}
	if cfg.Jobs == nil {
		return nil, fmt.Errorf("job source cannot be nil")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog source cannot be nil")
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = time.Minute
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	return &RescrapeWorker{
		runner:       cfg.Runner,
		jobs:         cfg.Jobs,
		catalog:      cfg.Catalog,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins the polling loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (w *RescrapeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("rescrape worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	logging.WithField("pollInterval", w.pollInterval.String()).Info("Rescrape worker starting")

	go w.pollLoop(ctx)
	return nil
}

// Stop signals the polling loop and waits for it to finish.
func (w *RescrapeWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("rescrape worker is not running")
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	logging.Info("Rescrape worker stopped")
	return nil
}

func (w *RescrapeWorker) pollLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.ProcessDue(ctx); err != nil {
				logging.WithError(err).Error("Rescrape poll failed")
			}
		}
	}
}

// ProcessDue claims one batch of due jobs and runs each. A failed run marks
// its job failed and the batch continues; the returned count is the number
// of jobs that completed.
func (w *RescrapeWorker) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := w.jobs.ClaimDue(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	logging.WithField("jobs", len(jobs)).Info("Processing due scrape jobs")

	completed := 0
	for _, job := range jobs {
		if err := w.runJob(ctx, job); err != nil {
			logging.WithError(err).WithFields(map[string]interface{}{
				"jobId":      job.ID,
				"funkoPopId": job.FunkoPopID,
			}).Error("Scheduled scrape failed")

			if markErr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
				logging.WithError(markErr).WithField("jobId", job.ID).Error("Failed to mark job failed")
			}
			continue
		}
		completed++
	}

	return completed, nil
}

func (w *RescrapeWorker) runJob(ctx context.Context, job *models.ScrapeJob) error {
	pop, err := w.catalog.Get(ctx, job.FunkoPopID)
	if err != nil {
		return fmt.Errorf("failed to load catalog item: %w", err)
	}

	_, err = w.runner.Run(ctx, &service.RunInput{
		JobID: job.ID,
		Item: scraper.CatalogItem{
			ID:     pop.ID,
			Name:   pop.Name,
			Series: pop.Series,
			Number: pop.Number,
		},
		IsManual: false,
	})
	return err
}
