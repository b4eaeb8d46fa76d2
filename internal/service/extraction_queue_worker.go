package service

import (
	"context"
	"log"
	"sync"
	"time"

	"invoxtract/internal/port"
)

// ExtractionQueueConfig holds settings for the extraction queue worker.
type ExtractionQueueConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	Concurrency  int
	JobTimeout   time.Duration
}

// ExtractionQueueWorker polls for queued extraction jobs and runs them with
// bounded concurrency. Each job still runs its own sequential pipeline.
type ExtractionQueueWorker struct {
	jobRepo port.JobRepository
	svc     InvoiceService
	cfg     ExtractionQueueConfig
	wg      sync.WaitGroup
}

// NewExtractionQueueWorker creates a new ExtractionQueueWorker.
func NewExtractionQueueWorker(jobRepo port.JobRepository, svc InvoiceService, cfg ExtractionQueueConfig) *ExtractionQueueWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	return &ExtractionQueueWorker{
		jobRepo: jobRepo,
		svc:     svc,
		cfg:     cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight jobs have finished.
func (w *ExtractionQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("extractionQueueWorker: started (poll=%s, concurrency=%d, maxRetries=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency, w.cfg.MaxRetries)

	for {
		select {
		case <-ctx.Done():
			log.Printf("extractionQueueWorker: shutting down, waiting for in-flight jobs...")
			w.wg.Wait()
			log.Printf("extractionQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			w.poll(ctx, sem)
		}
	}
}

func (w *ExtractionQueueWorker) poll(ctx context.Context, sem chan struct{}) {
	available := w.cfg.Concurrency - len(sem)
	if available <= 0 {
		return
	}

	jobs, err := w.jobRepo.ClaimQueued(ctx, available)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("extractionQueueWorker: ClaimQueued error: %v", err)
		}
		return
	}

	for i := range jobs {
		job := jobs[i]

		sem <- struct{}{}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()

			// fresh context so in-flight jobs finish during shutdown
			jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
			defer cancel()

			log.Printf("extractionQueueWorker: dispatching job %s (attempt %d)", job.ID, job.Attempts)
			w.svc.RunJob(jobCtx, &job, w.cfg.MaxRetries)
		}()
	}
}
