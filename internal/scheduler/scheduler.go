package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"land-tracker/internal/config"
	"land-tracker/internal/database"
	"land-tracker/internal/models"
	"land-tracker/internal/reconcile"
	"land-tracker/internal/scraper"
	"land-tracker/internal/search"
	"land-tracker/internal/snapshot"
)

// ErrRunInProgress is returned when a run is triggered while another run
// of this process is still going
var ErrRunInProgress = errors.New("a scrape run is already in progress")

// Scheduler drives scrape runs, both cron-scheduled and manually triggered.
// Fetching is concurrent per source; reconciliation of the combined batch
// is single threaded.
type Scheduler struct {
	cron      *cron.Cron
	store     database.Store
	fetcher   *scraper.Fetcher
	enricher  *scraper.Enricher
	engine    *reconcile.Engine
	snapshot  *snapshot.Service
	search    *search.SearchClient
	config    *config.Config
	isRunning bool

	mu        sync.Mutex
	runActive bool
}

// NewScheduler creates a new scheduler. search may be nil when no search
// backend is configured.
func NewScheduler(store database.Store, searchClient *search.SearchClient, cfg *config.Config) *Scheduler {
	fetcher := scraper.NewFetcher(scraper.FetcherConfig{
		UserAgent:        cfg.UserAgent,
		MaxRetries:       cfg.Run.MaxRetries,
		RetryDelay:       cfg.Run.GetRetryDelay(),
		RequestDelay:     cfg.Run.GetRequestDelay(),
		HeadlessFallback: cfg.Run.HeadlessFallback,
	})

	return &Scheduler{
		cron:     cron.New(),
		store:    store,
		fetcher:  fetcher,
		enricher: scraper.NewEnricher(fetcher, cfg.Run.DetailEnrichLimit, cfg.Run.HeadlessFallback),
		engine:   reconcile.NewEngine(store, cfg.Criteria),
		snapshot: snapshot.NewService(store),
		search:   searchClient,
		config:   cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Run.DailyRunEnabled {
		log.Println("Scheduler: Daily run is disabled in configuration")
		return nil
	}

	cronSpec := s.parseDailyRunTime(s.config.Run.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Println("Scheduler: Starting daily scrape run...")
		run, err := s.RunNow(context.Background())
		if err != nil {
			log.Printf("Scheduler: Daily run failed: %v", err)
			return
		}
		log.Printf("Scheduler: Daily run %d completed with outcome %s", run.ID, run.Outcome)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with daily run at %s (cron: %s)", s.config.Run.DailyRunTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

// RunNow executes one full scrape run: fetch every configured source,
// reconcile the combined batch, snapshot the written listings, re-index,
// finalize the run record. Overlapping runs in the same process are
// rejected.
func (s *Scheduler) RunNow(ctx context.Context) (*models.ScrapeRun, error) {
	s.mu.Lock()
	if s.runActive {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.runActive = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.runActive = false
		s.mu.Unlock()
	}()

	if err := s.store.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrUnavailable, err)
	}

	now := time.Now().UTC()
	run := &models.ScrapeRun{
		StartedUTC:     now,
		SourcesQueried: len(s.config.Sources),
		Outcome:        models.RunOutcomeRunning,
	}
	if err := s.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}
	log.Printf("Scheduler: Run %d started, %d sources", run.ID, run.SourcesQueried)

	batch, failedSources := s.fetchAllSources(ctx)
	run.SourcesFailed = failedSources

	batch = s.enricher.EnrichBatch(ctx, batch)

	summary, err := s.engine.ReconcileBatch(batch, time.Now().UTC())
	if err != nil {
		// Total store loss mid-run; closing out the run record is best
		// effort at this point
		run.Outcome = models.RunOutcomeFailure
		finished := time.Now().UTC()
		run.FinishedUTC = &finished
		if ferr := s.store.FinalizeRun(run); ferr != nil {
			log.Printf("Scheduler: Run %d could not be finalized after store loss: %v", run.ID, ferr)
		}
		return run, err
	}

	run.ListingsWritten = summary.Written()
	run.ListingsSkipped = summary.Duplicates
	run.WriteErrors = summary.WriteErrors

	s.snapshotWritten(summary, run.ID)
	s.reindex()

	run.Outcome = run.DecideOutcome()
	finished := time.Now().UTC()
	run.FinishedUTC = &finished
	if err := s.store.FinalizeRun(run); err != nil {
		return run, fmt.Errorf("failed to finalize run %d: %w", run.ID, err)
	}

	log.Printf("Scheduler: Run %d finished. Written: %d, Skipped: %d, Write errors: %d, Failed sources: %d, Outcome: %s",
		run.ID, run.ListingsWritten, run.ListingsSkipped, run.WriteErrors, run.SourcesFailed, run.Outcome)
	return run, nil
}

// fetchAllSources fetches every configured source concurrently, bounded by
// the concurrency limit. A failed source contributes zero records and a
// failure count; it never aborts the run.
func (s *Scheduler) fetchAllSources(ctx context.Context) ([]models.RawListing, int) {
	// A zero limit would make the semaphore unbuffered and deadlock the
	// fetch goroutines; the floor is serial fetching
	concurrency := s.config.Run.ConcurrentLimit
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		batch   []models.RawListing
		failed  int
		wg      sync.WaitGroup
		limiter = make(chan struct{}, concurrency)
	)

	for _, src := range s.config.Sources {
		wg.Add(1)
		go func(src config.Source) {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			srcCtx, cancel := context.WithTimeout(ctx, s.config.Run.GetTimeoutPerSource())
			defer cancel()

			listings, err := s.fetcher.FetchSource(srcCtx, src)
			if err != nil {
				log.Printf("Scheduler: Source %s failed: %v", src.ID, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			mu.Lock()
			batch = append(batch, listings...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	return batch, failed
}

// snapshotWritten records a snapshot for every listing the batch created
// or updated. Snapshot failures are logged, not propagated; the listings
// themselves are already durable.
func (s *Scheduler) snapshotWritten(summary *reconcile.Summary, runID uint) {
	now := time.Now().UTC()
	for _, r := range summary.Results {
		if r.Outcome != reconcile.ItemCreated && r.Outcome != reconcile.ItemUpdated {
			continue
		}
		listing, err := s.store.GetListing(r.ID)
		if err != nil {
			log.Printf("Scheduler: Failed to load listing %s for snapshot: %v", r.ID, err)
			continue
		}
		if err := s.snapshot.CreateSnapshotWithChangeDetection(*listing, runID, now); err != nil {
			log.Printf("Scheduler: Failed to snapshot listing %s: %v", r.ID, err)
		}
	}
}

// reindex pushes the full listing set into the search index
func (s *Scheduler) reindex() {
	if s.search == nil {
		return
	}
	listings, err := s.store.ListListings(nil)
	if err != nil {
		log.Printf("Scheduler: Failed to list listings for re-index: %v", err)
		return
	}
	if err := s.search.IndexListings(listings, s.config.Criteria); err != nil {
		log.Printf("Scheduler: Failed to re-index %d listings: %v", len(listings), err)
		return
	}
	log.Printf("Scheduler: Re-indexed %d listings", len(listings))
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 2:00 AM if parsing fails
	log.Printf("Scheduler: Failed to parse time '%s', using default 02:00", timeStr)
	return "0 2 * * *"
}
