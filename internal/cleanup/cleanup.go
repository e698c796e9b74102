package cleanup

import (
	"fmt"
	"log"
	"time"

	"land-tracker/internal/database"
	"land-tracker/internal/models"
)

// Service deletes listings that have not been seen for longer than the
// retention window. Absence from a single run never deletes anything; only
// the retention cutoff does.
type Service struct {
	store database.Store
}

// CleanupConfig holds cleanup execution settings
type CleanupConfig struct {
	RetentionDays    int
	MaxDeletionCount int
	DryRun           bool
}

// DefaultCleanupConfig returns safe cleanup defaults: 90 day retention,
// dry run on
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		RetentionDays:    90,
		MaxDeletionCount: 10000,
		DryRun:           true,
	}
}

// CleanupResult summarizes one cleanup execution
type CleanupResult struct {
	ScannedCount int       `json:"scanned_count"`
	DeletedCount int       `json:"deleted_count"`
	SkippedCount int       `json:"skipped_count"`
	ErrorCount   int       `json:"error_count"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
	Cutoff       time.Time `json:"cutoff"`
}

func NewService(store database.Store) *Service {
	return &Service{store: store}
}

// Execute removes listings whose last_seen_utc is older than the
// retention cutoff, recording each deletion in the delete log. The
// max deletion count caps one execution as a runaway guard.
func (s *Service) Execute(cfg CleanupConfig) (*CleanupResult, error) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)

	result := &CleanupResult{
		DryRun:     cfg.DryRun,
		ExecutedAt: now,
		Cutoff:     cutoff,
	}

	listings, err := s.store.ListListings(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings for cleanup: %w", err)
	}
	result.ScannedCount = len(listings)

	log.Printf("[Cleanup] Scanning %d listings, cutoff %s (retention %d days, dry_run=%v)",
		len(listings), cutoff.Format(time.RFC3339), cfg.RetentionDays, cfg.DryRun)

	for _, l := range listings {
		if !l.LastSeenUTC.Before(cutoff) {
			continue
		}

		if cfg.MaxDeletionCount > 0 && result.DeletedCount >= cfg.MaxDeletionCount {
			result.SkippedCount++
			continue
		}

		if cfg.DryRun {
			log.Printf("[Cleanup] Would delete %s (last seen %s): %s",
				l.ID, l.LastSeenUTC.Format(time.RFC3339), l.Title)
			result.DeletedCount++
			continue
		}

		if err := s.deleteOne(l, now); err != nil {
			log.Printf("[Cleanup] Failed to delete %s: %v", l.ID, err)
			result.ErrorCount++
			continue
		}
		result.DeletedCount++
	}

	log.Printf("[Cleanup] Complete. Deleted: %d, Skipped: %d, Errors: %d",
		result.DeletedCount, result.SkippedCount, result.ErrorCount)
	return result, nil
}

func (s *Service) deleteOne(l models.Listing, now time.Time) error {
	if err := s.store.DeleteListing(l.ID); err != nil {
		return err
	}

	dl := &models.DeleteLog{
		ListingID: l.ID,
		Title:     l.Title,
		URL:       l.URL,
		LastSeen:  l.LastSeenUTC,
		DeletedAt: now,
		Reason:    models.DeleteReasonExpired,
	}
	if err := s.store.RecordDeletion(dl); err != nil {
		// The listing is already gone; the missing log entry is worth a
		// warning but not a rollback
		log.Printf("[Cleanup] Deleted %s but failed to record delete log: %v", l.ID, err)
	}
	return nil
}
