package database

import (
	"errors"
	"time"

	"land-tracker/internal/models"
)

var (
	// ErrNotFound is returned when no listing exists under the given id
	ErrNotFound = errors.New("listing not found")

	// ErrUnavailable wraps a failure to reach the store at all. The
	// reconciliation engine aborts the whole run on it; individual write
	// failures are contained instead.
	ErrUnavailable = errors.New("store unavailable")

	// ErrRunFinalized is returned when finalizing an already-finalized run
	ErrRunFinalized = errors.New("scrape run already finalized")
)

// Store is the durable-store surface consumed by the reconciliation engine
// and the run recorder, and exposed to the dashboard read path. The read
// path has no transaction boundary spanning a whole batch: readers may
// observe a partially-updated run.
type Store interface {
	Ping() error
	Close() error

	GetListing(id string) (*models.Listing, error)
	UpsertListing(l *models.Listing) error
	// ListListings returns listings scoped to the given sources;
	// nil or empty means all sources.
	ListListings(sources []string) ([]models.Listing, error)
	DeleteListing(id string) error
	RecordDeletion(dl *models.DeleteLog) error

	// CreateRun persists the run and sets run.ID.
	CreateRun(run *models.ScrapeRun) error
	// FinalizeRun closes out a run exactly once; a second call returns
	// ErrRunFinalized.
	FinalizeRun(run *models.ScrapeRun) error
	ListRuns(limit int) ([]models.ScrapeRun, error)

	SaveSnapshot(s *models.ListingSnapshot) error
	// PreviousSnapshot returns the most recent snapshot of the listing
	// taken before the given time, or ErrNotFound.
	PreviousSnapshot(listingID string, before time.Time) (*models.ListingSnapshot, error)
	SnapshotHistory(listingID string, limit int) ([]models.ListingSnapshot, error)
	SaveChanges(changes []models.ListingChange) error
	RecentChanges(limit int) ([]models.ListingChange, error)
}
