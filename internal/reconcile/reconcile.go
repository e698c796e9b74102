package reconcile

import (
	"errors"
	"fmt"
	"log"
	"time"

	"land-tracker/internal/classify"
	"land-tracker/internal/database"
	"land-tracker/internal/identity"
	"land-tracker/internal/models"
)

// ItemOutcome is what happened to one raw listing during reconciliation
type ItemOutcome string

const (
	ItemCreated     ItemOutcome = "created"
	ItemUpdated     ItemOutcome = "updated"
	ItemDuplicate   ItemOutcome = "duplicate_in_batch"
	ItemWriteFailed ItemOutcome = "write_failed"
)

// ItemResult is the per-item record accumulated into the run summary.
// Failures are contained here rather than aborting the batch.
type ItemResult struct {
	ID      string
	URL     string
	Outcome ItemOutcome
	Err     error
}

// Summary aggregates a whole batch's reconciliation
type Summary struct {
	Created     int
	Updated     int
	Duplicates  int
	WriteErrors int
	Results     []ItemResult
}

// Written is the number of listings successfully committed
func (s *Summary) Written() int {
	return s.Created + s.Updated
}

// Engine merges one run's raw batch against the durable listing set.
// It operates single-threaded against the store; the fetch side fans out,
// the merge side does not, so two raw records resolving to the same id
// can never race.
type Engine struct {
	store    database.Store
	criteria models.Criteria
}

func NewEngine(store database.Store, criteria models.Criteria) *Engine {
	return &Engine{store: store, criteria: criteria}
}

// Merge combines an existing listing (nil when unseen) with one incoming
// observation. This is the single place the cross-run field rules live:
// mutable fields are always overwritten from the incoming raw,
// found_utc is frozen after first write, and ever_top_match only ever
// goes false -> true.
func Merge(existing *models.Listing, raw models.RawListing, now time.Time) models.Listing {
	merged := models.Listing{
		ID:           identity.ListingID(raw.Source, raw.URL),
		URL:          identity.CanonicalURL(raw.URL),
		Title:        raw.Title,
		ThumbnailURL: raw.ThumbnailURL,
		Acreage:      raw.Acreage,
		Price:        raw.Price,
		Status:       raw.Status,
		Source:       raw.Source,
		Region:       raw.Region,
		FoundUTC:     now,
		LastSeenUTC:  now,
	}

	if existing != nil {
		merged.FoundUTC = existing.FoundUTC
		merged.EverTopMatch = existing.EverTopMatch
	}

	return merged
}

// ReconcileBatch merges the full raw batch for one run. Per-item failures
// are recorded and skipped; only store unavailability aborts, in which case
// the returned error wraps database.ErrUnavailable and nothing further is
// merged.
func (e *Engine) ReconcileBatch(batch []models.RawListing, now time.Time) (*Summary, error) {
	summary := &Summary{}
	seen := make(map[string]bool, len(batch))

	for _, raw := range batch {
		id := identity.ListingID(raw.Source, raw.URL)

		// Duplicate listing pages inside one batch collapse onto the
		// first occurrence; last_seen_utc is set once per run anyway.
		if seen[id] {
			summary.Duplicates++
			summary.Results = append(summary.Results, ItemResult{ID: id, URL: raw.URL, Outcome: ItemDuplicate})
			continue
		}
		seen[id] = true

		existing, err := e.store.GetListing(id)
		if errors.Is(err, database.ErrUnavailable) {
			return summary, fmt.Errorf("reconcile aborted: %w", err)
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			log.Printf("[Reconcile] Read failed for %s (%s): %v", id, raw.URL, err)
			summary.WriteErrors++
			summary.Results = append(summary.Results, ItemResult{ID: id, URL: raw.URL, Outcome: ItemWriteFailed, Err: err})
			continue
		}

		merged := Merge(existing, raw, now)

		// Monotonic flag: set when the merged state qualifies right now,
		// never unset.
		if classify.Classify(merged, e.criteria) == classify.TopMatch {
			merged.EverTopMatch = true
		}

		if err := e.store.UpsertListing(&merged); err != nil {
			if errors.Is(err, database.ErrUnavailable) {
				return summary, fmt.Errorf("reconcile aborted: %w", err)
			}
			log.Printf("[Reconcile] Write failed for %s (%s): %v", id, raw.URL, err)
			summary.WriteErrors++
			summary.Results = append(summary.Results, ItemResult{ID: id, URL: raw.URL, Outcome: ItemWriteFailed, Err: err})
			continue
		}

		outcome := ItemUpdated
		if existing == nil {
			outcome = ItemCreated
			summary.Created++
		} else {
			summary.Updated++
		}
		summary.Results = append(summary.Results, ItemResult{ID: id, URL: raw.URL, Outcome: outcome})
	}

	log.Printf("[Reconcile] Batch complete. Created: %d, Updated: %d, Duplicates: %d, WriteErrors: %d",
		summary.Created, summary.Updated, summary.Duplicates, summary.WriteErrors)

	return summary, nil
}
