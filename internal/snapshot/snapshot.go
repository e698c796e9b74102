package snapshot

import (
	"errors"
	"fmt"
	"log"
	"time"

	"land-tracker/internal/database"
	"land-tracker/internal/models"
)

// Service records per-run listing snapshots and detects changes between
// consecutive runs
type Service struct {
	store database.Store
}

func NewService(store database.Store) *Service {
	return &Service{store: store}
}

// CreateSnapshotWithChangeDetection snapshots the listing's current state
// and compares it against the previous snapshot. Detected changes are
// persisted as ListingChange rows.
func (s *Service) CreateSnapshotWithChangeDetection(listing models.Listing, runID uint, now time.Time) error {
	snap := &models.ListingSnapshot{
		ListingID: listing.ID,
		RunID:     runID,
		TakenAt:   now,
		Acreage:   listing.Acreage,
		Price:     listing.Price,
		Status:    listing.Status,
	}

	prev, err := s.store.PreviousSnapshot(listing.ID, now)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to load previous snapshot: %w", err)
	}

	changes := s.detectChanges(prev, snap, now)
	if len(changes) > 0 {
		snap.HasChanged = true
		snap.ChangeNote = changeNote(changes)
	}

	if err := s.store.SaveSnapshot(snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if len(changes) > 0 {
		for i := range changes {
			changes[i].SnapshotID = snap.ID
		}
		if err := s.store.SaveChanges(changes); err != nil {
			return fmt.Errorf("failed to save changes: %w", err)
		}
		log.Printf("[Snapshot] Listing %s: %d changes detected", listing.ID, len(changes))
	}

	return nil
}

// detectChanges compares the previous and current snapshots. A nil
// previous snapshot means the listing is new.
func (s *Service) detectChanges(prev, cur *models.ListingSnapshot, now time.Time) []models.ListingChange {
	if prev == nil {
		return []models.ListingChange{{
			ListingID:  cur.ListingID,
			ChangeType: models.ChangeTypeNew,
			NewValue:   string(cur.Status),
			DetectedAt: now,
		}}
	}

	var changes []models.ListingChange

	if !intPtrEqual(prev.Price, cur.Price) {
		change := models.ListingChange{
			ListingID:  cur.ListingID,
			ChangeType: models.ChangeTypePrice,
			OldValue:   intPtrString(prev.Price),
			NewValue:   intPtrString(cur.Price),
			DetectedAt: now,
		}
		if prev.Price != nil && cur.Price != nil {
			diff := float64(*cur.Price - *prev.Price)
			change.ChangeMagnitude = &diff
		}
		changes = append(changes, change)
	}

	if prev.Status != cur.Status {
		changes = append(changes, models.ListingChange{
			ListingID:  cur.ListingID,
			ChangeType: models.ChangeTypeStatus,
			OldValue:   string(prev.Status),
			NewValue:   string(cur.Status),
			DetectedAt: now,
		})
	}

	if !float64PtrEqual(prev.Acreage, cur.Acreage) {
		change := models.ListingChange{
			ListingID:  cur.ListingID,
			ChangeType: models.ChangeTypeAcreage,
			OldValue:   float64PtrString(prev.Acreage),
			NewValue:   float64PtrString(cur.Acreage),
			DetectedAt: now,
		}
		if prev.Acreage != nil && cur.Acreage != nil {
			diff := *cur.Acreage - *prev.Acreage
			change.ChangeMagnitude = &diff
		}
		changes = append(changes, change)
	}

	return changes
}

func changeNote(changes []models.ListingChange) string {
	note := ""
	for i, c := range changes {
		if i > 0 {
			note += "; "
		}
		note += fmt.Sprintf("%s: %s -> %s", c.ChangeType, c.OldValue, c.NewValue)
	}
	return note
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func float64PtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrString(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}

func float64PtrString(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *p)
}
