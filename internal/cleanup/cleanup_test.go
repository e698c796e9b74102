package cleanup

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"land-tracker/internal/database"
	"land-tracker/internal/models"
)

func newTestStore(t *testing.T) *database.FileStore {
	t.Helper()
	store, err := database.NewFileStore(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return store
}

func seedListing(t *testing.T, store *database.FileStore, id string, lastSeen time.Time) {
	t.Helper()
	l := models.Listing{
		ID:          id,
		Title:       "Parcel " + id,
		URL:         "https://example.com/p/" + id,
		Source:      "landsearch",
		Status:      models.StatusUnknown,
		FoundUTC:    lastSeen.AddDate(0, 0, -30),
		LastSeenUTC: lastSeen,
	}
	if err := store.UpsertListing(&l); err != nil {
		t.Fatal(err)
	}
}

func TestCleanupDeletesOnlyExpired(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	seedListing(t, store, "old", now.AddDate(0, 0, -120))
	seedListing(t, store, "fresh", now.AddDate(0, 0, -5))

	svc := NewService(store)
	result, err := svc.Execute(CleanupConfig{RetentionDays: 90, MaxDeletionCount: 100})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.DeletedCount != 1 {
		t.Errorf("deleted = %d, want 1", result.DeletedCount)
	}

	if _, err := store.GetListing("old"); !errors.Is(err, database.ErrNotFound) {
		t.Error("expired listing must be deleted")
	}
	if _, err := store.GetListing("fresh"); err != nil {
		t.Errorf("fresh listing must survive: %v", err)
	}
}

func TestCleanupDryRunDeletesNothing(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	seedListing(t, store, "old", now.AddDate(0, 0, -120))

	svc := NewService(store)
	result, err := svc.Execute(CleanupConfig{RetentionDays: 90, MaxDeletionCount: 100, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}

	if result.DeletedCount != 1 {
		t.Errorf("dry run should count 1 candidate, got %d", result.DeletedCount)
	}
	if _, err := store.GetListing("old"); err != nil {
		t.Errorf("dry run must not delete: %v", err)
	}
}

func TestCleanupRespectsMaxDeletionCount(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		seedListing(t, store, id, now.AddDate(0, 0, -120))
	}

	svc := NewService(store)
	result, err := svc.Execute(CleanupConfig{RetentionDays: 90, MaxDeletionCount: 2})
	if err != nil {
		t.Fatal(err)
	}

	if result.DeletedCount != 2 {
		t.Errorf("deleted = %d, want 2", result.DeletedCount)
	}
	if result.SkippedCount != 1 {
		t.Errorf("skipped = %d, want 1", result.SkippedCount)
	}

	remaining, _ := store.ListListings(nil)
	if len(remaining) != 1 {
		t.Errorf("remaining = %d, want 1", len(remaining))
	}
}

func TestCleanupAbsenceFromRunIsNotDeletion(t *testing.T) {
	// A listing seen recently stays even if no run has seen it since;
	// only the retention cutoff deletes
	store := newTestStore(t)
	seedListing(t, store, "recent", time.Now().UTC().AddDate(0, 0, -89))

	svc := NewService(store)
	result, err := svc.Execute(CleanupConfig{RetentionDays: 90, MaxDeletionCount: 100})
	if err != nil {
		t.Fatal(err)
	}
	if result.DeletedCount != 0 {
		t.Errorf("deleted = %d, want 0", result.DeletedCount)
	}
}
