package reconcile

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"land-tracker/internal/database"
	"land-tracker/internal/identity"
	"land-tracker/internal/models"
)

var testCriteria = models.Criteria{
	AcreageMin: 11.0,
	AcreageMax: 50.0,
	PriceCap:   600000,
}

func newTestStore(t *testing.T) *database.FileStore {
	t.Helper()
	store, err := database.NewFileStore(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return store
}

func rawListing(url string, acreage *float64, price *int, status models.ListingStatus) models.RawListing {
	return models.RawListing{
		Title:   "Test parcel",
		Acreage: acreage,
		Price:   price,
		Status:  status,
		Source:  "landsearch",
		Region:  "brown-county-in",
		URL:     url,
	}
}

func TestReconcileCreatesNewListing(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCriteria)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	raw := rawListing("https://www.landsearch.com/properties/brown-county/1", floatPtr(40), intPtr(399000), models.StatusAvailable)
	summary, err := engine.ReconcileBatch([]models.RawListing{raw}, now)
	if err != nil {
		t.Fatalf("ReconcileBatch returned error: %v", err)
	}

	if summary.Created != 1 || summary.Updated != 0 {
		t.Errorf("created=%d updated=%d, want 1/0", summary.Created, summary.Updated)
	}

	id := identity.ListingID(raw.Source, raw.URL)
	got, err := store.GetListing(id)
	if err != nil {
		t.Fatalf("listing not stored: %v", err)
	}
	if !got.FoundUTC.Equal(now) || !got.LastSeenUTC.Equal(now) {
		t.Errorf("timestamps = %v/%v, want both %v", got.FoundUTC, got.LastSeenUTC, now)
	}
	if !got.EverTopMatch {
		t.Error("a listing created as a top match must have ever_top_match set")
	}
}

func TestReconcileFoundUTCImmutable(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCriteria)

	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 1)

	raw := rawListing("https://www.landsearch.com/properties/brown-county/1", floatPtr(40), intPtr(399000), models.StatusAvailable)
	if _, err := engine.ReconcileBatch([]models.RawListing{raw}, first); err != nil {
		t.Fatal(err)
	}

	raw.Price = intPtr(375000)
	summary, err := engine.ReconcileBatch([]models.RawListing{raw}, second)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("updated = %d, want 1", summary.Updated)
	}

	got, _ := store.GetListing(identity.ListingID(raw.Source, raw.URL))
	if !got.FoundUTC.Equal(first) {
		t.Errorf("found_utc moved to %v, must stay %v", got.FoundUTC, first)
	}
	if !got.LastSeenUTC.Equal(second) {
		t.Errorf("last_seen_utc = %v, want %v", got.LastSeenUTC, second)
	}
	if got.Price == nil || *got.Price != 375000 {
		t.Error("mutable price must track the latest observation")
	}
}

func TestReconcileEverTopMatchMonotonic(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCriteria)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	url := "https://www.landsearch.com/properties/brown-county/1"

	// Qualifies as a top match on first sight
	raw := rawListing(url, floatPtr(40), intPtr(399000), models.StatusAvailable)
	if _, err := engine.ReconcileBatch([]models.RawListing{raw}, now); err != nil {
		t.Fatal(err)
	}

	// Later the parcel sells; the flag must survive
	raw.Status = models.StatusSold
	if _, err := engine.ReconcileBatch([]models.RawListing{raw}, now.AddDate(0, 0, 7)); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetListing(identity.ListingID(raw.Source, url))
	if !got.EverTopMatch {
		t.Error("ever_top_match must never go true -> false")
	}
	if got.Status != models.StatusSold {
		t.Errorf("status = %q, want sold", got.Status)
	}
}

func TestReconcileNeverSetsFlagWithoutQualifying(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCriteria)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	raw := rawListing("https://www.landsearch.com/properties/brown-county/2", floatPtr(40), nil, models.StatusAvailable)
	if _, err := engine.ReconcileBatch([]models.RawListing{raw}, now); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetListing(identity.ListingID(raw.Source, raw.URL))
	if got.EverTopMatch {
		t.Error("a possible match must not set ever_top_match")
	}
}

func TestReconcileDuplicatesInBatchCollapse(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCriteria)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Same page with and without tracking params resolves to one listing
	a := rawListing("https://www.landsearch.com/properties/brown-county/1?utm_source=email", floatPtr(40), intPtr(399000), models.StatusAvailable)
	b := rawListing("https://www.landsearch.com/properties/brown-county/1", floatPtr(40), intPtr(399000), models.StatusAvailable)

	summary, err := engine.ReconcileBatch([]models.RawListing{a, b}, now)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Created != 1 {
		t.Errorf("created = %d, want 1", summary.Created)
	}
	if summary.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", summary.Duplicates)
	}

	listings, _ := store.ListListings(nil)
	if len(listings) != 1 {
		t.Errorf("stored %d listings, want 1", len(listings))
	}
}

func TestReconcileAbsentListingsUntouched(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCriteria)
	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	a := rawListing("https://www.landsearch.com/properties/brown-county/1", floatPtr(40), intPtr(399000), models.StatusAvailable)
	b := rawListing("https://www.landsearch.com/properties/brown-county/2", floatPtr(20), intPtr(299000), models.StatusAvailable)
	if _, err := engine.ReconcileBatch([]models.RawListing{a, b}, first); err != nil {
		t.Fatal(err)
	}

	// Next run only sees listing a; listing b must survive untouched
	second := first.AddDate(0, 0, 1)
	if _, err := engine.ReconcileBatch([]models.RawListing{a}, second); err != nil {
		t.Fatal(err)
	}

	gotB, err := store.GetListing(identity.ListingID(b.Source, b.URL))
	if err != nil {
		t.Fatalf("absent listing was removed: %v", err)
	}
	if !gotB.LastSeenUTC.Equal(first) {
		t.Errorf("absent listing's last_seen_utc moved to %v, must stay %v", gotB.LastSeenUTC, first)
	}
}

// failingStore wraps a real store and fails writes for chosen ids
type failingStore struct {
	*database.FileStore
	failIDs map[string]bool
	downErr error
}

func (s *failingStore) GetListing(id string) (*models.Listing, error) {
	if s.downErr != nil {
		return nil, s.downErr
	}
	return s.FileStore.GetListing(id)
}

func (s *failingStore) UpsertListing(l *models.Listing) error {
	if s.failIDs[l.ID] {
		return fmt.Errorf("disk full")
	}
	return s.FileStore.UpsertListing(l)
}

func TestReconcileContainsWriteFailures(t *testing.T) {
	inner := newTestStore(t)
	a := rawListing("https://www.landsearch.com/properties/brown-county/1", floatPtr(40), intPtr(399000), models.StatusAvailable)
	b := rawListing("https://www.landsearch.com/properties/brown-county/2", floatPtr(20), intPtr(299000), models.StatusAvailable)

	store := &failingStore{
		FileStore: inner,
		failIDs:   map[string]bool{identity.ListingID(a.Source, a.URL): true},
	}
	engine := NewEngine(store, testCriteria)

	summary, err := engine.ReconcileBatch([]models.RawListing{a, b}, time.Now().UTC())
	if err != nil {
		t.Fatalf("write failures must not abort the batch: %v", err)
	}

	if summary.WriteErrors != 1 {
		t.Errorf("write errors = %d, want 1", summary.WriteErrors)
	}
	if summary.Created != 1 {
		t.Errorf("created = %d, want 1 (listing b)", summary.Created)
	}
}

func TestReconcileAbortsWhenStoreUnavailable(t *testing.T) {
	store := &failingStore{
		FileStore: newTestStore(t),
		downErr:   fmt.Errorf("%w: connection refused", database.ErrUnavailable),
	}
	engine := NewEngine(store, testCriteria)

	raw := rawListing("https://www.landsearch.com/properties/brown-county/1", floatPtr(40), intPtr(399000), models.StatusAvailable)
	_, err := engine.ReconcileBatch([]models.RawListing{raw}, time.Now().UTC())
	if !errors.Is(err, database.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
