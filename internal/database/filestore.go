package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"land-tracker/internal/models"
)

// FileStore is a single-file JSON store. It mirrors the flat data file the
// tracker started out with and is handy for local runs and tests; the SQL
// backends are the production path.
type FileStore struct {
	mu   sync.Mutex
	path string
	data fileData
}

type fileData struct {
	Listings   map[string]models.Listing `json:"listings"`
	Runs       []models.ScrapeRun        `json:"runs"`
	Snapshots  []models.ListingSnapshot  `json:"snapshots"`
	Changes    []models.ListingChange    `json:"changes"`
	DeleteLogs []models.DeleteLog        `json:"delete_logs"`
	NextRunID  uint                      `json:"next_run_id"`
	NextSnapID uint                      `json:"next_snapshot_id"`
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path: path,
		data: fileData{
			Listings:   make(map[string]models.Listing),
			NextRunID:  1,
			NextSnapID: 1,
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &fs.data); err != nil {
		return nil, fmt.Errorf("filestore: parse %s: %w", path, err)
	}
	if fs.data.Listings == nil {
		fs.data.Listings = make(map[string]models.Listing)
	}
	if fs.data.NextRunID == 0 {
		fs.data.NextRunID = 1
	}
	if fs.data.NextSnapID == 0 {
		fs.data.NextSnapID = 1
	}

	return fs, nil
}

// flush writes the whole data file; callers hold the lock
func (fs *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	raw, err := json.MarshalIndent(&fs.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (fs *FileStore) Ping() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.flush()
}

func (fs *FileStore) GetListing(id string) (*models.Listing, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	l, ok := fs.data.Listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (fs *FileStore) UpsertListing(l *models.Listing) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.data.Listings[l.ID] = *l
	return fs.flush()
}

func (fs *FileStore) ListListings(sources []string) ([]models.Listing, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	wanted := make(map[string]bool, len(sources))
	for _, s := range sources {
		wanted[s] = true
	}

	var listings []models.Listing
	for _, l := range fs.data.Listings {
		if len(wanted) > 0 && !wanted[l.Source] {
			continue
		}
		listings = append(listings, l)
	}

	sort.Slice(listings, func(i, j int) bool {
		return listings[i].FoundUTC.After(listings[j].FoundUTC)
	})

	return listings, nil
}

func (fs *FileStore) DeleteListing(id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.data.Listings, id)
	return fs.flush()
}

func (fs *FileStore) RecordDeletion(dl *models.DeleteLog) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dl.DeletedAt = time.Now().UTC()
	fs.data.DeleteLogs = append(fs.data.DeleteLogs, *dl)
	return fs.flush()
}

func (fs *FileStore) CreateRun(run *models.ScrapeRun) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	run.ID = fs.data.NextRunID
	fs.data.NextRunID++
	fs.data.Runs = append(fs.data.Runs, *run)
	return fs.flush()
}

func (fs *FileStore) FinalizeRun(run *models.ScrapeRun) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.data.Runs {
		if fs.data.Runs[i].ID != run.ID {
			continue
		}
		if fs.data.Runs[i].FinishedUTC != nil {
			return ErrRunFinalized
		}
		fs.data.Runs[i] = *run
		return fs.flush()
	}
	return ErrNotFound
}

func (fs *FileStore) ListRuns(limit int) ([]models.ScrapeRun, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	runs := make([]models.ScrapeRun, len(fs.data.Runs))
	copy(runs, fs.data.Runs)
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedUTC.After(runs[j].StartedUTC)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (fs *FileStore) SaveSnapshot(s *models.ListingSnapshot) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	s.ID = fs.data.NextSnapID
	fs.data.NextSnapID++
	fs.data.Snapshots = append(fs.data.Snapshots, *s)
	return fs.flush()
}

func (fs *FileStore) PreviousSnapshot(listingID string, before time.Time) (*models.ListingSnapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var best *models.ListingSnapshot
	for i := range fs.data.Snapshots {
		s := &fs.data.Snapshots[i]
		if s.ListingID != listingID || !s.TakenAt.Before(before) {
			continue
		}
		if best == nil || s.TakenAt.After(best.TakenAt) {
			best = s
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

func (fs *FileStore) SnapshotHistory(listingID string, limit int) ([]models.ListingSnapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var snapshots []models.ListingSnapshot
	for _, s := range fs.data.Snapshots {
		if s.ListingID == listingID {
			snapshots = append(snapshots, s)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].TakenAt.After(snapshots[j].TakenAt)
	})
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots, nil
}

func (fs *FileStore) SaveChanges(changes []models.ListingChange) error {
	if len(changes) == 0 {
		return nil
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.data.Changes = append(fs.data.Changes, changes...)
	return fs.flush()
}

func (fs *FileStore) RecentChanges(limit int) ([]models.ListingChange, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	changes := make([]models.ListingChange, len(fs.data.Changes))
	copy(changes, fs.data.Changes)
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].DetectedAt.After(changes[j].DetectedAt)
	})
	if limit > 0 && len(changes) > limit {
		changes = changes[:limit]
	}
	return changes, nil
}
