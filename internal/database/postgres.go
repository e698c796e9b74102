package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"land-tracker/internal/models"
)

type DB struct {
	conn *sql.DB
}

func NewDB(host, port, user, password, dbname, sslmode string) (*DB, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping() error {
	if err := db.conn.Ping(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// InitSchema creates the tables if they don't exist
func (db *DB) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(32) PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		thumbnail_url TEXT,

		-- Filter fields
		acreage DECIMAL(10, 2),
		price INTEGER,
		status VARCHAR(20) NOT NULL DEFAULT 'unknown',
		source VARCHAR(50) NOT NULL,
		region VARCHAR(100),

		-- History fields: found_utc immutable, ever_top_match monotonic
		found_utc TIMESTAMP NOT NULL,
		last_seen_utc TIMESTAMP NOT NULL,
		ever_top_match BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_listings_url ON listings(url);
	CREATE INDEX IF NOT EXISTS idx_listings_found_utc ON listings(found_utc DESC);
	CREATE INDEX IF NOT EXISTS idx_listings_source ON listings(source);
	CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
	CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	CREATE INDEX IF NOT EXISTS idx_listings_acreage ON listings(acreage);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id SERIAL PRIMARY KEY,
		started_utc TIMESTAMP NOT NULL,
		finished_utc TIMESTAMP,
		sources_queried INTEGER NOT NULL DEFAULT 0,
		sources_failed INTEGER NOT NULL DEFAULT 0,
		listings_written INTEGER NOT NULL DEFAULT 0,
		listings_skipped INTEGER NOT NULL DEFAULT 0,
		write_errors INTEGER NOT NULL DEFAULT 0,
		outcome VARCHAR(20) NOT NULL DEFAULT 'running'
	);

	CREATE INDEX IF NOT EXISTS idx_scrape_runs_started ON scrape_runs(started_utc DESC);

	CREATE TABLE IF NOT EXISTS listing_snapshots (
		id SERIAL PRIMARY KEY,
		listing_id VARCHAR(32) NOT NULL,
		run_id BIGINT NOT NULL,
		taken_at TIMESTAMP NOT NULL,
		acreage DECIMAL(10, 2),
		price INTEGER,
		status VARCHAR(20) NOT NULL,
		has_changed BOOLEAN DEFAULT FALSE,
		change_note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_listing ON listing_snapshots(listing_id, taken_at DESC);

	CREATE TABLE IF NOT EXISTS listing_changes (
		id SERIAL PRIMARY KEY,
		listing_id VARCHAR(32) NOT NULL,
		snapshot_id BIGINT NOT NULL,
		change_type VARCHAR(50) NOT NULL,
		old_value TEXT,
		new_value TEXT,
		change_magnitude DECIMAL(12, 2),
		detected_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_changes_detected ON listing_changes(detected_at DESC);

	CREATE TABLE IF NOT EXISTS delete_logs (
		id SERIAL PRIMARY KEY,
		listing_id VARCHAR(32) NOT NULL,
		title TEXT,
		url TEXT,
		last_seen TIMESTAMP,
		deleted_at TIMESTAMP NOT NULL DEFAULT NOW(),
		reason VARCHAR(50) NOT NULL
	);
	`
	_, err := db.conn.Exec(query)
	return err
}

// UpsertListing saves a listing. The merge function in internal/reconcile
// enforces the immutability rules before this is called; the OR on
// ever_top_match keeps the flag monotonic even against a concurrent writer.
func (db *DB) UpsertListing(l *models.Listing) error {
	query := `
	INSERT INTO listings (
		id, url, title, thumbnail_url,
		acreage, price, status, source, region,
		found_utc, last_seen_utc, ever_top_match
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		url = EXCLUDED.url,
		title = EXCLUDED.title,
		thumbnail_url = EXCLUDED.thumbnail_url,
		acreage = EXCLUDED.acreage,
		price = EXCLUDED.price,
		status = EXCLUDED.status,
		source = EXCLUDED.source,
		region = EXCLUDED.region,
		last_seen_utc = EXCLUDED.last_seen_utc,
		ever_top_match = listings.ever_top_match OR EXCLUDED.ever_top_match
	`
	_, err := db.conn.Exec(query,
		l.ID, l.URL, l.Title, l.ThumbnailURL,
		l.Acreage, l.Price, string(l.Status), l.Source, l.Region,
		l.FoundUTC, l.LastSeenUTC, l.EverTopMatch)
	return err
}

const listingColumns = `id, url, title, thumbnail_url,
	acreage, price, status, source, region,
	found_utc, last_seen_utc, ever_top_match`

func scanListing(row interface{ Scan(...any) error }) (models.Listing, error) {
	var l models.Listing
	var status string
	err := row.Scan(
		&l.ID, &l.URL, &l.Title, &l.ThumbnailURL,
		&l.Acreage, &l.Price, &status, &l.Source, &l.Region,
		&l.FoundUTC, &l.LastSeenUTC, &l.EverTopMatch,
	)
	l.Status = models.ListingStatus(status)
	return l, err
}

// GetListing retrieves a listing by id
func (db *DB) GetListing(id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	l, err := scanListing(db.conn.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListListings retrieves listings, optionally scoped to a set of sources
func (db *DB) ListListings(sources []string) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY found_utc DESC`
	args := []any{}

	if len(sources) > 0 {
		query = `SELECT ` + listingColumns + ` FROM listings WHERE source = ANY($1) ORDER BY found_utc DESC`
		args = append(args, pq.Array(sources))
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

func (db *DB) DeleteListing(id string) error {
	_, err := db.conn.Exec(`DELETE FROM listings WHERE id = $1`, id)
	return err
}

func (db *DB) RecordDeletion(dl *models.DeleteLog) error {
	_, err := db.conn.Exec(`
		INSERT INTO delete_logs (listing_id, title, url, last_seen, deleted_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		dl.ListingID, dl.Title, dl.URL, dl.LastSeen, time.Now().UTC(), dl.Reason)
	return err
}

// CreateRun persists a new scrape run and sets run.ID
func (db *DB) CreateRun(run *models.ScrapeRun) error {
	return db.conn.QueryRow(`
		INSERT INTO scrape_runs (started_utc, sources_queried, outcome)
		VALUES ($1, $2, $3) RETURNING id`,
		run.StartedUTC, run.SourcesQueried, string(run.Outcome)).Scan(&run.ID)
}

// FinalizeRun closes out a run. The WHERE guard makes finalization
// effective exactly once.
func (db *DB) FinalizeRun(run *models.ScrapeRun) error {
	res, err := db.conn.Exec(`
		UPDATE scrape_runs SET
			finished_utc = $1, sources_queried = $2, sources_failed = $3,
			listings_written = $4, listings_skipped = $5, write_errors = $6,
			outcome = $7
		WHERE id = $8 AND finished_utc IS NULL`,
		run.FinishedUTC, run.SourcesQueried, run.SourcesFailed,
		run.ListingsWritten, run.ListingsSkipped, run.WriteErrors,
		string(run.Outcome), run.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunFinalized
	}
	return nil
}

func (db *DB) ListRuns(limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, started_utc, finished_utc, sources_queried, sources_failed,
		       listings_written, listings_skipped, write_errors, outcome
		FROM scrape_runs ORDER BY started_utc DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ScrapeRun
	for rows.Next() {
		var r models.ScrapeRun
		var outcome string
		if err := rows.Scan(&r.ID, &r.StartedUTC, &r.FinishedUTC, &r.SourcesQueried,
			&r.SourcesFailed, &r.ListingsWritten, &r.ListingsSkipped,
			&r.WriteErrors, &outcome); err != nil {
			return nil, err
		}
		r.Outcome = models.RunOutcome(outcome)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func (db *DB) SaveSnapshot(s *models.ListingSnapshot) error {
	return db.conn.QueryRow(`
		INSERT INTO listing_snapshots (listing_id, run_id, taken_at, acreage, price, status, has_changed, change_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		s.ListingID, s.RunID, s.TakenAt, s.Acreage, s.Price, string(s.Status),
		s.HasChanged, s.ChangeNote).Scan(&s.ID)
}

func (db *DB) PreviousSnapshot(listingID string, before time.Time) (*models.ListingSnapshot, error) {
	var s models.ListingSnapshot
	var status string
	err := db.conn.QueryRow(`
		SELECT id, listing_id, run_id, taken_at, acreage, price, status, has_changed, change_note
		FROM listing_snapshots
		WHERE listing_id = $1 AND taken_at < $2
		ORDER BY taken_at DESC LIMIT 1`, listingID, before).Scan(
		&s.ID, &s.ListingID, &s.RunID, &s.TakenAt, &s.Acreage, &s.Price,
		&status, &s.HasChanged, &s.ChangeNote)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Status = models.ListingStatus(status)
	return &s, nil
}

func (db *DB) SnapshotHistory(listingID string, limit int) ([]models.ListingSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.conn.Query(`
		SELECT id, listing_id, run_id, taken_at, acreage, price, status, has_changed, change_note
		FROM listing_snapshots
		WHERE listing_id = $1 ORDER BY taken_at DESC LIMIT $2`, listingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.ListingSnapshot
	for rows.Next() {
		var s models.ListingSnapshot
		var status string
		if err := rows.Scan(&s.ID, &s.ListingID, &s.RunID, &s.TakenAt, &s.Acreage,
			&s.Price, &status, &s.HasChanged, &s.ChangeNote); err != nil {
			return nil, err
		}
		s.Status = models.ListingStatus(status)
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (db *DB) SaveChanges(changes []models.ListingChange) error {
	for i := range changes {
		c := &changes[i]
		if _, err := db.conn.Exec(`
			INSERT INTO listing_changes (listing_id, snapshot_id, change_type, old_value, new_value, change_magnitude, detected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ListingID, c.SnapshotID, c.ChangeType, c.OldValue, c.NewValue,
			c.ChangeMagnitude, c.DetectedAt); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) RecentChanges(limit int) ([]models.ListingChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, listing_id, snapshot_id, change_type, old_value, new_value, change_magnitude, detected_at
		FROM listing_changes ORDER BY detected_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []models.ListingChange
	for rows.Next() {
		var c models.ListingChange
		if err := rows.Scan(&c.ID, &c.ListingID, &c.SnapshotID, &c.ChangeType,
			&c.OldValue, &c.NewValue, &c.ChangeMagnitude, &c.DetectedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	return changes, rows.Err()
}
