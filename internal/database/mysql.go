package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"land-tracker/internal/models"
)

type GormDB struct {
	db *gorm.DB
}

func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB wraps an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (gdb *GormDB) Ping() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Listing{},
		&models.ScrapeRun{},
		&models.ListingSnapshot{},
		&models.ListingChange{},
		&models.DeleteLog{},
	)
}

// UpsertListing saves a listing, overwriting all mutable columns.
// found_utc is excluded from the update set so the first-seen timestamp
// stays immutable at the storage layer as well.
func (gdb *GormDB) UpsertListing(l *models.Listing) error {
	return gdb.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"url", "title", "thumbnail_url",
			"acreage", "price", "status", "source", "region",
			"last_seen_utc", "ever_top_match",
		}),
	}).Create(l).Error
}

func (gdb *GormDB) GetListing(id string) (*models.Listing, error) {
	var l models.Listing
	err := gdb.db.First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (gdb *GormDB) ListListings(sources []string) ([]models.Listing, error) {
	var listings []models.Listing
	query := gdb.db.Order("found_utc DESC")
	if len(sources) > 0 {
		query = query.Where("source IN ?", sources)
	}
	if err := query.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (gdb *GormDB) DeleteListing(id string) error {
	return gdb.db.Delete(&models.Listing{}, "id = ?", id).Error
}

func (gdb *GormDB) RecordDeletion(dl *models.DeleteLog) error {
	return gdb.db.Create(dl).Error
}

func (gdb *GormDB) CreateRun(run *models.ScrapeRun) error {
	return gdb.db.Create(run).Error
}

func (gdb *GormDB) FinalizeRun(run *models.ScrapeRun) error {
	res := gdb.db.Model(&models.ScrapeRun{}).
		Where("id = ? AND finished_utc IS NULL", run.ID).
		Updates(map[string]any{
			"finished_utc":     run.FinishedUTC,
			"sources_queried":  run.SourcesQueried,
			"sources_failed":   run.SourcesFailed,
			"listings_written": run.ListingsWritten,
			"listings_skipped": run.ListingsSkipped,
			"write_errors":     run.WriteErrors,
			"outcome":          string(run.Outcome),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRunFinalized
	}
	return nil
}

func (gdb *GormDB) ListRuns(limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.ScrapeRun
	if err := gdb.db.Order("started_utc DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (gdb *GormDB) SaveSnapshot(s *models.ListingSnapshot) error {
	return gdb.db.Create(s).Error
}

func (gdb *GormDB) PreviousSnapshot(listingID string, before time.Time) (*models.ListingSnapshot, error) {
	var s models.ListingSnapshot
	err := gdb.db.Where("listing_id = ? AND taken_at < ?", listingID, before).
		Order("taken_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (gdb *GormDB) SnapshotHistory(listingID string, limit int) ([]models.ListingSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	var snapshots []models.ListingSnapshot
	err := gdb.db.Where("listing_id = ?", listingID).
		Order("taken_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (gdb *GormDB) SaveChanges(changes []models.ListingChange) error {
	if len(changes) == 0 {
		return nil
	}
	return gdb.db.Create(&changes).Error
}

func (gdb *GormDB) RecentChanges(limit int) ([]models.ListingChange, error) {
	if limit <= 0 {
		limit = 50
	}
	var changes []models.ListingChange
	if err := gdb.db.Order("detected_at DESC").Limit(limit).Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}
