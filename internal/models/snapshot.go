package models

import "time"

// ListingSnapshot represents a per-run snapshot of a listing's state,
// used to detect changes between runs
type ListingSnapshot struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID string    `gorm:"type:varchar(32);not null;index:idx_listing_run" json:"listing_id"`
	RunID     uint      `gorm:"type:bigint;not null;index:idx_listing_run,priority:2" json:"run_id"`
	TakenAt   time.Time `gorm:"type:datetime;not null;index" json:"taken_at"`

	// Listing state at snapshot time
	Acreage *float64      `gorm:"type:decimal(10,2)" json:"acreage,omitempty"`
	Price   *int          `gorm:"type:int" json:"price,omitempty"`
	Status  ListingStatus `gorm:"type:varchar(20);not null" json:"status"`

	// Change detection
	HasChanged bool   `gorm:"type:boolean;default:false" json:"has_changed"`
	ChangeNote string `gorm:"type:text" json:"change_note,omitempty"`
}

// TableName specifies the table name
func (ListingSnapshot) TableName() string {
	return "listing_snapshots"
}

// ListingChange represents a detected change between two runs
type ListingChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID       string    `gorm:"type:varchar(32);not null;index" json:"listing_id"`
	SnapshotID      uint      `gorm:"type:bigint;not null" json:"snapshot_id"`
	ChangeType      string    `gorm:"type:varchar(50);not null" json:"change_type"`
	OldValue        string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue        string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `gorm:"type:decimal(12,2)" json:"change_magnitude,omitempty"`
	DetectedAt      time.Time `gorm:"type:datetime;not null;index" json:"detected_at"`
}

// TableName specifies the table name
func (ListingChange) TableName() string {
	return "listing_changes"
}

// ChangeType constants
const (
	ChangeTypePrice   = "price_changed"
	ChangeTypeStatus  = "status_changed"
	ChangeTypeAcreage = "acreage_changed"
	ChangeTypeNew     = "new_listing"
)
