package models

import "time"

// DeleteLog represents a record of physically deleted listings
type DeleteLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID string    `gorm:"type:varchar(32);not null;index" json:"listing_id"`
	Title     string    `gorm:"type:text" json:"title"`
	URL       string    `gorm:"type:text" json:"url"`
	LastSeen  time.Time `gorm:"type:datetime" json:"last_seen"`
	DeletedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index" json:"deleted_at"`
	Reason    string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonExpired = "retention_expired"
	DeleteReasonManual  = "manual_deletion"
)
