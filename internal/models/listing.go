package models

import "time"

// ListingStatus is the sale status of a land listing
type ListingStatus string

const (
	StatusAvailable     ListingStatus = "available"
	StatusUnderContract ListingStatus = "under_contract"
	StatusPending       ListingStatus = "pending"
	StatusSold          ListingStatus = "sold"
	StatusUnknown       ListingStatus = "unknown"
)

// ParseStatus maps a raw status string to a ListingStatus.
// Anything unrecognized maps to StatusUnknown, never to StatusAvailable.
func ParseStatus(s string) ListingStatus {
	switch ListingStatus(s) {
	case StatusAvailable, StatusUnderContract, StatusPending, StatusSold:
		return ListingStatus(s)
	default:
		return StatusUnknown
	}
}

// Unavailable reports whether the status rules the listing out of the market
func (s ListingStatus) Unavailable() bool {
	return s == StatusUnderContract || s == StatusPending || s == StatusSold
}

// RawListing is one observation of a listing within a single scrape run.
// It carries no identity beyond (Source, URL) until the identity resolver
// assigns a dedup key. Acreage and Price are pointers: a value that could
// not be parsed stays nil and must never be conflated with zero.
type RawListing struct {
	Title        string
	Acreage      *float64
	Price        *int
	Status       ListingStatus
	Source       string
	Region       string
	URL          string
	ThumbnailURL string
}

// Listing is the durable record of one tracked land parcel.
type Listing struct {
	// 基本情報
	ID           string `gorm:"type:varchar(32);primaryKey" json:"id"`
	URL          string `gorm:"type:varchar(500);not null;index" json:"url"`
	Title        string `gorm:"type:text;not null" json:"title"`
	ThumbnailURL string `gorm:"type:text" json:"thumbnail_url,omitempty"`

	// フィルタ用属性
	Acreage *float64      `gorm:"type:decimal(10,2);index" json:"acreage,omitempty"`
	Price   *int          `gorm:"type:int;index" json:"price,omitempty"`
	Status  ListingStatus `gorm:"type:varchar(20);not null;default:'unknown';index" json:"status"`
	Source  string        `gorm:"type:varchar(50);not null;index" json:"source"`
	Region  string        `gorm:"type:varchar(100);index" json:"region,omitempty"`

	// 履歴（不変・単調フィールド）
	// FoundUTC is immutable after first write. EverTopMatch only ever
	// transitions false -> true. The merge function in internal/reconcile
	// is the single place these rules are enforced.
	FoundUTC     time.Time `gorm:"type:datetime;not null;index:idx_found_utc,sort:desc" json:"found_utc"`
	LastSeenUTC  time.Time `gorm:"type:datetime;not null" json:"last_seen_utc"`
	EverTopMatch bool      `gorm:"type:boolean;not null;default:false;index" json:"ever_top_match"`
}

// TableName はテーブル名を明示的に指定
func (Listing) TableName() string {
	return "listings"
}

// Criteria are the buyer-configured thresholds used for classification.
// Treated as an immutable value passed explicitly into the classifier and
// the reconciliation engine at run start.
type Criteria struct {
	AcreageMin float64 `yaml:"acreage_min" json:"acreage_min"`
	AcreageMax float64 `yaml:"acreage_max" json:"acreage_max"`
	PriceCap   int     `yaml:"price_cap" json:"price_cap"`
}
