package search

import (
	"github.com/meilisearch/meilisearch-go"

	"land-tracker/internal/classify"
	"land-tracker/internal/models"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "listings",
	}
}

// ListingDocument is the shape indexed into Meilisearch. The match class
// is computed against the criteria at index time so it can be filtered on.
type ListingDocument struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Source       string   `json:"source"`
	Region       string   `json:"region"`
	Acreage      *float64 `json:"acreage,omitempty"`
	Price        *int     `json:"price,omitempty"`
	Status       string   `json:"status"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	FoundUTC     int64    `json:"found_utc"`
	LastSeenUTC  int64    `json:"last_seen_utc"`
	EverTopMatch bool     `json:"ever_top_match"`
	MatchClass   string   `json:"match_class"`
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"url",
		"region",
		"source",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"acreage",
		"price",
		"status",
		"source",
		"region",
		"ever_top_match",
		"match_class",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"acreage",
		"found_utc",
		"last_seen_utc",
	})
	if err != nil {
		return err
	}

	return nil
}

// ToDocument converts a listing to its index document
func ToDocument(l models.Listing, criteria models.Criteria) ListingDocument {
	return ListingDocument{
		ID:           l.ID,
		Title:        l.Title,
		URL:          l.URL,
		Source:       l.Source,
		Region:       l.Region,
		Acreage:      l.Acreage,
		Price:        l.Price,
		Status:       string(l.Status),
		ThumbnailURL: l.ThumbnailURL,
		FoundUTC:     l.FoundUTC.Unix(),
		LastSeenUTC:  l.LastSeenUTC.Unix(),
		EverTopMatch: l.EverTopMatch,
		MatchClass:   string(classify.Classify(l, criteria)),
	}
}

// IndexListing indexes a single listing
func (s *SearchClient) IndexListing(l models.Listing, criteria models.Criteria) error {
	_, err := s.client.Index(s.index).AddDocuments([]ListingDocument{ToDocument(l, criteria)})
	return err
}

// IndexListings indexes multiple listings
func (s *SearchClient) IndexListings(listings []models.Listing, criteria models.Criteria) error {
	if len(listings) == 0 {
		return nil
	}

	docs := make([]ListingDocument, 0, len(listings))
	for _, l := range listings {
		docs = append(docs, ToDocument(l, criteria))
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

// DeleteListing removes a listing from the index
func (s *SearchClient) DeleteListing(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}
