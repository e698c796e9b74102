package search

import (
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"
)

type FilterParams struct {
	Query        string
	MinAcreage   *float64
	MaxAcreage   *float64
	MinPrice     *int
	MaxPrice     *int
	Statuses     []string
	Sources      []string
	Region       string
	MatchClasses []string
	SortBy       string
	Limit        int64
	Offset       int64
}

// SearchResult carries one page of hits with the total estimate
type SearchResult struct {
	Hits           []ListingDocument
	TotalHits      int64
	ProcessingTime int64
}

// FilterSearch performs a filtered search over the listings index
func (s *SearchClient) FilterSearch(params FilterParams) (*SearchResult, error) {
	var filters []string

	// Acreage range filter
	if params.MinAcreage != nil {
		filters = append(filters, fmt.Sprintf("acreage >= %g", *params.MinAcreage))
	}
	if params.MaxAcreage != nil {
		filters = append(filters, fmt.Sprintf("acreage <= %g", *params.MaxAcreage))
	}

	// Price range filter
	if params.MinPrice != nil {
		filters = append(filters, fmt.Sprintf("price >= %d", *params.MinPrice))
	}
	if params.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("price <= %d", *params.MaxPrice))
	}

	if len(params.Statuses) > 0 {
		filters = append(filters, orFilter("status", params.Statuses))
	}
	if len(params.Sources) > 0 {
		filters = append(filters, orFilter("source", params.Sources))
	}
	if params.Region != "" {
		filters = append(filters, fmt.Sprintf("region = '%s'", escapeFilterValue(params.Region)))
	}
	if len(params.MatchClasses) > 0 {
		filters = append(filters, orFilter("match_class", params.MatchClasses))
	}

	if params.Limit == 0 {
		params.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	if len(filters) > 0 {
		searchReq.Filter = strings.Join(filters, " AND ")
	}
	if params.SortBy != "" {
		searchReq.Sort = []string{params.SortBy}
	}

	searchRes, err := s.client.Index(s.index).Search(params.Query, searchReq)
	if err != nil {
		return nil, err
	}

	hits := make([]ListingDocument, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		hits = append(hits, parseDocumentFromHit(hit))
	}

	return &SearchResult{
		Hits:           hits,
		TotalHits:      searchRes.EstimatedTotalHits,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

func orFilter(field string, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s = '%s'", field, escapeFilterValue(v))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "\\'")
}

// parseDocumentFromHit converts a search hit to a ListingDocument
func parseDocumentFromHit(hit interface{}) ListingDocument {
	hitMap, ok := hit.(map[string]interface{})
	if !ok {
		return ListingDocument{}
	}

	doc := ListingDocument{
		ID:           getString(hitMap, "id"),
		Title:        getString(hitMap, "title"),
		URL:          getString(hitMap, "url"),
		Source:       getString(hitMap, "source"),
		Region:       getString(hitMap, "region"),
		Status:       getString(hitMap, "status"),
		ThumbnailURL: getString(hitMap, "thumbnail_url"),
		MatchClass:   getString(hitMap, "match_class"),
	}

	// Parse numeric fields
	if acreage, ok := hitMap["acreage"].(float64); ok {
		doc.Acreage = &acreage
	}
	if price, ok := hitMap["price"].(float64); ok {
		priceInt := int(price)
		doc.Price = &priceInt
	}
	if found, ok := hitMap["found_utc"].(float64); ok {
		doc.FoundUTC = int64(found)
	}
	if seen, ok := hitMap["last_seen_utc"].(float64); ok {
		doc.LastSeenUTC = int64(seen)
	}
	if ever, ok := hitMap["ever_top_match"].(bool); ok {
		doc.EverTopMatch = ever
	}

	return doc
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
