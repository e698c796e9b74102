package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"land-tracker/internal/search"
)

// SearchHandler serves full-text search over the Meilisearch index
type SearchHandler struct {
	client *search.SearchClient
}

func NewSearchHandler(client *search.SearchClient) *SearchHandler {
	return &SearchHandler{client: client}
}

// Search performs a filtered full-text search.
// Query params: q, min_acreage, max_acreage, min_price, max_price,
// status, source, region, class, sort, limit, offset.
func (h *SearchHandler) Search(c *gin.Context) {
	if h.client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search backend not configured"})
		return
	}

	params := search.FilterParams{
		Query:  c.Query("q"),
		Region: c.Query("region"),
		SortBy: c.Query("sort"),
	}

	if v := c.Query("min_acreage"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.MinAcreage = &f
		}
	}
	if v := c.Query("max_acreage"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.MaxAcreage = &f
		}
	}
	if v := c.Query("min_price"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.MinPrice = &n
		}
	}
	if v := c.Query("max_price"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.MaxPrice = &n
		}
	}
	if v := c.Query("status"); v != "" {
		params.Statuses = strings.Split(v, ",")
	}
	if v := c.Query("source"); v != "" {
		params.Sources = strings.Split(v, ",")
	}
	if v := c.Query("class"); v != "" {
		params.MatchClasses = strings.Split(v, ",")
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			params.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			params.Offset = n
		}
	}

	result, err := h.client.FilterSearch(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hits":               result.Hits,
		"total":              result.TotalHits,
		"processing_time_ms": result.ProcessingTime,
	})
}
