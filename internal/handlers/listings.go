package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"land-tracker/internal/classify"
	"land-tracker/internal/database"
	"land-tracker/internal/models"
)

// ListingsHandler serves the listing read path. Classification happens
// here, on read, against the configured criteria; nothing classified is
// ever persisted.
type ListingsHandler struct {
	store    database.Store
	criteria models.Criteria
}

func NewListingsHandler(store database.Store, criteria models.Criteria) *ListingsHandler {
	return &ListingsHandler{store: store, criteria: criteria}
}

// ClassifiedListing is a listing with its display class attached
type ClassifiedListing struct {
	models.Listing
	MatchClass classify.MatchClass `json:"match_class"`
}

// GetListings returns listings classified and sorted for display.
// Filters: source (comma separated), class, status, region.
func (h *ListingsHandler) GetListings(c *gin.Context) {
	var sources []string
	if s := c.Query("source"); s != "" {
		sources = strings.Split(s, ",")
	}

	listings, err := h.store.ListListings(sources)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	classFilter := c.Query("class")
	statusFilter := c.Query("status")
	regionFilter := c.Query("region")

	classify.SortByPriority(listings, h.criteria)

	results := make([]ClassifiedListing, 0, len(listings))
	for _, l := range listings {
		if statusFilter != "" && string(l.Status) != statusFilter {
			continue
		}
		if regionFilter != "" && l.Region != regionFilter {
			continue
		}
		class := classify.Classify(l, h.criteria)
		if classFilter != "" && string(class) != classFilter {
			continue
		}
		results = append(results, ClassifiedListing{Listing: l, MatchClass: class})
	}

	limit, offset := pagination(c)
	total := len(results)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": results[offset:end],
		"total":    total,
		"criteria": h.criteria,
	})
}

// GetListing returns a single listing by id
func (h *ListingsHandler) GetListing(c *gin.Context) {
	id := c.Param("id")

	listing, err := h.store.GetListing(id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ClassifiedListing{
		Listing:    *listing,
		MatchClass: classify.Classify(*listing, h.criteria),
	})
}

// GetListingHistory returns the snapshot history for a listing
func (h *ListingsHandler) GetListingHistory(c *gin.Context) {
	id := c.Param("id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, _ := strconv.Atoi(limitStr)

	history, err := h.store.SnapshotHistory(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing_id": id,
		"snapshots":  history,
		"count":      len(history),
	})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 {
		limit = 100
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
