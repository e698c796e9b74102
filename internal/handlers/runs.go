package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"land-tracker/internal/database"
)

// RunsHandler serves scrape run history and detected changes
type RunsHandler struct {
	store database.Store
}

func NewRunsHandler(store database.Store) *RunsHandler {
	return &RunsHandler{store: store}
}

// GetRuns returns recent scrape runs, newest first
func (h *RunsHandler) GetRuns(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, _ := strconv.Atoi(limitStr)

	runs, err := h.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetChanges returns recently detected listing changes
func (h *RunsHandler) GetChanges(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, _ := strconv.Atoi(limitStr)

	changes, err := h.store.RecentChanges(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}
