package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"land-tracker/internal/cleanup"
	"land-tracker/internal/config"
	"land-tracker/internal/database"
	"land-tracker/internal/scheduler"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	store          database.Store
	scheduler      *scheduler.Scheduler
	cleanupService *cleanup.Service
	config         *config.Config
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store database.Store, sched *scheduler.Scheduler, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		store:          store,
		scheduler:      sched,
		cleanupService: cleanup.NewService(store),
		config:         cfg,
	}
}

// TriggerRun manually starts a scrape run
func (h *AdminHandler) TriggerRun(c *gin.Context) {
	log.Println("Admin: Manual run trigger requested")

	// Run in goroutine to avoid blocking the request
	go func() {
		run, err := h.scheduler.RunNow(context.Background())
		if err != nil {
			if errors.Is(err, scheduler.ErrRunInProgress) {
				log.Println("Admin: Manual run skipped, another run in progress")
				return
			}
			log.Printf("Admin: Manual run failed: %v", err)
			return
		}
		log.Printf("Admin: Manual run %d completed with outcome %s", run.ID, run.Outcome)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Scrape run started",
		"status":  "running",
	})
}

// RunCleanup executes physical deletion of listings past retention
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays    int  `json:"retention_days"`     // Days to keep (default from config)
		MaxDeletionCount int  `json:"max_deletion_count"` // Safety limit
		DryRun           bool `json:"dry_run"`            // Dry run mode
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := cleanup.DefaultCleanupConfig()
	cfg.RetentionDays = h.config.Cleanup.RetentionDays
	cfg.MaxDeletionCount = h.config.Cleanup.MaxDeletionCount
	if req.RetentionDays > 0 {
		cfg.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		cfg.MaxDeletionCount = req.MaxDeletionCount
	}
	cfg.DryRun = req.DryRun

	log.Printf("Admin: Running cleanup (retention: %d days, max: %d, dry-run: %v)",
		cfg.RetentionDays, cfg.MaxDeletionCount, cfg.DryRun)

	result, err := h.cleanupService.Execute(cfg)
	if err != nil {
		log.Printf("Admin: Cleanup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	listings, err := h.store.ListListings(nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	bySource := make(map[string]int)
	byStatus := make(map[string]int)
	everTop := 0
	last24h := time.Now().UTC().AddDate(0, 0, -1)
	seenLast24h := 0
	for _, l := range listings {
		bySource[l.Source]++
		byStatus[string(l.Status)]++
		if l.EverTopMatch {
			everTop++
		}
		if l.LastSeenUTC.After(last24h) {
			seenLast24h++
		}
	}

	stats["listings"] = map[string]interface{}{
		"total":          len(listings),
		"by_source":      bySource,
		"by_status":      byStatus,
		"ever_top_match": everTop,
		"seen_last_24h":  seenLast24h,
	}

	runs, err := h.store.ListRuns(10)
	if err != nil {
		log.Printf("Admin: Failed to load recent runs for stats: %v", err)
	} else {
		stats["recent_runs"] = runs
	}

	c.JSON(http.StatusOK, stats)
}

// HealthCheck reports process and store health
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
