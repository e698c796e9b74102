package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"land-tracker/internal/config"
	"land-tracker/internal/database"
	"land-tracker/internal/models"
)

func newTestScheduler(t *testing.T, cfg *config.Config) *Scheduler {
	t.Helper()
	store, err := database.NewFileStore(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return NewScheduler(store, nil, cfg)
}

func TestFetchAllSourcesZeroConcurrencyDoesNotHang(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Run.ConcurrentLimit = 0
	cfg.Run.RequestDelaySeconds = 0
	cfg.Run.MaxRetries = 0
	cfg.Sources = []config.Source{
		{ID: "a", URL: srv.URL + "/one", Region: "test"},
		{ID: "b", URL: srv.URL + "/two", Region: "test"},
	}

	sched := newTestScheduler(t, cfg)

	done := make(chan struct{})
	var batch []models.RawListing
	var failed int
	go func() {
		batch, failed = sched.fetchAllSources(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("fetchAllSources hung with a zero concurrency limit")
	}

	if failed != 0 {
		t.Errorf("failed sources = %d, want 0", failed)
	}
	if len(batch) != 0 {
		t.Errorf("batch = %d listings, want 0 from an empty page", len(batch))
	}
}

func TestParseDailyRunTime(t *testing.T) {
	sched := newTestScheduler(t, config.DefaultConfig())

	tests := []struct {
		input string
		want  string
	}{
		{"02:00", "0 2 * * *"},
		{"05:30", "30 5 * * *"},
		{"23:59", "59 23 * * *"},
		{"garbage", "0 2 * * *"},
		{"", "0 2 * * *"},
	}

	for _, tt := range tests {
		if got := sched.parseDailyRunTime(tt.input); got != tt.want {
			t.Errorf("parseDailyRunTime(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
