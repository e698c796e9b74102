package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Criteria.AcreageMin != 11.0 || cfg.Criteria.AcreageMax != 50.0 {
		t.Errorf("default acreage bounds = %v-%v", cfg.Criteria.AcreageMin, cfg.Criteria.AcreageMax)
	}
	if cfg.Criteria.PriceCap != 600000 {
		t.Errorf("default price cap = %d", cfg.Criteria.PriceCap)
	}
	if cfg.Run.ConcurrentLimit != 4 {
		t.Errorf("default concurrent limit = %d", cfg.Run.ConcurrentLimit)
	}
	if cfg.Cleanup.RetentionDays != 90 {
		t.Errorf("default retention = %d days", cfg.Cleanup.RetentionDays)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if cfg.Criteria.PriceCap != 600000 {
		t.Errorf("price cap = %d, want default", cfg.Criteria.PriceCap)
	}
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	yaml := `
criteria:
  acreage_min: 5
  acreage_max: 100
  price_cap: 750000
sources:
  - id: landsearch
    url: https://www.landsearch.com/properties/brown-county-in
    region: brown-county-in
  - id: landwatch
    url: https://www.landwatch.com/indiana-land-for-sale
    region: indiana
run:
  daily_run_enabled: true
  daily_run_time: "05:30"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Criteria.PriceCap != 750000 {
		t.Errorf("price cap = %d, want 750000", cfg.Criteria.PriceCap)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(cfg.Sources))
	}
	if got := cfg.SourceIDs(); got[0] != "landsearch" || got[1] != "landwatch" {
		t.Errorf("source ids = %v", got)
	}
	if !cfg.Run.DailyRunEnabled || cfg.Run.DailyRunTime != "05:30" {
		t.Errorf("run schedule = %v %q", cfg.Run.DailyRunEnabled, cfg.Run.DailyRunTime)
	}
	// Untouched fields keep defaults
	if cfg.Cleanup.RetentionDays != 90 {
		t.Errorf("retention = %d, want default 90", cfg.Cleanup.RetentionDays)
	}
}
