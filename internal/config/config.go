package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"land-tracker/internal/models"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Criteria  models.Criteria `yaml:"criteria"`
	Sources   []Source        `yaml:"sources"`
	Run       RunConfig       `yaml:"run"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	UserAgent string          `yaml:"user_agent"`
	Timezone  string          `yaml:"timezone"`
}

// Source is one configured county/platform search page
type Source struct {
	ID     string `yaml:"id"`
	URL    string `yaml:"url"`
	Region string `yaml:"region"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	File     FileConfig     `yaml:"file"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// FileConfig contains JSON file store settings
type FileConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// RunConfig contains scrape-run settings
type RunConfig struct {
	TimeoutPerSourceSeconds int    `yaml:"timeout_per_source_seconds"`
	ConcurrentLimit         int    `yaml:"concurrent_limit"`
	MaxRetries              int    `yaml:"max_retries"`
	RetryDelaySeconds       int    `yaml:"retry_delay_seconds"`
	RequestDelaySeconds     int    `yaml:"request_delay_seconds"`
	DailyRunEnabled         bool   `yaml:"daily_run_enabled"`
	DailyRunTime            string `yaml:"daily_run_time"`
	DetailEnrichLimit       int    `yaml:"detail_enrich_limit"`
	HeadlessFallback        bool   `yaml:"headless_fallback"`
}

// CleanupConfig contains retention cleanup settings
type CleanupConfig struct {
	RetentionDays    int `yaml:"retention_days"`
	MaxDeletionCount int `yaml:"max_deletion_count"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Criteria: models.Criteria{
			AcreageMin: 11.0,
			AcreageMax: 50.0,
			PriceCap:   600000,
		},
		Run: RunConfig{
			TimeoutPerSourceSeconds: 40,
			ConcurrentLimit:         4,
			MaxRetries:              3,
			RetryDelaySeconds:       2,
			RequestDelaySeconds:     2,
			DailyRunEnabled:         false,
			DailyRunTime:            "02:00",
			DetailEnrichLimit:       12,
			HeadlessFallback:        false,
		},
		Cleanup: CleanupConfig{
			RetentionDays:    90,
			MaxDeletionCount: 10000,
		},
		UserAgent: "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SourceIDs returns the ids of all configured sources
func (c *Config) SourceIDs() []string {
	ids := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		ids = append(ids, s.ID)
	}
	return ids
}

// GetTimeoutPerSource returns the per-source fetch timeout as a duration
func (c *RunConfig) GetTimeoutPerSource() time.Duration {
	return time.Duration(c.TimeoutPerSourceSeconds) * time.Second
}

// GetRetryDelay returns the retry delay as a duration
func (c *RunConfig) GetRetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// GetRequestDelay returns the per-host request delay as a duration
func (c *RunConfig) GetRequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds) * time.Second
}
