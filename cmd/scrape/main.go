package main

import (
	"context"
	"flag"
	"log"
	"strconv"

	"github.com/joho/godotenv"

	"land-tracker/internal/config"
	"land-tracker/internal/database"
	"land-tracker/internal/scheduler"
	"land-tracker/internal/search"
)

// One-shot scrape runner for cron-less deployments and manual testing.
// Executes a single run against the configured sources and exits with the
// run outcome in the logs.
func main() {
	configPath := flag.String("config", "config/tracker.yaml", "path to config file")
	filePath := flag.String("file", "", "use the JSON file store at this path instead of the configured database")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", *configPath, err)
		cfg = config.DefaultConfig()
	}

	var store database.Store
	if *filePath != "" {
		store, err = database.NewFileStore(*filePath)
	} else {
		store, err = openConfiguredStore(cfg)
	}
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	var searchClient *search.SearchClient
	if cfg.Search.Meilisearch.Host != "" {
		searchClient = search.NewSearchClient(cfg.Search.Meilisearch.Host, cfg.Search.Meilisearch.APIKey)
		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v", err)
		}
	}

	sched := scheduler.NewScheduler(store, searchClient, cfg)
	run, err := sched.RunNow(context.Background())
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	log.Printf("Run %d done: outcome=%s written=%d skipped=%d write_errors=%d failed_sources=%d",
		run.ID, run.Outcome, run.ListingsWritten, run.ListingsSkipped, run.WriteErrors, run.SourcesFailed)
}

func openConfiguredStore(cfg *config.Config) (database.Store, error) {
	switch cfg.Database.Type {
	case "mysql":
		m := cfg.Database.MySQL
		gdb, err := database.NewGormDB(m.Host, itoa(m.Port, "3306"), m.User, m.Password, m.Database)
		if err != nil {
			return nil, err
		}
		if err := gdb.InitSchema(); err != nil {
			return nil, err
		}
		return gdb, nil
	case "file":
		path := cfg.Database.File.Path
		if path == "" {
			path = "data/listings.json"
		}
		return database.NewFileStore(path)
	default:
		p := cfg.Database.Postgres
		sslmode := p.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		db, err := database.NewDB(p.Host, itoa(p.Port, "5432"), p.User, p.Password, p.Database, sslmode)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			return nil, err
		}
		return db, nil
	}
}

func itoa(port int, fallback string) string {
	if port <= 0 {
		return fallback
	}
	return strconv.Itoa(port)
}
