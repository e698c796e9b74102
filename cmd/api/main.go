package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"land-tracker/internal/config"
	"land-tracker/internal/database"
	"land-tracker/internal/handlers"
	"land-tracker/internal/scheduler"
	"land-tracker/internal/search"
)

func main() {
	// Load .env if present, real env vars take precedence
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config/tracker.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	// Initialize store based on configuration
	store, err := openStore(appConfig)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Initialize Meilisearch using config; skipped when no host is set
	var searchClient *search.SearchClient
	meilisearchHost := appConfig.Search.Meilisearch.Host
	if meilisearchHost == "" {
		meilisearchHost = getEnv("MEILISEARCH_HOST", "")
	}
	if meilisearchHost != "" {
		meilisearchKey := appConfig.Search.Meilisearch.APIKey
		if meilisearchKey == "" {
			meilisearchKey = getEnv("MEILISEARCH_KEY", "")
		}
		searchClient = search.NewSearchClient(meilisearchHost, meilisearchKey)

		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v", err)
		}
	} else {
		log.Println("Search backend not configured, /api/search disabled")
	}

	// Initialize and start scheduler
	appScheduler := scheduler.NewScheduler(store, searchClient, appConfig)
	if err := appScheduler.Start(); err != nil {
		log.Printf("Warning: Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	// Setup Gin router
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{getEnv("CORS_ORIGIN", "http://localhost:5173")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	listingsHandler := handlers.NewListingsHandler(store, appConfig.Criteria)
	runsHandler := handlers.NewRunsHandler(store)
	searchHandler := handlers.NewSearchHandler(searchClient)
	adminHandler := handlers.NewAdminHandler(store, appScheduler, appConfig)

	// Routes
	r.GET("/api/health", adminHandler.HealthCheck)

	r.GET("/api/listings", listingsHandler.GetListings)
	r.GET("/api/listings/:id", listingsHandler.GetListing)
	r.GET("/api/listings/:id/history", listingsHandler.GetListingHistory)

	r.GET("/api/runs", runsHandler.GetRuns)
	r.GET("/api/changes", runsHandler.GetChanges)

	r.GET("/api/search", searchHandler.Search)

	admin := r.Group("/api/admin")
	{
		admin.POST("/run", adminHandler.TriggerRun)
		admin.POST("/cleanup", adminHandler.RunCleanup)
		admin.GET("/stats", adminHandler.GetStats)
	}

	port := getEnv("PORT", "8084")
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// openStore builds the configured store backend. Postgres is the default;
// mysql and a JSON file store are available for smaller deployments.
func openStore(cfg *config.Config) (database.Store, error) {
	dbType := cfg.Database.Type
	if dbType == "" {
		dbType = getEnv("DB_TYPE", "postgres")
	}

	switch dbType {
	case "mysql":
		log.Println("Using MySQL with GORM")
		mysqlCfg := cfg.Database.MySQL

		portStr := ""
		if mysqlCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", mysqlCfg.Port)
		}

		gdb, err := database.NewGormDB(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portStr, "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "landtracker_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "landtracker_pass"),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "landtracker_db"),
		)
		if err != nil {
			return nil, err
		}
		if err := gdb.InitSchema(); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return gdb, nil

	case "file":
		path := cfg.Database.File.Path
		if path == "" {
			path = getEnv("DB_FILE_PATH", "data/listings.json")
		}
		log.Printf("Using JSON file store at %s", path)
		return database.NewFileStore(path)

	default:
		log.Println("Using PostgreSQL")
		pgCfg := cfg.Database.Postgres

		portStr := ""
		if pgCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", pgCfg.Port)
		}

		db, err := database.NewDB(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "postgres"),
			getEnvOrConfig(portStr, "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "landtracker_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", "landtracker_pass"),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "landtracker_db"),
			getEnvOrConfig(pgCfg.SSLMode, "DB_SSLMODE", "disable"),
		)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return db, nil
	}
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig prefers the config value, then the env var, then the default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}
