package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calimingo/order-dashboard-service/api"
	"github.com/calimingo/order-dashboard-service/internal/auth"
	"github.com/calimingo/order-dashboard-service/internal/db"
	"github.com/calimingo/order-dashboard-service/internal/models"
	"github.com/calimingo/order-dashboard-service/internal/storage"
)

func main() {
	// Initialize JWT
	auth.Init()
	log.Println("JWT authentication initialized")

	// Initialize database connection pool
	if err := db.Init(); err != nil {
		log.Printf("Warning: Database not available: %v", err)
		log.Println("Running in parse-only mode (no persistence)")
	} else {
		defer db.Close()
		log.Println("Database connection pool initialized")
	}

	// Initialize MinIO storage
	if err := storage.Init(); err != nil {
		log.Printf("Warning: MinIO storage not available: %v", err)
		log.Println("Source documents will not be stored")
	} else {
		log.Println("MinIO storage initialized")
	}

	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Create API handler
	handler := api.NewHandler(config)
	router := handler.SetupRoutes()

	// Wrap router with JWT middleware (skips /health and /api/login)
	protectedRouter := auth.JWTMiddleware(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Printf("Starting Order Dashboard Service v%s on %s", api.Version, addr)
	log.Printf("Reconcile tolerance: %.2f", config.Parser.Tolerance)
	log.Printf("Database: %v", db.Pool != nil)
	log.Printf("Storage: %v", storage.Client != nil)
	log.Printf("Endpoints:")
	log.Printf("  POST http://%s/api/login               - Authenticate", addr)
	log.Printf("  POST http://%s/api/parse-order         - Parse order document (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/orders              - Get saved orders (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/order/{id}          - Get single order (requires JWT)", addr)
	log.Printf("  PUT  http://%s/api/order/{id}          - Update order (requires JWT)", addr)
	log.Printf("  DELETE http://%s/api/order/{id}        - Delete order (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/order/{id}/export   - Export order as xlsx (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/stats               - Get monthly stats (requires JWT)", addr)
	log.Printf("  GET  http://%s/health                  - Health check", addr)

	if err := http.ListenAndServe(addr, protectedRouter); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if tolerance := os.Getenv("RECONCILE_TOLERANCE"); tolerance != "" {
		fmt.Sscanf(tolerance, "%f", &config.Parser.Tolerance)
	}
	if userAgent := os.Getenv("FETCH_USER_AGENT"); userAgent != "" {
		config.Fetch.UserAgent = userAgent
	}

	return &config, nil
}
