// main.go
// FleetTrack API - truck load productivity tracker over SharePoint lists.
// Implements JWT authentication, Microsoft Graph sync and comprehensive middleware.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleettrack/auth"
	"fleettrack/config"
	"fleettrack/graph"
	"fleettrack/handlers"
	"fleettrack/importer"
	"fleettrack/middleware"
	"fleettrack/models"
	"fleettrack/schedule"
	"fleettrack/store"

	"github.com/joho/godotenv"
)

// Global instances
var (
	cfg               *config.Config
	graphClient       *graph.Client
	appStore          *store.Store
	jwtManager        *auth.JWTManager
	authHandler       *handlers.AuthHandler
	syncHandler       *handlers.SyncHandler
	loadsHandler      *handlers.LoadsHandler
	adminHandler      *handlers.AdminHandler
	indicatorsHandler *handlers.IndicatorsHandler
	exportHandler     *handlers.ExportHandler
	importHandler     *handlers.ImportHandler
	rateLimiter       *middleware.RateLimiter
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	// Load configuration
	cfg = config.Load()
	cfg.Validate()

	log.Printf("🚀 Starting FleetTrack API Server")
	log.Printf("📍 Environment: %s", cfg.Server.Environment)
	log.Printf("🔧 Port: %s", cfg.Server.Port)

	// Initialize Graph gateway
	tokens := graph.NewDeviceCodeTokenProvider(cfg.Graph)
	graphClient = graph.NewClient(cfg.Graph, tokens, nil)
	log.Printf("🌐 Graph client initialized (tenant %s)", cfg.Graph.TenantID)

	// Initialize the state store
	policy := schedule.PolicyFromConfig(cfg.Schedule)
	sessions := &store.FileSession{Path: cfg.Session.FilePath}
	appStore = store.New(graphClient, policy, sessions, cfg.Master)
	log.Printf("📦 Store initialized (avg speed %.0f km/h)", policy.AvgSpeedKmh)

	// Initialize JWT Manager
	jwtManager = auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	log.Printf("🔐 JWT Manager initialized (expiration: %v)", cfg.JWT.Expiration)

	// Initialize handlers
	authHandler = handlers.NewAuthHandler(appStore, jwtManager)
	syncHandler = handlers.NewSyncHandler(appStore)
	loadsHandler = handlers.NewLoadsHandler(appStore)
	adminHandler = handlers.NewAdminHandler(appStore)
	indicatorsHandler = handlers.NewIndicatorsHandler(appStore)
	exportHandler = handlers.NewExportHandler(appStore)
	importHandler = handlers.NewImportHandler(importer.New(appStore))
	log.Printf("✅ Handlers initialized")

	// Initialize rate limiter
	rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters()
	log.Printf("🛡️  Rate limiter initialized (%d requests per %v)", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Set up router
	mux := http.NewServeMux()

	// Public routes (no authentication required)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/refresh", authHandler.RefreshToken)

	// Protected routes (authentication required)
	authMiddleware := middleware.AuthMiddleware(jwtManager, appStore)

	mux.Handle("/api/logout", authMiddleware(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("/api/sync", authMiddleware(http.HandlerFunc(syncHandler.Sync)))

	// Load lifecycle
	mux.Handle("/api/loads", authMiddleware(http.HandlerFunc(handleLoads)))
	mux.Handle("/api/loads/close", authMiddleware(http.HandlerFunc(loadsHandler.CloseLoad)))
	mux.Handle("/api/loads/update", authMiddleware(http.HandlerFunc(loadsHandler.UpdateLoad)))
	mux.Handle("/api/loads/delete", authMiddleware(http.HandlerFunc(loadsHandler.DeleteLoad)))

	// Indicators and export
	mux.Handle("/api/indicators", authMiddleware(http.HandlerFunc(indicatorsHandler.GetIndicators)))
	mux.Handle("/api/export", authMiddleware(http.HandlerFunc(exportHandler.ExportLoads)))

	// Admin endpoints (admin only)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	mux.Handle("/api/admin/plants", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetPlants))))
	mux.Handle("/api/admin/plants/create", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.CreatePlant))))
	mux.Handle("/api/admin/plants/delete", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.DeletePlant))))
	mux.Handle("/api/admin/trucks", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetTrucks))))
	mux.Handle("/api/admin/trucks/create", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.CreateTruck))))
	mux.Handle("/api/admin/trucks/delete", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.DeleteTruck))))
	mux.Handle("/api/admin/drivers", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetDrivers))))
	mux.Handle("/api/admin/drivers/create", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.CreateDriver))))
	mux.Handle("/api/admin/drivers/delete", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.DeleteDriver))))
	mux.Handle("/api/admin/users", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetUsers))))
	mux.Handle("/api/admin/users/create", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.CreateUser))))
	mux.Handle("/api/admin/users/delete", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.DeleteUser))))
	mux.Handle("/api/admin/justifications", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetJustifications))))
	mux.Handle("/api/admin/justifications/create", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.CreateJustification))))
	mux.Handle("/api/admin/justifications/delete", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.DeleteJustification))))
	mux.Handle("/api/admin/audit", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.AuditTrail))))

	// Bulk imports (admin only)
	mux.Handle("/api/import/loads", authMiddleware(adminOnly(http.HandlerFunc(importHandler.Import))))
	mux.Handle("/api/import/trucks", authMiddleware(adminOnly(http.HandlerFunc(importHandler.Import))))
	mux.Handle("/api/import/drivers", authMiddleware(adminOnly(http.HandlerFunc(importHandler.Import))))

	// Apply global middleware
	handler := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)
	handler = rateLimiter.Middleware()(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// handleLoads dispatches /api/loads by method: GET lists, POST creates.
func handleLoads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		loadsHandler.GetLoads(w, r)
	case http.MethodPost:
		loadsHandler.CreateLoad(w, r)
	default:
		http.Error(w, `{"error":"Method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
