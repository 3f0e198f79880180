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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/cache"
	"github.com/tesseract-hub/agency-service/internal/config"
	"github.com/tesseract-hub/agency-service/internal/events"
	"github.com/tesseract-hub/agency-service/internal/handlers"
	"github.com/tesseract-hub/agency-service/internal/health"
	"github.com/tesseract-hub/agency-service/internal/middleware"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/services"
	"github.com/tesseract-hub/agency-service/internal/workers"
)

// @title Agency Operations API
// @version 1.0
// @description Project, client and billing management service for Tesseract Hub agency dashboards
// @termsOfService http://swagger.io/terms/
// @contact.name Tesseract Hub Team
// @contact.email dev@tesseract-hub.com
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8086
// @BasePath /
// @schemes http https
func main() {
	// Check if running health check
	if len(os.Args) > 1 && os.Args[1] == "health" {
		resp, err := http.Get("http://localhost:8086/livez")
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.NewConfig()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Run database migrations
	if err := runMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.App.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize NATS events publisher (non-blocking)
	go func() {
		if err := events.InitPublisher(logger); err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (events won't be published)", err)
		} else {
			log.Println("✓ NATS events publisher initialized")
		}
	}()

	// Initialize Redis client (graceful degradation if unavailable)
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Printf("WARNING: Failed to parse Redis URL: %v (L2 caching disabled)", err)
		} else {
			redisClient = redis.NewClient(opt)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("WARNING: Failed to connect to Redis: %v (L2 caching disabled)", err)
				redisClient = nil
			} else {
				log.Println("✓ Redis connection established")
			}
		}
	}

	// Portal view cache: in-process L1, Redis L2 when available. The
	// mutation services share it so admin writes invalidate portal reads.
	portalCache := cache.NewPortalCache(redisClient)

	// Initialize services
	revenueService := services.NewRevenueService(db, logger)
	assignmentService := services.NewAssignmentService(db, portalCache, logger)
	projectService := services.NewProjectService(db, portalCache, logger)
	clientService := services.NewClientService(db, portalCache, logger)
	invoiceService := services.NewInvoiceService(db, revenueService, portalCache, logger)
	dashboardService := services.NewDashboardService(db, logger)
	portalService := services.NewPortalService(db, portalCache, cfg.Portal.JWTSecret, logger)

	// Background consistency reconciler
	reconciler := workers.NewReconciler(db, cfg.Reconciler.SweepInterval, logger)
	reconciler.Start()

	// Initialize handlers
	projectHandler := handlers.NewProjectHandler(projectService, assignmentService)
	clientHandler := handlers.NewClientHandler(clientService, assignmentService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, reconciler)
	portalHandler := handlers.NewPortalHandler(portalService)

	// Initialize health checker
	healthChecker := health.NewHealthChecker(db, cfg.App.Version)

	// Initialize Gin router
	router := setupRouter(projectHandler, clientHandler, invoiceHandler, dashboardHandler, portalHandler, healthChecker)

	// Mark service as ready
	healthChecker.SetReady(true)

	// Start server
	serverAddr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("🚀 Agency Service starting on %s", serverAddr)
	log.Printf("📚 API Documentation available at http://%s/swagger/index.html", serverAddr)
	log.Printf("🏥 Health endpoints: /health, /livez, /readyz")
	log.Printf("📊 Metrics available at http://%s/metrics", serverAddr)

	// Graceful shutdown handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		reconciler.Stop()
		events.GetPublisher().Close()
		os.Exit(0)
	}()

	if err := router.Run(serverAddr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// initializeDatabase establishes database connection
func initializeDatabase(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	dsn := dbConfig.DSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}

	// Test database connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established successfully")
	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *gorm.DB) error {
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.Client{},
		&models.Contact{},
		&models.Project{},
		&models.Assignment{},
		&models.Invoice{},
	); err != nil {
		log.Printf("⚠️  AutoMigrate warning: %v", err)
		// Don't fail - the table may already exist with slightly different schema
	}

	log.Println("✅ Database migrations completed successfully")
	return nil
}

// setupRouter configures the Gin router with middleware and routes
func setupRouter(projectHandler *handlers.ProjectHandler, clientHandler *handlers.ClientHandler, invoiceHandler *handlers.InvoiceHandler, dashboardHandler *handlers.DashboardHandler, portalHandler *handlers.PortalHandler, healthChecker *health.HealthChecker) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.SetupCORS())
	router.Use(health.MetricsMiddleware()) // Prometheus metrics middleware

	// Health and observability endpoints (no auth required)
	router.GET("/health", healthChecker.HealthHandler)
	router.GET("/livez", healthChecker.LivezHandler)
	router.GET("/readyz", healthChecker.ReadyzHandler)
	router.GET("/metrics", health.MetricsHandler())

	// ========================================
	// Client portal routes (password gate, no staff auth)
	// ========================================
	portal := router.Group("/api/v1/portal")
	{
		portal.POST("/:slug/verify", portalHandler.VerifyAccess)
		portal.GET("/:slug", middleware.PortalTokenMiddleware(), portalHandler.GetProject)
	}

	// ========================================
	// Admin dashboard routes
	// ========================================
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		projects := v1.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)

			// Assignment endpoints
			projects.GET("/:id/clients", projectHandler.ListAssignedClients)
			projects.GET("/:id/available-clients", projectHandler.ListAvailableClients)
			projects.POST("/:id/clients/:clientId", projectHandler.AssignClient)
			projects.DELETE("/:id/clients/:clientId", projectHandler.UnassignClient)
			projects.PUT("/:id/primary-client/:clientId", projectHandler.SetPrimaryClient)
		}

		clients := v1.Group("/clients")
		{
			clients.GET("", clientHandler.ListClients)
			clients.POST("", clientHandler.CreateClient)
			clients.GET("/:id", clientHandler.GetClient)
			clients.PUT("/:id", clientHandler.UpdateClient)
			clients.DELETE("/:id", clientHandler.DeleteClient)
			clients.GET("/:id/projects", clientHandler.ListClientProjects)

			// Contact endpoints
			clients.GET("/:id/contacts", clientHandler.ListContacts)
			clients.POST("/:id/contacts", clientHandler.CreateContact)
			clients.PUT("/:id/contacts/:contactId", clientHandler.UpdateContact)
			clients.DELETE("/:id/contacts/:contactId", clientHandler.DeleteContact)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.GET("", invoiceHandler.ListInvoices)
			invoices.POST("", invoiceHandler.CreateInvoice)
			invoices.POST("/bulk-delete", invoiceHandler.BulkDeleteInvoices)
			invoices.GET("/:id", invoiceHandler.GetInvoice)
			invoices.PUT("/:id", invoiceHandler.UpdateInvoice)
			invoices.DELETE("/:id", invoiceHandler.DeleteInvoice)
		}

		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/summary", dashboardHandler.GetSummary)
			dashboard.GET("/reconciler", dashboardHandler.GetReconcilerStatus)
			dashboard.POST("/reconciler/sweep", dashboardHandler.TriggerSweep)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
