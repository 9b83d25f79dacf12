package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/config"
	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/handlers"
	"github.com/quartermaster/booking-backend/internal/middleware"
	"github.com/quartermaster/booking-backend/internal/services"
	"github.com/quartermaster/booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting launch viewing booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize repositories. The booking and merchandise repositories run
	// their own transactions and need the raw sqlx handle.
	missionRepo := database.NewMissionRepository(db)
	boatRepo := database.NewBoatRepository(db)
	tripRepo := database.NewTripRepository(db)
	discountRepo := database.NewDiscountRepository(db)
	adminUserRepo := database.NewAdminUserRepository(db)
	bookingRepo := database.NewBookingRepository(db.DB)
	merchRepo := database.NewMerchandiseRepository(db.DB)

	// Initialize services
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	authService := services.NewAdminAuthService(adminUserRepo, jwtService, logger)
	pricingService := services.NewPricingService(tripRepo, boatRepo, bookingRepo, logger)
	stripeService := services.NewStripeService(&cfg.Stripe, logger)
	emailService := services.NewEmailService(&cfg.Email, cfg.Booking.PublicBaseURL, logger)
	bookingService := services.NewBookingService(
		bookingRepo,
		tripRepo,
		boatRepo,
		missionRepo,
		merchRepo,
		discountRepo,
		pricingService,
		stripeService,
		emailService,
		&cfg.Booking,
		logger,
	)
	tripBoatService := services.NewTripBoatService(tripRepo, boatRepo, bookingRepo, pricingService, logger)
	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	tripBoatHandler := handlers.NewTripBoatHandler(tripBoatService, bookingService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	{
		// Public booking routes. OptionalAdmin lets authenticated admins
		// book restricted trips through the same endpoint.
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.OptionalAdmin(authService))
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("/code/:code", bookingHandler.GetByCode)
		}

		// Public trip availability
		v1.GET("/trips/:id/availability", tripBoatHandler.Availability)

		// Admin auth
		v1.POST("/admin/auth/login", authHandler.Login)

		// Admin routes (all protected)
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdmin(authService))
		{
			admin.GET("/auth/me", authHandler.Me)

			admin.GET("/bookings", bookingHandler.List)
			admin.GET("/bookings/export", bookingHandler.Export)
			admin.GET("/bookings/:id", bookingHandler.Get)
			admin.PATCH("/bookings/:id", bookingHandler.Update)
			admin.DELETE("/bookings/:id", middleware.RequireSuperuser(), bookingHandler.Delete)
			admin.PATCH("/bookings/:id/items/:itemId", bookingHandler.UpdateItem)
			admin.POST("/bookings/:id/reschedule", bookingHandler.Reschedule)
			admin.POST("/bookings/:id/refund", bookingHandler.Refund)
			admin.POST("/bookings/:id/duplicate", bookingHandler.Duplicate)
			admin.POST("/bookings/:id/resend-email", bookingHandler.ResendEmail)
			admin.POST("/bookings/check-in/:code", bookingHandler.CheckIn)
			admin.POST("/bookings/check-in/:code/revert", bookingHandler.RevertCheckIn)

			admin.POST("/trips/:id/boats", tripBoatHandler.CreateTripBoat)
			admin.POST("/trips/:id/reassign", tripBoatHandler.ReassignPassengers)
			admin.PATCH("/trip-boats/:id", tripBoatHandler.UpdateTripBoat)
			admin.DELETE("/trip-boats/:id", tripBoatHandler.DeleteTripBoat)
			admin.PUT("/trip-boats/:id/pricing", tripBoatHandler.UpsertTripBoatPricing)
			admin.DELETE("/trip-boats/:id/pricing/:ticketType", tripBoatHandler.DeleteTripBoatPricing)

			admin.PUT("/boats/:id/pricing", tripBoatHandler.UpsertBoatPricing)
			admin.POST("/boats/:id/pricing/rename", tripBoatHandler.RenameTicketType)
			admin.DELETE("/boats/:id/pricing/:ticketType", tripBoatHandler.DeleteBoatPricing)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
