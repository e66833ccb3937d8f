package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"maternal-triage-backend/config"
	"maternal-triage-backend/controllers"
	"maternal-triage-backend/database"
	"maternal-triage-backend/models"
	"maternal-triage-backend/routes"
	"maternal-triage-backend/services"
	"maternal-triage-backend/utils"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg := config.Get()

	logger, err := utils.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// The audit log is optional; triage keeps working without it
	var store services.LogStore = services.NoopLogStore{}
	if err := database.Connect(cfg, logger); err != nil {
		logger.Warn("database unavailable, triage audit log disabled", zap.Error(err))
	} else if db := database.GetMongoDB(); db != nil {
		store = database.NewTriageLogStore(db)
	}
	defer database.Disconnect() //nolint:errcheck

	dedup, closeDedup := newDeduplicator(cfg, logger)
	defer closeDedup()

	emailService := services.NewEmailService(cfg.Email, logger)
	voiceService := services.NewVoiceService(cfg.Voice, logger)
	if !emailService.Configured() {
		logger.Warn("email credentials missing, moderate alerts will not be delivered")
	}
	if !voiceService.Configured() {
		logger.Warn("voice credentials missing, emergency calls will not be placed")
	}

	notifier := services.NewNotifierMux().
		Handle(models.ChannelEmail, emailService).
		Handle(models.ChannelVoiceCall, voiceService)

	dispatcher := services.NewDispatcher(notifier, dedup, services.DispatcherConfig{
		Async:   cfg.Notify.Async,
		Timeout: cfg.Notify.Timeout,
	}, logger)

	triageService := services.NewTriageService(dispatcher, store, utils.SystemClock{}, cfg.Contacts, logger)
	whatsappService := services.NewWhatsAppService(cfg.WhatsApp, logger)
	whatsappController := controllers.NewWhatsAppController(whatsappService, triageService, logger)
	wsController := controllers.NewWebSocketController(triageService, cfg.Security.AllowedOrigins, logger)

	if !whatsappService.Configured() {
		logger.Warn("WhatsApp integration disabled: access token or phone number ID missing")
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Security.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "x-api-key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(router, routes.Dependencies{
		Config:            cfg,
		TriageService:     triageService,
		MedicationService: services.NewMedicationService(logger),
		WhatsAppService:   whatsappService,
		WhatsApp:          whatsappController,
		WebSocket:         wsController,
	})

	logAvailableEndpoints(router, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// stop every producer of alerts and audit writes before draining them
	wsController.Close()
	whatsappController.Wait()
	triageService.Wait()
	dispatcher.Wait()

	logger.Info("server exited")
}

func newDeduplicator(cfg *config.Config, logger *zap.Logger) (services.Deduplicator, func()) {
	switch cfg.Dedup.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to in-memory dedup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			client.Close()
			return services.NewMemoryDeduplicator(cfg.Dedup.TTL), func() {}
		}
		logger.Info("redis dedup enabled", zap.String("addr", cfg.Redis.Addr))
		return services.NewRedisDeduplicator(client, cfg.Dedup.TTL), func() { client.Close() }
	case "none":
		return services.NoopDeduplicator{}, func() {}
	default:
		return services.NewMemoryDeduplicator(cfg.Dedup.TTL), func() {}
	}
}

// logAvailableEndpoints logs all registered routes
func logAvailableEndpoints(router *gin.Engine, logger *zap.Logger) {
	for _, route := range router.Routes() {
		logger.Debug("route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}
}
