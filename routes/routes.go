package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maternal-triage-backend/config"
	"maternal-triage-backend/controllers"
	"maternal-triage-backend/database"
	"maternal-triage-backend/middleware"
	"maternal-triage-backend/services"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	Config            *config.Config
	TriageService     *services.TriageService
	MedicationService *services.MedicationService
	WhatsAppService   *services.WhatsAppService
	WhatsApp          *controllers.WhatsAppController
	WebSocket         *controllers.WebSocketController
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	// Initialize controllers
	triageController := controllers.NewTriageController(deps.TriageService)
	medicationController := controllers.NewMedicationController(deps.MedicationService)
	wsController := deps.WebSocket
	whatsappController := deps.WhatsApp

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "disabled"
		if database.Connected() {
			dbStatus = "ok"
			if err := database.HealthCheck(ctx); err != nil {
				dbStatus = "unreachable"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":              "ok",
			"timestamp":           time.Now(),
			"database":            dbStatus,
			"whatsapp_configured": deps.WhatsAppService.Configured(),
		})
	})

	public := router.Group("/api/v1")
	{
		public.GET("/intents", triageController.GetSupportedIntents)
		public.POST("/events", triageController.HandleEvent)
		// kept for clients of the first release
		public.POST("/pregnancy", triageController.HandleEvent)

		public.POST("/medication", middleware.RequireAPIKey(cfg.APIKey), medicationController.HandleMedication)

		// WebSocket for real-time event submission
		public.GET("/ws", wsController.HandleWebSocket)
	}

	whatsapp := router.Group("/api/whatsapp")
	{
		// Webhook endpoints (signed by Meta, no API key)
		whatsapp.GET("/webhook", whatsappController.VerifyWebhook)
		whatsapp.POST("/webhook", middleware.VerifyWhatsAppSignature(cfg.WhatsApp.AppSecret), whatsappController.HandleWebhook)

		admin := whatsapp.Group("/admin")
		admin.Use(middleware.RequireAPIKey(cfg.APIKey))
		{
			admin.POST("/send", whatsappController.SendMessage)
			admin.GET("/status", whatsappController.GetStatus)
		}
	}

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})
}
