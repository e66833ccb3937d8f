// controllers/whatsapp_controller.go
package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maternal-triage-backend/models"
	"maternal-triage-backend/services"
)

type WhatsAppController struct {
	whatsappService *services.WhatsAppService
	triageService   *services.TriageService
	logger          *zap.Logger

	// inflight tracks webhook batches still being answered
	inflight sync.WaitGroup
}

func NewWhatsAppController(whatsappService *services.WhatsAppService, triageService *services.TriageService, logger *zap.Logger) *WhatsAppController {
	return &WhatsAppController{
		whatsappService: whatsappService,
		triageService:   triageService,
		logger:          logger,
	}
}

// VerifyWebhook handles the webhook verification request from WhatsApp
func (wc *WhatsAppController) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == wc.whatsappService.GetVerifyToken() {
		c.String(http.StatusOK, challenge)
		return
	}

	wc.logger.Warn("webhook verification failed", zap.String("mode", mode))
	c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
}

// HandleWebhook processes incoming WhatsApp messages
func (wc *WhatsAppController) HandleWebhook(c *gin.Context) {
	var webhookData models.WhatsAppWebhookData

	if err := c.ShouldBindJSON(&webhookData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook data"})
		return
	}

	// WhatsApp retries slow webhooks, so answer first and reply afterwards
	ctx := context.WithoutCancel(c.Request.Context())
	wc.inflight.Add(1)
	go func() {
		defer wc.inflight.Done()
		wc.processWebhookData(ctx, webhookData)
	}()

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// Wait blocks until webhook replies in flight have been sent
func (wc *WhatsAppController) Wait() {
	wc.inflight.Wait()
}

func (wc *WhatsAppController) processWebhookData(ctx context.Context, webhookData models.WhatsAppWebhookData) {
	for _, entry := range webhookData.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, status := range change.Value.Statuses {
				if len(status.Errors) > 0 {
					wc.logger.Warn("whatsapp delivery error",
						zap.String("message_id", status.ID),
						zap.String("status", status.Status),
						zap.Any("errors", status.Errors),
					)
				}
			}
			for _, message := range change.Value.Messages {
				wc.processMessage(ctx, message)
			}
		}
	}
}

// processMessage treats an inbound text as a doubt and replies with the outcome
func (wc *WhatsAppController) processMessage(ctx context.Context, message models.WhatsAppMessage) {
	wc.whatsappService.MarkReceived()

	if message.Type != "text" || message.Text == nil || strings.TrimSpace(message.Text.Body) == "" {
		wc.logger.Debug("ignoring non-text message", zap.String("from", message.From), zap.String("type", message.Type))
		return
	}

	payload, err := json.Marshal(models.DoubtData{Text: &message.Text.Body})
	if err != nil {
		wc.logger.Error("failed to encode doubt", zap.Error(err))
		return
	}

	response, err := wc.triageService.ProcessEvent(ctx, models.EventRequest{
		Type:    models.EventDoubt,
		EventID: message.ID,
		Data:    payload,
	})
	if err != nil {
		wc.logger.Warn("failed to route whatsapp message", zap.String("from", message.From), zap.Error(err))
		return
	}

	if err := wc.whatsappService.SendTextMessage(ctx, message.From, replyText(response)); err != nil {
		wc.logger.Error("failed to send whatsapp reply", zap.String("to", message.From), zap.Error(err))
	}
}

func replyText(response *models.EventResponse) string {
	if response.Action == models.ActionBookAppointment {
		return fmt.Sprintf("Appointment booked: %v on %v. If symptoms get worse, call your doctor right away.",
			response.Data["type"], response.Data["date"])
	}
	if msg, ok := response.Data["message"].(string); ok {
		return msg
	}
	return "Thank you, your message has been received."
}

// SendMessage sends a manual message (admin endpoint)
func (wc *WhatsAppController) SendMessage(c *gin.Context) {
	var req models.WhatsAppSendRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Error:   "Invalid request format",
			Details: err.Error(),
		})
		return
	}

	if err := wc.whatsappService.SendTextMessage(c.Request.Context(), req.To, req.Message); err != nil {
		wc.logger.Error("manual whatsapp send failed", zap.String("to", req.To), zap.Error(err))
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Status:  "error",
			Error:   "Failed to send message",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// GetStatus returns WhatsApp service status
func (wc *WhatsAppController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, wc.whatsappService.GetStatus())
}
