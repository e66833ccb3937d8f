// services/whatsapp_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"maternal-triage-backend/config"
	"maternal-triage-backend/models"
)

// WhatsAppService replies to patients over the WhatsApp Cloud API
type WhatsAppService struct {
	apiURL        string
	apiVersion    string
	accessToken   string
	phoneNumberID string
	verifyToken   string
	httpClient    *http.Client
	logger        *zap.Logger

	// Status tracking
	statusMu     sync.RWMutex
	lastSent     time.Time
	lastReceived time.Time
	dailyCount   map[string]int
}

func NewWhatsAppService(cfg config.WhatsAppConfig, logger *zap.Logger) *WhatsAppService {
	return &WhatsAppService{
		apiURL:        strings.TrimRight(cfg.APIURL, "/"),
		apiVersion:    cfg.APIVersion,
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		verifyToken:   cfg.VerifyToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     logger,
		dailyCount: make(map[string]int),
	}
}

// GetVerifyToken returns the webhook verification token
func (ws *WhatsAppService) GetVerifyToken() string {
	return ws.verifyToken
}

// Configured reports whether outbound messages can be sent
func (ws *WhatsAppService) Configured() bool {
	return ws.accessToken != "" && ws.phoneNumberID != ""
}

// SendTextMessage sends a simple text message
func (ws *WhatsAppService) SendTextMessage(ctx context.Context, to string, message string) error {
	if !ws.Configured() {
		return fmt.Errorf("whatsapp to %s: %w", to, models.ErrNotifierNotConfigured)
	}

	payload := models.WhatsAppSendMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               ws.CleanPhoneNumber(to),
		Type:             "text",
		Text: &models.WhatsAppText{
			Body: message,
		},
	}

	return ws.sendRequest(ctx, payload)
}

func (ws *WhatsAppService) sendRequest(ctx context.Context, payload interface{}) error {
	url := fmt.Sprintf("%s/%s/%s/messages", ws.apiURL, ws.apiVersion, ws.phoneNumberID)

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ws.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errorResp map[string]interface{}
		if err := json.Unmarshal(body, &errorResp); err == nil {
			ws.logger.Warn("whatsapp API error", zap.Int("status", resp.StatusCode), zap.Any("details", errorResp))
			return fmt.Errorf("WhatsApp API error: %v", errorResp)
		}
		return fmt.Errorf("WhatsApp API error: %s", string(body))
	}

	ws.markSent()
	return nil
}

// CleanPhoneNumber strips everything but digits and adds a US country code to
// bare ten digit numbers
func (ws *WhatsAppService) CleanPhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if len(cleaned) == 10 {
		cleaned = "1" + cleaned
	}

	return cleaned
}

func (ws *WhatsAppService) markSent() {
	ws.statusMu.Lock()
	defer ws.statusMu.Unlock()

	ws.lastSent = time.Now()
	ws.dailyCount[ws.lastSent.Format("2006-01-02")]++
}

// MarkReceived records an inbound message
func (ws *WhatsAppService) MarkReceived() {
	ws.statusMu.Lock()
	defer ws.statusMu.Unlock()

	ws.lastReceived = time.Now()
}

// GetStatus returns the service status
func (ws *WhatsAppService) GetStatus() models.WhatsAppServiceStatus {
	ws.statusMu.RLock()
	defer ws.statusMu.RUnlock()

	today := time.Now().Format("2006-01-02")

	return models.WhatsAppServiceStatus{
		Enabled:             ws.Configured(),
		LastMessageSent:     ws.lastSent,
		LastMessageReceived: ws.lastReceived,
		MessageCountToday:   ws.dailyCount[today],
	}
}
