package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"maternal-triage-backend/config"
	"maternal-triage-backend/models"
)

// VoiceService places text-to-speech calls through the Twilio REST API
type VoiceService struct {
	apiURL     string
	accountSID string
	authToken  string
	fromNumber string
	voice      string
	httpClient *http.Client
	logger     *zap.Logger
}

type twilioCallResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

func NewVoiceService(cfg config.VoiceConfig, logger *zap.Logger) *VoiceService {
	return &VoiceService{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		voice:      cfg.Voice,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Configured reports whether Twilio credentials are present
func (vs *VoiceService) Configured() bool {
	return vs.accountSID != "" && vs.authToken != "" && vs.fromNumber != ""
}

// Send implements Notifier for the voice call channel
func (vs *VoiceService) Send(ctx context.Context, req models.NotificationRequest) error {
	if !vs.Configured() {
		return fmt.Errorf("call to %s: %w", req.Recipient, models.ErrNotifierNotConfigured)
	}
	if req.Recipient == "" {
		return fmt.Errorf("call: empty recipient")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", vs.apiURL, vs.accountSID)
	form := url.Values{}
	form.Set("To", req.Recipient)
	form.Set("From", vs.fromNumber)
	form.Set("Twiml", vs.twiml(req.Message))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.SetBasicAuth(vs.accountSID, vs.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := vs.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to place call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("twilio API error: status %d: %s", resp.StatusCode, string(body))
	}

	var call twilioCallResponse
	if err := json.Unmarshal(body, &call); err != nil {
		vs.logger.Warn("could not decode twilio response", zap.Error(err))
	}

	vs.logger.Info("emergency call queued",
		zap.String("recipient", req.Recipient),
		zap.String("call_sid", call.SID),
		zap.String("call_status", call.Status),
	)
	return nil
}

// twiml wraps the spoken message in an inline <Say> document
func (vs *VoiceService) twiml(message string) string {
	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(message))
	return fmt.Sprintf(`<Response><Say voice="%s">%s</Say></Response>`, vs.voice, escaped.String())
}
