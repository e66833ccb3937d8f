package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"maternal-triage-backend/models"
)

type DispatcherConfig struct {
	// Async delivers notifications on a detached goroutine
	Async bool
	// Timeout bounds a single delivery attempt
	Timeout time.Duration
}

// Dispatcher turns a classification into at most one notification. Delivery is
// best effort: failures are logged and never change the outcome.
type Dispatcher struct {
	notifier Notifier
	dedup    Deduplicator
	config   DispatcherConfig
	logger   *zap.Logger
	inflight sync.WaitGroup
}

func NewDispatcher(notifier Notifier, dedup Deduplicator, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if dedup == nil {
		dedup = NoopDeduplicator{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		dedup:    dedup,
		config:   cfg,
		logger:   logger,
	}
}

// Dispatch decides the action for result and issues the matching notification.
// eventID is used for deduplication; an empty ID is never deduplicated.
func (d *Dispatcher) Dispatch(ctx context.Context, eventID string, result models.ClassificationResult, patient models.Patient, doctor models.DoctorContact) models.DispatchOutcome {
	tier := result.Tier()
	outcome := models.DispatchOutcome{
		Action:         models.ActionLogRecorded,
		AlertLevel:     tier,
		Classification: result,
	}

	var req models.NotificationRequest
	switch tier {
	case models.TierCritical:
		outcome.Action = models.ActionEmergencyCall
		req = models.NotificationRequest{
			Channel:   models.ChannelVoiceCall,
			Recipient: doctor.Phone,
			Message:   emergencyCallMessage(patient, result),
		}
	case models.TierModerate:
		req = models.NotificationRequest{
			Channel:   models.ChannelEmail,
			Recipient: doctor.Email,
			Subject:   fmt.Sprintf("LifeGuard Alert: Patient %s (Severity %d/5)", patient.Name, result.Score),
			Message:   moderateAlertMessage(patient, doctor, result),
		}
	default:
		return outcome
	}

	if eventID != "" {
		first, err := d.dedup.FirstSeen(ctx, eventID)
		if err != nil {
			d.logger.Warn("dedup check failed, dispatching anyway", zap.String("event_id", eventID), zap.Error(err))
			first = true
		}
		if !first {
			d.logger.Info("duplicate event, notification suppressed",
				zap.String("event_id", eventID),
				zap.String("alert_level", string(tier)),
			)
			outcome.Duplicate = true
			return outcome
		}
	}

	outcome.Notified = req.Channel
	outcome.Recipient = req.Recipient
	d.deliver(ctx, eventID, req)
	return outcome
}

// Wait blocks until detached deliveries have finished
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, eventID string, req models.NotificationRequest) {
	// the request context ends with the HTTP response; delivery must outlive it
	ctx = context.WithoutCancel(ctx)

	if !d.config.Async {
		d.send(ctx, eventID, req)
		return
	}

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.send(ctx, eventID, req)
	}()
}

func (d *Dispatcher) send(ctx context.Context, eventID string, req models.NotificationRequest) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("event_id", eventID),
		zap.String("channel", string(req.Channel)),
		zap.String("recipient", req.Recipient),
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notifier panicked", append(fields, zap.Any("panic", r))...)
		}
	}()

	if err := d.notifier.Send(ctx, req); err != nil {
		d.logger.Error("notification failed", append(fields, zap.Error(err))...)
		return
	}
	d.logger.Info("notification delivered", fields...)
}

func emergencyCallMessage(patient models.Patient, result models.ClassificationResult) string {
	return fmt.Sprintf(
		"This is a Life Guard Emergency Alert. Patient %s has reported a critical condition. "+
			"Symptoms: %s. Reason: %s. Please respond immediately.",
		patient.Name, joinSymptoms(patient.Symptoms), result.Reason,
	)
}

func moderateAlertMessage(patient models.Patient, doctor models.DoctorContact, result models.ClassificationResult) string {
	return fmt.Sprintf(
		"Doctor %s,\nYour patient %s has reported symptoms requiring attention.\n"+
			"Reason: %s\nSeverity score: %d/5\nReported symptoms: %s\n"+
			"Please review their profile or contact them if necessary.",
		doctor.Name, patient.Name, result.Reason, result.Score, joinSymptoms(patient.Symptoms),
	)
}

func joinSymptoms(symptoms []string) string {
	if len(symptoms) == 0 {
		return "none reported"
	}
	return strings.Join(symptoms, ", ")
}
