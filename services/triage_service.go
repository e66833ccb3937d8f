package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"maternal-triage-backend/config"
	"maternal-triage-backend/models"
	"maternal-triage-backend/utils"
)

// LogStore keeps an audit trail of routed events. It is write only; triage
// never reads it back.
type LogStore interface {
	Record(ctx context.Context, record models.TriageRecord) error
}

// NoopLogStore discards records
type NoopLogStore struct{}

func (NoopLogStore) Record(context.Context, models.TriageRecord) error { return nil }

// TriageService is the intent router: it validates an inbound event, hands it
// to the matching classifier and, for daily logs, to the dispatcher.
type TriageService struct {
	severity   *utils.SeverityClassifier
	doubt      *utils.DoubtClassifier
	dispatcher *Dispatcher
	store      LogStore
	clock      utils.Clock
	contacts   config.ContactsConfig
	validate   *validator.Validate
	logger     *zap.Logger

	// recording tracks audit writes still in flight
	recording sync.WaitGroup
}

func NewTriageService(dispatcher *Dispatcher, store LogStore, clock utils.Clock, contacts config.ContactsConfig, logger *zap.Logger) *TriageService {
	if store == nil {
		store = NoopLogStore{}
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &TriageService{
		severity:   utils.NewSeverityClassifier(),
		doubt:      utils.NewDoubtClassifier(),
		dispatcher: dispatcher,
		store:      store,
		clock:      clock,
		contacts:   contacts,
		validate:   validator.New(),
		logger:     logger,
	}
}

// ProcessEvent unwraps the envelope, assigns an event ID when the client did not
// send one, routes the event and records the outcome. Only client supplied IDs
// take part in deduplication.
func (s *TriageService) ProcessEvent(ctx context.Context, req models.EventRequest) (*models.EventResponse, error) {
	eventType, data := s.unwrapPrompt(req)

	dedupKey := req.EventID
	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	s.logger.Info("processing intent", zap.String("event_id", eventID), zap.String("type", string(eventType)))

	resp, err := s.route(ctx, eventType, data, dedupKey)
	if err != nil {
		s.logger.Warn("event rejected", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	resp.EventID = eventID

	s.record(ctx, eventType, resp)
	return resp, nil
}

// Route dispatches a single event by type without deduplication
func (s *TriageService) Route(ctx context.Context, eventType models.EventType, payload json.RawMessage) (*models.EventResponse, error) {
	return s.route(ctx, eventType, payload, "")
}

func (s *TriageService) route(ctx context.Context, eventType models.EventType, payload json.RawMessage, dedupKey string) (*models.EventResponse, error) {
	switch eventType {
	case models.EventSetup:
		var data models.SetupData
		if err := s.decode(payload, &data); err != nil {
			return nil, err
		}
		return s.handleSetup(data)

	case models.EventDailyLog:
		var data models.DailyLogData
		if err := s.decode(payload, &data); err != nil {
			return nil, err
		}
		return s.handleDailyLog(ctx, data, dedupKey), nil

	case models.EventDoubt:
		var data models.DoubtData
		if err := s.decode(payload, &data); err != nil {
			return nil, err
		}
		return s.handleDoubt(*data.Text), nil

	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownIntent, eventType)
	}
}

func (s *TriageService) unwrapPrompt(req models.EventRequest) (models.EventType, json.RawMessage) {
	if req.Prompt == "" {
		return req.Type, req.Data
	}

	var inner struct {
		Type models.EventType `json:"type"`
		Data json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal([]byte(req.Prompt), &inner); err != nil {
		s.logger.Warn("prompt is not a JSON event, using envelope", zap.Error(err))
		return req.Type, req.Data
	}
	return inner.Type, inner.Data
}

func (s *TriageService) decode(payload json.RawMessage, out interface{}) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: missing data", models.ErrMalformedPayload)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if err := s.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	return nil
}

func (s *TriageService) handleSetup(setup models.SetupData) (*models.EventResponse, error) {
	start := s.clock.Today()
	if setup.StartDate != "" {
		parsed, err := utils.ParseDate(setup.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date: %v", models.ErrMalformedPayload, err)
		}
		start = parsed
	}

	schedule := utils.CalculateSchedule(setup.Medicine.Freq)
	restock, ok := utils.RestockDate(start, setup.Medicine.Total, setup.Medicine.Dosage, setup.Medicine.Freq)
	if !ok {
		return nil, fmt.Errorf("%w: medicine: no restock date for total=%d dosage=%d freq=%d",
			models.ErrMalformedPayload, setup.Medicine.Total, setup.Medicine.Dosage, setup.Medicine.Freq)
	}

	return &models.EventResponse{
		Status: "success",
		Action: models.ActionSetupComplete,
		Data: map[string]interface{}{
			"name":         setup.Name,
			"current_week": setup.CurrentWeek,
			"edd":          setup.EDD,
			"doctor_name":  setup.DoctorName,
			"doctor_phone": setup.DoctorPhone,
			"doctor_email": setup.DoctorEmail,
			"medicine":     setup.Medicine,
			"risks":        setup.Risks,
			"schedule":     schedule,
			"restock_date": utils.FormatDate(restock),
			"message":      fmt.Sprintf("Profile Created for %s. Safe Schedule Generated.", setup.Name),
		},
	}, nil
}

func (s *TriageService) handleDailyLog(ctx context.Context, log models.DailyLogData, dedupKey string) *models.EventResponse {
	event := log.HealthEvent()
	result := s.severity.Classify(event)

	patient := models.Patient{
		Name:     firstNonEmpty(log.PatientName, s.contacts.PatientName),
		Symptoms: event.Symptoms,
	}
	doctor := models.DoctorContact{
		Name:  firstNonEmpty(log.DoctorName, s.contacts.DoctorName),
		Phone: firstNonEmpty(log.DoctorPhone, s.contacts.DoctorPhone),
		Email: firstNonEmpty(log.DoctorEmail, s.contacts.DoctorEmail),
	}

	outcome := s.dispatcher.Dispatch(ctx, dedupKey, result, patient, doctor)

	data := map[string]interface{}{
		"score":        result.Score,
		"reason":       result.Reason,
		"fetal_status": event.FetalMovement,
	}
	switch outcome.AlertLevel {
	case models.TierCritical:
		data["doctor_phone"] = doctor.Phone
		data["message"] = "Emergency call initiated to your doctor."
	case models.TierModerate:
		data["message"] = "Symptoms need attention. Your doctor has been alerted by email."
	default:
		data["message"] = "Vitals are stable. Log added to Weekly Report."
	}
	if outcome.Notified != "" {
		data["notified"] = outcome.Notified
	}
	if outcome.Duplicate {
		data["duplicate"] = true
	}

	return &models.EventResponse{
		Status:     "success",
		Action:     outcome.Action,
		AlertLevel: outcome.AlertLevel,
		Data:       data,
	}
}

func (s *TriageService) handleDoubt(text string) *models.EventResponse {
	analysis := s.doubt.Classify(models.DoubtQuery{Text: text})

	if !analysis.NeedsAppointment {
		return &models.EventResponse{
			Status: "success",
			Action: models.ActionAnswerDoubt,
			Data: map[string]interface{}{
				"message": "Your query has been sent to the doctor. Expect a reply within 24hrs.",
				"urgency": analysis.Urgency,
			},
		}
	}

	days := 2
	if analysis.Urgency == models.UrgencyHigh {
		days = 1
	}
	appointment := s.clock.Today().AddDate(0, 0, days)

	return &models.EventResponse{
		Status: "success",
		Action: models.ActionBookAppointment,
		Data: map[string]interface{}{
			"type":    *analysis.Category,
			"urgency": analysis.Urgency,
			"date":    utils.FormatDate(appointment),
			"notes":   fmt.Sprintf("Auto-booked for: \"%s\"", text),
		},
	}
}

func (s *TriageService) record(ctx context.Context, eventType models.EventType, resp *models.EventResponse) {
	rec := models.TriageRecord{
		ID:         uuid.NewString(),
		EventID:    resp.EventID,
		Type:       eventType,
		Action:     resp.Action,
		AlertLevel: resp.AlertLevel,
		Data:       make(map[string]interface{}, len(resp.Data)),
		Timestamp:  time.Now().UTC(),
	}
	// copied so the caller may keep using the response map
	for k, v := range resp.Data {
		rec.Data[k] = v
	}
	if score, ok := resp.Data["score"].(int); ok {
		rec.Score = score
	}
	if reason, ok := resp.Data["reason"].(string); ok {
		rec.Reason = reason
	}
	if notified, ok := resp.Data["notified"].(models.Channel); ok {
		rec.Notified = notified
	}
	if dup, ok := resp.Data["duplicate"].(bool); ok {
		rec.Duplicate = dup
	}

	// the audit write must not hold up the response
	ctx = context.WithoutCancel(ctx)
	s.recording.Add(1)
	go func() {
		defer s.recording.Done()
		if err := s.store.Record(ctx, rec); err != nil {
			s.logger.Error("failed to record triage outcome", zap.String("event_id", rec.EventID), zap.Error(err))
		}
	}()
}

// Wait blocks until pending audit writes have finished
func (s *TriageService) Wait() {
	s.recording.Wait()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
