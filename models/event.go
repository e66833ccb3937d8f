package models

import (
	"encoding/json"
	"time"
)

// EventType is the declared intent of an inbound event
type EventType string

const (
	EventSetup    EventType = "setup"
	EventDailyLog EventType = "daily_log"
	EventDoubt    EventType = "doubt"
)

// FetalMovement as reported by the patient
type FetalMovement string

const (
	FetalMovementNormal  FetalMovement = "normal"
	FetalMovementReduced FetalMovement = "reduced"
	FetalMovementNone    FetalMovement = "none"
)

// HealthEvent is a single patient-reported health check. It is built per request
// and never mutated afterwards.
type HealthEvent struct {
	Symptoms         []string
	ReportedSeverity int
	FetalMovement    FetalMovement
	SystolicBP       *int
}

// ClassificationResult is the outcome of the severity classifier.
type ClassificationResult struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Tier derives the escalation tier from the score
func (r ClassificationResult) Tier() EscalationTier {
	return TierFor(r.Score)
}

// EscalationTier groups scores into NORMAL / MODERATE / CRITICAL
type EscalationTier string

const (
	TierNormal   EscalationTier = "NORMAL"
	TierModerate EscalationTier = "MODERATE"
	TierCritical EscalationTier = "CRITICAL"
)

// TierFor maps a score to its tier. Every integer has a tier.
func TierFor(score int) EscalationTier {
	switch {
	case score >= 5:
		return TierCritical
	case score >= 3:
		return TierModerate
	default:
		return TierNormal
	}
}

// Urgency of a doubt
type Urgency string

const (
	UrgencyNone Urgency = "none"
	UrgencyLow  Urgency = "low"
	UrgencyHigh Urgency = "high"
)

// DoubtQuery is a free-text question from the patient
type DoubtQuery struct {
	Text string
}

// DoubtResult says whether a doubt warrants an appointment
type DoubtResult struct {
	NeedsAppointment bool    `json:"needs_appointment"`
	Urgency          Urgency `json:"urgency"`
	Category         *string `json:"category"`
}

// Action is the tag returned to the caller describing what the backend did
type Action string

const (
	ActionSetupComplete   Action = "SETUP_COMPLETE"
	ActionLogRecorded     Action = "LOG_RECORDED"
	ActionEmergencyCall   Action = "INITIATE_EMERGENCY_CALL"
	ActionBookAppointment Action = "BOOK_APPOINTMENT"
	ActionAnswerDoubt     Action = "ANSWER_DOUBT"
	ActionMedication      Action = "MEDICATION_PROCESSED"
)

// Patient identifies who reported the event
type Patient struct {
	Name     string
	Symptoms []string
}

// DoctorContact is where escalations are sent
type DoctorContact struct {
	Name  string
	Phone string
	Email string
}

// DispatchOutcome is what the dispatcher decided for a classification
type DispatchOutcome struct {
	Action         Action               `json:"action"`
	AlertLevel     EscalationTier       `json:"alert_level"`
	Classification ClassificationResult `json:"classification"`
	Notified       Channel              `json:"notified,omitempty"`
	Recipient      string               `json:"recipient,omitempty"`
	Duplicate      bool                 `json:"duplicate,omitempty"`
}

// EventRequest is the inbound envelope. Prompt, when present, holds a JSON
// encoded {type, data} pair produced by the voice assistant and takes precedence.
type EventRequest struct {
	Type    EventType       `json:"type"`
	EventID string          `json:"event_id,omitempty"`
	Data    json.RawMessage `json:"data"`
	Prompt  string          `json:"prompt,omitempty"`
}

// EventResponse is the outbound envelope
type EventResponse struct {
	Status     string                 `json:"status"`
	EventID    string                 `json:"event_id,omitempty"`
	Action     Action                 `json:"action"`
	AlertLevel EscalationTier         `json:"alert_level,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Medicine is part of the setup profile
type Medicine struct {
	Name   string `json:"name"`
	Dosage int    `json:"dosage" validate:"min=1,max=100"`
	Freq   int    `json:"freq" validate:"min=1,max=24"`
	Total  int    `json:"total" validate:"min=0,max=100000"`
}

// SetupData is the payload of a setup event
type SetupData struct {
	Name        string   `json:"name" validate:"required"`
	CurrentWeek int      `json:"current_week,omitempty"`
	EDD         string   `json:"edd,omitempty"`
	DoctorName  string   `json:"doctor_name,omitempty"`
	DoctorPhone string   `json:"doctor_phone,omitempty"`
	DoctorEmail string   `json:"doctor_email,omitempty"`
	StartDate   string   `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Medicine    Medicine `json:"medicine"`
	Risks       []string `json:"risks,omitempty"`
}

// DailyLogData is the payload of a daily_log event
type DailyLogData struct {
	Symptoms      []string `json:"symptoms" validate:"required"`
	Severity      *int     `json:"severity" validate:"required"`
	FetalMovement string   `json:"fetal_movement,omitempty" validate:"omitempty,oneof=normal reduced none"`
	BPSystolic    *int     `json:"bp_systolic,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	MedsTaken     *bool    `json:"meds_taken,omitempty"`
	PatientName   string   `json:"patient_name,omitempty"`
	DoctorName    string   `json:"doctor_name,omitempty"`
	DoctorPhone   string   `json:"doctor_phone,omitempty"`
	DoctorEmail   string   `json:"doctor_email,omitempty" validate:"omitempty,email"`
}

// HealthEvent converts the payload into the classifier input
func (d DailyLogData) HealthEvent() HealthEvent {
	fm := FetalMovement(d.FetalMovement)
	if fm == "" {
		fm = FetalMovementNormal
	}
	symptoms := make([]string, len(d.Symptoms))
	copy(symptoms, d.Symptoms)
	return HealthEvent{
		Symptoms:         symptoms,
		ReportedSeverity: *d.Severity,
		FetalMovement:    fm,
		SystolicBP:       d.BPSystolic,
	}
}

// DoubtData is the payload of a doubt event
type DoubtData struct {
	Text *string `json:"text" validate:"required"`
}

// MedicationData is the standalone medication workflow payload
type MedicationData struct {
	MedicineName          *string  `json:"medicine_name"`
	DosagePerIntake       *int     `json:"dosage_per_intake" validate:"omitempty,max=100"`
	FrequencyPerDay       *int     `json:"frequency_per_day" validate:"omitempty,max=24"`
	StartDate             *string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate               *string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	TotalTabletsAvailable *int     `json:"total_tablets_available" validate:"omitempty,max=100000"`
	ScheduleTimes         []string `json:"schedule_times"`
	Notes                 *string  `json:"notes"`
	PredictedRestockDate  *string  `json:"predicted_restock_date"`
}

// TriageRecord is the audit entry written for every routed event
type TriageRecord struct {
	ID         string                 `bson:"_id" json:"id"`
	EventID    string                 `bson:"event_id" json:"event_id"`
	Type       EventType              `bson:"type" json:"type"`
	Action     Action                 `bson:"action" json:"action"`
	AlertLevel EscalationTier         `bson:"alert_level,omitempty" json:"alert_level,omitempty"`
	Score      int                    `bson:"score,omitempty" json:"score,omitempty"`
	Reason     string                 `bson:"reason,omitempty" json:"reason,omitempty"`
	Notified   Channel                `bson:"notified,omitempty" json:"notified,omitempty"`
	Duplicate  bool                   `bson:"duplicate" json:"duplicate"`
	Data       map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	Timestamp  time.Time              `bson:"timestamp" json:"timestamp"`
}
