package utils

import "maternal-triage-backend/models"

const (
	categoryEmergencyConsult = "Emergency Consult"
	categoryRoutineQuery     = "Routine Query"
)

type DoubtClassifier struct {
	highUrgency []string
	lowUrgency  []string
}

func NewDoubtClassifier() *DoubtClassifier {
	return &DoubtClassifier{
		highUrgency: []string{"tight", "pain", "swell"},
		lowUrgency:  []string{"diet", "weight", "vitamin", "sleep"},
	}
}

// Classify checks high urgency keywords before low urgency ones, so a text
// matching both is high.
func (dc *DoubtClassifier) Classify(query models.DoubtQuery) models.DoubtResult {
	if ContainsAnyKeyword(query.Text, dc.highUrgency) {
		category := categoryEmergencyConsult
		return models.DoubtResult{NeedsAppointment: true, Urgency: models.UrgencyHigh, Category: &category}
	}

	if ContainsAnyKeyword(query.Text, dc.lowUrgency) {
		category := categoryRoutineQuery
		return models.DoubtResult{NeedsAppointment: true, Urgency: models.UrgencyLow, Category: &category}
	}

	return models.DoubtResult{NeedsAppointment: false, Urgency: models.UrgencyNone}
}
