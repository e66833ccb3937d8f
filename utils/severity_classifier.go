package utils

import (
	"fmt"

	"maternal-triage-backend/models"
)

const (
	criticalSystolicBP = 160

	seriousWithSeverity  = 5
	highPainSeverity     = 8
	moderatePainSeverity = 6
	routineSeverityMark  = 2
)

var (
	criticalKeywords = []string{"bleed", "water", "vision", "blur", "faint", "seizure", "unconscious"}
	seriousKeywords  = []string{"cramp", "fever", "swelling", "vomit"}
)

// severityRule fires when match returns true; the returned string is the reason.
type severityRule struct {
	name  string
	score int
	match func(event models.HealthEvent) (string, bool)
}

// SeverityClassifier scores a daily health log from 1 to 5. Rules are evaluated
// in order and the first one that matches decides the score and reason.
type SeverityClassifier struct {
	rules []severityRule
}

func NewSeverityClassifier() *SeverityClassifier {
	return &SeverityClassifier{
		rules: []severityRule{
			{
				name:  "critical_bp",
				score: 5,
				match: func(e models.HealthEvent) (string, bool) {
					if e.SystolicBP != nil && *e.SystolicBP >= criticalSystolicBP {
						return "CRITICAL BP (≥160): preeclampsia risk", true
					}
					return "", false
				},
			},
			{
				name:  "critical_symptom",
				score: 5,
				match: func(e models.HealthEvent) (string, bool) {
					if s, ok := FirstMatchingSymptom(e.Symptoms, criticalKeywords); ok {
						return fmt.Sprintf("critical symptom reported: %s", s), true
					}
					return "", false
				},
			},
			{
				name:  "no_fetal_movement",
				score: 5,
				match: func(e models.HealthEvent) (string, bool) {
					if e.FetalMovement == models.FetalMovementNone {
						return "no fetal movement detected", true
					}
					return "", false
				},
			},
			{
				name:  "serious_symptom_with_pain",
				score: 4,
				match: func(e models.HealthEvent) (string, bool) {
					if e.ReportedSeverity < seriousWithSeverity {
						return "", false
					}
					if s, ok := FirstMatchingSymptom(e.Symptoms, seriousKeywords); ok {
						return fmt.Sprintf("serious warning: severe %s", s), true
					}
					return "", false
				},
			},
			{
				name:  "high_pain",
				score: 4,
				match: func(e models.HealthEvent) (string, bool) {
					return "high pain threshold reported", e.ReportedSeverity >= highPainSeverity
				},
			},
			{
				name:  "serious_symptom",
				score: 3,
				match: func(e models.HealthEvent) (string, bool) {
					if s, ok := FirstMatchingSymptom(e.Symptoms, seriousKeywords); ok {
						return fmt.Sprintf("moderate: persistent %s", s), true
					}
					return "", false
				},
			},
			{
				name:  "moderate_pain",
				score: 3,
				match: func(e models.HealthEvent) (string, bool) {
					return "moderate pain reported", e.ReportedSeverity >= moderatePainSeverity
				},
			},
		},
	}
}

// Classify never fails; an event no rule matches is a routine log.
func (sc *SeverityClassifier) Classify(event models.HealthEvent) models.ClassificationResult {
	for _, rule := range sc.rules {
		if reason, ok := rule.match(event); ok {
			return models.ClassificationResult{Score: rule.score, Reason: reason}
		}
	}

	score := 1
	if event.ReportedSeverity > routineSeverityMark {
		score = 2
	}
	return models.ClassificationResult{Score: score, Reason: "routine health log"}
}

// RuleNames lists the rules in evaluation order
func (sc *SeverityClassifier) RuleNames() []string {
	names := make([]string, len(sc.rules))
	for i, rule := range sc.rules {
		names[i] = rule.name
	}
	return names
}
