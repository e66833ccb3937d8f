package utils

import "strings"

// ContainsAnyKeyword reports whether text contains any keyword, ignoring case.
// Keywords are expected in lower case.
func ContainsAnyKeyword(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// FirstMatchingSymptom returns the first symptom, in reported order, that
// contains one of the keywords.
func FirstMatchingSymptom(symptoms []string, keywords []string) (string, bool) {
	for _, symptom := range symptoms {
		if ContainsAnyKeyword(symptom, keywords) {
			return symptom, true
		}
	}
	return "", false
}
