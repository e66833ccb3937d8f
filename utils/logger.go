package utils

import "go.uber.org/zap"

// NewLogger builds a JSON production logger for the production environment and
// a human readable development logger otherwise.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
