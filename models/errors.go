package models

import "errors"

var (
	// ErrUnknownIntent is returned when the event type is not one the router knows
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrMalformedPayload is returned when the event data is missing required fields
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrNotifierNotConfigured is returned by a transport without credentials
	ErrNotifierNotConfigured = errors.New("notifier not configured")

	// ErrUnsupportedChannel is returned when no transport serves a channel
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
)
