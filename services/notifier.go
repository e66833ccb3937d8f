package services

import (
	"context"
	"fmt"

	"maternal-triage-backend/models"
)

// Notifier delivers a single notification. Implementations return an error on
// failure; callers decide whether that matters.
type Notifier interface {
	Send(ctx context.Context, req models.NotificationRequest) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, req models.NotificationRequest) error

func (f NotifierFunc) Send(ctx context.Context, req models.NotificationRequest) error {
	return f(ctx, req)
}

// NotifierMux routes a request to the transport registered for its channel
type NotifierMux struct {
	transports map[models.Channel]Notifier
}

func NewNotifierMux() *NotifierMux {
	return &NotifierMux{transports: make(map[models.Channel]Notifier)}
}

// Handle registers the transport for a channel, replacing any previous one
func (m *NotifierMux) Handle(channel models.Channel, transport Notifier) *NotifierMux {
	m.transports[channel] = transport
	return m
}

func (m *NotifierMux) Send(ctx context.Context, req models.NotificationRequest) error {
	transport, ok := m.transports[req.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnsupportedChannel, req.Channel)
	}
	return transport.Send(ctx, req)
}
