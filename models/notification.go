package models

// Channel is the transport a notification goes out on
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelVoiceCall Channel = "voice_call"
)

// NotificationRequest is handed to a notifier and not retained afterwards
type NotificationRequest struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject,omitempty"`
	Message   string  `json:"message"`
}
