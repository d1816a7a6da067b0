package models

import (
	"strings"
	"time"
)

// InboundMessage is a WhatsApp message delivered by the transport webhook
type InboundMessage struct {
	SID              string    `json:"sid" form:"MessageSid"`
	From             string    `json:"from" form:"From" binding:"required"`
	To               string    `json:"to" form:"To"`
	Body             string    `json:"body" form:"Body"`
	NumMedia         int       `json:"num_media" form:"NumMedia"`
	MediaURL         string    `json:"media_url,omitempty" form:"MediaUrl0"`
	MediaContentType string    `json:"media_content_type,omitempty" form:"MediaContentType0"`
	ReceivedAt       time.Time `json:"received_at" form:"-"`
}

// HasAudio reports whether the message carries a voice note
func (m *InboundMessage) HasAudio() bool {
	return m.NumMedia > 0 && m.MediaURL != "" && strings.HasPrefix(m.MediaContentType, "audio")
}

// Text returns the trimmed message body
func (m *InboundMessage) Text() string {
	return strings.TrimSpace(m.Body)
}
