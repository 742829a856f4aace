package model

import "time"

// MessageKind classifies an inbound chat message by payload.
type MessageKind string

// Message kind constants.
const (
	KindText    MessageKind = "text"
	KindAudio   MessageKind = "audio"
	KindImage   MessageKind = "image"
	KindUnknown MessageKind = "unknown"
)

// InboundMessage is a single chat message addressed to the session.
// It is consumed once by the router and never stored verbatim.
type InboundMessage struct {
	ReceivedAt    time.Time
	SourceAddress string
	DisplayName   string
	Kind          MessageKind
	TextBody      string
	MediaRef      string // Retrievable URL of the audio or image payload
	MessageID     string
	FromSelf      bool
}

// ParseMessageKind maps an external message type label onto a MessageKind.
func ParseMessageKind(s string) MessageKind {
	switch MessageKind(s) {
	case KindText, KindAudio, KindImage:
		return MessageKind(s)
	default:
		return KindUnknown
	}
}
