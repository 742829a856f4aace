// Package transport defines the contract between the session manager and the
// library that speaks the messaging network's wire protocol.
//
// The protocol work (handshake, encryption, framing) happens behind Transport.
// This package only describes what goes in and what comes out.
package transport

import (
	"context"
	"encoding/json"
	"time"
)

// StatusLoggedOut is the close status code the network uses when the session
// was revoked. Any other code is treated as a transient disconnect.
const StatusLoggedOut = 401

// Credentials is the opaque key material of an authenticated session.
type Credentials struct {
	UpdatedAt time.Time                  `json:"updatedAt"`
	Creds     json.RawMessage            `json:"creds,omitempty"`
	Keys      map[string]json.RawMessage `json:"keys,omitempty"`
}

// IsEmpty reports whether the credentials hold no key material, meaning the
// next connection has to go through pairing.
func (c Credentials) IsEmpty() bool {
	return len(c.Creds) == 0 && len(c.Keys) == 0
}

// Phase is the connection phase carried by a ConnectionUpdate.
type Phase string

// Connection phases. An update may carry no phase when it only delivers a
// pairing payload.
const (
	PhaseNone       Phase = ""
	PhaseConnecting Phase = "connecting"
	PhaseOpen       Phase = "open"
	PhaseClose      Phase = "close"
)

// ConnectionUpdate reports a change in the underlying connection.
type ConnectionUpdate struct {
	Phase           Phase  `json:"connection,omitempty"`
	PairingPayload  string `json:"qr,omitempty"`
	CloseReason     string `json:"closeReason,omitempty"`
	CloseStatusCode int    `json:"closeStatusCode,omitempty"`
}

// IsLogout reports whether the update is a close caused by an explicit logout.
func (u ConnectionUpdate) IsLogout() bool {
	return u.Phase == PhaseClose && u.CloseStatusCode == StatusLoggedOut
}

// Message is an inbound chat message as the network delivers it.
type Message struct {
	Timestamp     time.Time `json:"timestamp"`
	ID            string    `json:"id"`
	RemoteAddress string    `json:"remoteJid"`
	PushName      string    `json:"pushName,omitempty"`
	Conversation  string    `json:"conversation,omitempty"`
	ExtendedText  string    `json:"extendedText,omitempty"`
	AudioURL      string    `json:"audioUrl,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	ImageCaption  string    `json:"imageCaption,omitempty"`
	FromMe        bool      `json:"fromMe"`
}

// EventType identifies the payload of an Event.
type EventType string

// Event types emitted by a Connection.
const (
	EventCredentialsUpdated EventType = "creds.update"
	EventConnectionUpdate   EventType = "connection.update"
	EventMessages           EventType = "messages.upsert"
)

// Event is one item of a connection's event stream. Exactly one of the payload
// fields is set, selected by Type.
type Event struct {
	Credentials *Credentials      `json:"creds,omitempty"`
	Connection  *ConnectionUpdate `json:"update,omitempty"`
	Type        EventType         `json:"type"`
	Messages    []Message         `json:"messages,omitempty"`
}

// Document is a file to deliver. Either URL or Data is set.
type Document struct {
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimetype,omitempty"`
}

// Connection is one live session with the network. Its event stream is closed
// when the connection ends.
type Connection interface {
	Events() <-chan Event
	SendText(ctx context.Context, address, body string) error
	SendDocument(ctx context.Context, address string, doc Document) error
	CheckExists(ctx context.Context, address string) (bool, string, error)
	Close() error
}

// Transport builds connections. Connect fails only when the connection could
// not be constructed at all; later failures arrive as close updates.
type Transport interface {
	Connect(ctx context.Context, creds Credentials) (Connection, error)
}
